package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/models"
)

// Connect initializes the database connection and runs migrations.
func Connect(cfg *config.Config, log *logrus.Logger) *gorm.DB {
	if err := ensureDatabase(cfg.DatabaseURL); err != nil {
		log.WithError(err).Fatal("failed to ensure database")
	}

	conn, err := gorm.Open(postgres.Open(cfg.DatabaseURL), GormConfig(log))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.WithError(err).Fatal("failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := conn.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		log.WithError(err).Warn("failed to ensure uuid-ossp extension")
	}

	if err := Migrate(conn); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}

	return conn
}

// GormConfig returns the gorm settings shared by every dialect.
// Driver errors are translated so callers can match gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
func GormConfig(log *logrus.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		TranslateError: true,
	}
}

// Migrate creates or updates every table.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks that the database answers.
func Ping(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func ensureDatabase(dsn string) error {
	masterDSN, dbName, ok, err := splitDSN(dsn)
	if err != nil || !ok {
		return err
	}

	sqlDB, err := sql.Open("postgres", masterDSN)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return err
	}

	return createIfMissing(sqlDB, dbName)
}

// splitDSN returns the maintenance DSN and the target database name for postgres URLs.
func splitDSN(dsn string) (string, string, bool, error) {
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return "", "", false, nil
	}

	parsed, err := url.Parse(dsn)
	if err != nil {
		return "", "", false, err
	}

	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return "", "", false, nil
	}

	parsed.Path = "/postgres"
	return parsed.String(), dbName, true, nil
}

func createIfMissing(sqlDB *sql.DB, dbName string) error {
	var exists bool
	if err := sqlDB.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists); err != nil {
		return err
	}

	if exists {
		return nil
	}

	_, err := sqlDB.Exec("CREATE DATABASE " + pq.QuoteIdentifier(dbName))
	return err
}
