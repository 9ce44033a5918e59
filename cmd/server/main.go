package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/database"
	"github.com/example/foodorder/internal/handlers"
	"github.com/example/foodorder/internal/logging"
	"github.com/example/foodorder/internal/metrics"
	"github.com/example/foodorder/internal/routes"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	db := database.Connect(cfg, log)
	rdb := database.NewRedis(cfg, log)

	app := fiber.New(fiber.Config{
		AppName:      "Food Order Backend",
		ErrorHandler: handlers.ErrorHandler(cfg, log),
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())
	app.Use(metrics.Middleware())

	if err := routes.Register(app, db, rdb, cfg, log); err != nil {
		log.WithError(err).Fatal("route registration failed")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("shutting down")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("fiber shutdown")
		}
	}()

	log.Infof("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.WithError(err).Fatal("fiber.Listen error")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
