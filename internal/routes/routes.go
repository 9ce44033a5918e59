package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/foodorder/internal/config"
	"github.com/example/foodorder/internal/handlers"
	"github.com/example/foodorder/internal/identity"
	"github.com/example/foodorder/internal/metrics"
	"github.com/example/foodorder/internal/middleware"
	"github.com/example/foodorder/internal/services"
)

// Register wires up all HTTP routes. rdb may be nil.
func Register(app *fiber.App, db *gorm.DB, rdb *redis.Client, cfg *config.Config, log *logrus.Logger) error {
	telegramService := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, db, log)
	events := services.EventFanout{
		services.NewRedisEventPublisher(rdb, log),
		telegramService,
	}

	profileService := services.NewProfileService(db, log)
	addressService := services.NewAddressService(db, log)
	catalogService := services.NewCatalogService(db, services.NewCatalogCache(rdb, cfg.CatalogCacheTTL, log), log)
	orderService := services.NewOrderService(db, log, services.OrderServiceOptions{
		LockRows: cfg.LockOrderRows,
		Events:   events,
	})

	authHandler := handlers.NewAuthHandler(profileService, cfg)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	orderHandler := handlers.NewOrderHandler(orderService)
	profileHandler := handlers.NewProfileHandler(profileService, addressService)
	adminHandler := handlers.NewAdminHandler(orderService, profileService)

	rateLimit, err := middleware.RateLimit(cfg.RateLimit)
	if err != nil {
		return err
	}
	authRequired := middleware.AuthMiddleware(newVerifier(cfg), profileService)
	adminOnly := middleware.AdminOnly()

	app.Get("/health", handlers.Health(db))
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api", rateLimit)

	// Local accounts exist only when this server issues the tokens.
	if cfg.IdentityProvider == config.IdentityLocalJWT {
		auth := api.Group("/auth")
		auth.Post("/register", authHandler.Register)
		auth.Post("/login", authHandler.Login)
	}

	// Menu
	menu := api.Group("/menu")
	menu.Get("/categories", catalogHandler.ListCategories)
	menu.Get("/categories/:id", catalogHandler.GetCategory)
	menu.Post("/categories", authRequired, adminOnly, catalogHandler.CreateCategory)
	menu.Put("/categories/:id", authRequired, adminOnly, catalogHandler.UpdateCategory)
	menu.Delete("/categories/:id", authRequired, adminOnly, catalogHandler.DeleteCategory)

	menu.Get("/items", catalogHandler.ListMenu)
	menu.Get("/items/:id", catalogHandler.GetMenuItem)
	menu.Post("/items", authRequired, adminOnly, catalogHandler.CreateMenuItem)
	menu.Put("/items/:id", authRequired, adminOnly, catalogHandler.UpdateMenuItem)
	menu.Delete("/items/:id", authRequired, adminOnly, catalogHandler.DeleteMenuItem)

	menu.Post("/:menu_id/gallery", authRequired, adminOnly, catalogHandler.AddGalleryImage)
	menu.Put("/gallery/:gallery_id", authRequired, adminOnly, catalogHandler.UpdateGalleryImage)
	menu.Delete("/gallery/:gallery_id", authRequired, adminOnly, catalogHandler.DeleteGalleryImage)

	// Orders
	orders := api.Group("/orders", authRequired)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", adminOnly, orderHandler.ListOrders)
	orders.Get("/mine/:user_id", orderHandler.ListUserOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Put("/:id/status", adminOnly, orderHandler.UpdateStatus)
	orders.Post("/:id/payment", adminOnly, orderHandler.UpdatePayment)
	orders.Put("/:id/payment", adminOnly, orderHandler.UpdatePayment)

	// Users
	users := api.Group("/users", authRequired)
	users.Get("/me", profileHandler.GetProfile)
	users.Put("/me", profileHandler.UpdateProfile)
	users.Delete("/me", profileHandler.DeleteProfile)
	users.Get("/me/addresses", profileHandler.ListAddresses)
	users.Post("/me/addresses", profileHandler.CreateAddress)
	users.Put("/me/addresses/:address_id", profileHandler.UpdateAddress)
	users.Delete("/me/addresses/:address_id", profileHandler.DeleteAddress)

	users.Get("/", adminOnly, profileHandler.ListUsers)
	users.Put("/:id", adminOnly, profileHandler.UpdateUser)
	users.Delete("/:id", adminOnly, profileHandler.DeleteUser)
	users.Get("/admin/:user_id/addresses", adminOnly, profileHandler.ListAddresses)
	users.Post("/admin/:user_id/addresses", adminOnly, profileHandler.CreateAddress)
	users.Put("/admin/:user_id/addresses/:address_id", adminOnly, profileHandler.UpdateAddress)
	users.Delete("/admin/:user_id/addresses/:address_id", adminOnly, profileHandler.DeleteAddress)

	// Back office
	admin := api.Group("/admin", authRequired, adminOnly)
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/recent-orders", adminHandler.RecentOrders)

	return nil
}

func newVerifier(cfg *config.Config) identity.Verifier {
	if cfg.IdentityProvider == config.IdentitySupabase {
		// With the project's JWT secret tokens are checked locally, without a round trip.
		if cfg.SupabaseJWTSecret != "" {
			return identity.NewJWTVerifier(cfg.SupabaseJWTSecret)
		}
		return identity.NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	}
	return identity.NewJWTVerifier(cfg.JWTSecret)
}
