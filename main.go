package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ouerghi0x/cv-maker-sub000/api"
	"github.com/ouerghi0x/cv-maker-sub000/config"
	"github.com/ouerghi0x/cv-maker-sub000/database"
	"github.com/ouerghi0x/cv-maker-sub000/middleware"
	"github.com/ouerghi0x/cv-maker-sub000/models"
	"github.com/ouerghi0x/cv-maker-sub000/repository"
	"github.com/ouerghi0x/cv-maker-sub000/services"
	"github.com/ouerghi0x/cv-maker-sub000/utils"

	"gorm.io/gorm"
)

func main() {
	// Load application configuration
	config.LoadConfig()

	// Initialize database connection
	db, err := database.Init()
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to initialize database: %v", err)
	}

	// Auto-migrate database schema
	runMigrations(db)

	// Initialize Repositories
	guestUsageRepo := repository.NewGuestUsageRepository(db)
	userRepo := repository.NewUserRepository(db)
	cvRepo := repository.NewCVRepository(db)
	log.Println("INFO: [Main] Repositories initialized.")

	// Initialize Services
	cfg := config.AppConfig
	quotaService := services.NewGuestQuotaService(guestUsageRepo, time.Duration(cfg.GuestWindowHours)*time.Hour)
	authService := services.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	identityService := services.NewIdentityService(authService)
	entitlementService := services.NewEntitlementService(userRepo, cfg.FreeTrialCVLimit)
	geoCache := utils.NewTTLCache(cfg.Geo.CacheSize, time.Duration(cfg.Geo.CacheTTLMinutes)*time.Minute)
	geoService := services.NewGeoService(cfg.Geo.Enabled, cfg.Geo.BaseURL, time.Duration(cfg.Geo.TimeoutSeconds)*time.Second, geoCache)
	generatorService := services.NewGeneratorService(
		services.NewOpenAIGenerator(cfg.LLM),
		services.NewTectonicCompiler(cfg.Compile),
		cfg.Compile.MaxAttempts,
	)
	log.Println("INFO: [Main] Services initialized.")

	// Initialize API Handler with all dependencies
	apiHandler := api.NewAPIHandler(
		identityService,
		quotaService,
		entitlementService,
		authService,
		geoService,
		generatorService,
		cvRepo,
		userRepo,
	)
	log.Println("INFO: [Main] API Handler initialized.")

	// Create Gin engine
	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Register middlewares
	r.Use(middleware.Logger())
	r.Use(middleware.Cors())
	log.Println("INFO: [Main] Middlewares registered.")

	// Register routes
	registerRoutes(r, apiHandler)
	log.Println("INFO: [Main] Routes registered.")

	// Start the server
	serverPort := ":" + config.AppConfig.Server.Port
	if config.AppConfig.Server.Port == "" {
		log.Println("WARN: [Main] Server port not configured, using default :8080.")
		serverPort = ":8080"
	}
	log.Printf("INFO: [Main] Starting server on port %s", serverPort)
	if err := r.Run(serverPort); err != nil {
		log.Fatalf("FATAL: [Main] Server failed to start: %v", err)
	}
}

func runMigrations(db *gorm.DB) {
	log.Println("INFO: [Main] Running database migrations...")
	err := db.AutoMigrate(
		&models.User{},
		&models.Subscription{},
		&models.CV{},
		&models.GuestUsage{},
	)
	if err != nil {
		log.Fatalf("FATAL: [Main] Failed to auto-migrate database: %v", err)
	}
	log.Println("INFO: [Main] Database migration completed.")
}

func registerRoutes(r *gin.Engine, handler *api.APIHandler) {
	apiGroup := r.Group("/api")
	{
		// Guest metering
		apiGroup.GET("/guest/status", handler.GuestStatusHandler)

		// Document generation
		apiGroup.POST("/generate", handler.GenerateHandler)
		apiGroup.POST("/email-job", handler.EmailJobHandler)

		// Auth
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/signup", handler.SignupHandler)
			authGroup.POST("/login", handler.LoginHandler)
			authGroup.POST("/logout", handler.LogoutHandler)
			authGroup.GET("/me", handler.MeHandler)
		}

		// User data
		apiGroup.GET("/user/cv-history", handler.CVHistoryHandler)

		// Cron/operator trigger for the expiry sweep
		adminGroup := apiGroup.Group("/admin")
		{
			adminGroup.POST("/cleanup-guests", handler.CleanupGuestsHandler)
			adminGroup.GET("/cleanup-guests", handler.CleanupGuestsHandler) // easier manual testing
		}
	}
}
