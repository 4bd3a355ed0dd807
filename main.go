package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"linebot-assistant/database"
	"linebot-assistant/internal/bot"
	"linebot-assistant/internal/cache"
	"linebot-assistant/internal/config"
	"linebot-assistant/internal/handlers"
	"linebot-assistant/internal/jobs"
	"linebot-assistant/internal/models"
	"linebot-assistant/internal/routes"
	"linebot-assistant/internal/services"
	"linebot-assistant/internal/storage"
	"linebot-assistant/internal/tasks"
)

const version = "1.0.0"

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("⚠️  No .env file found - checking environment variables")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	if cfg.LineChannelSecret == "" {
		log.Println("⚠️  LINE_CHANNEL_SECRET not set - webhook signature validation will fail")
	}

	storeOpts := storage.Options{
		HistoryMax:      cfg.HistoryMax,
		HistoryTTL:      cfg.HistoryTTL,
		PendingQueryTTL: cfg.PendingQueryTTL,
		TaskTTL:         cfg.TaskTTL,
	}

	// Initialize storage
	var store storage.Store

	// Check if we should use memory store (for testing)
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore(storeOpts)
	} else {
		// Connect to database
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		// Run migrations
		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.ChatHistory{},
			&models.UserLocation{},
			&models.PendingQuery{},
			&models.InputMode{},
			&models.TodoList{},
			&models.TaskRecord{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		// Use database store
		store = storage.NewDatabaseStore(database.DB, storeOpts)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Set global instance
	storage.SetStore(store)

	ctx := context.Background()

	// Initialize LINE and Gemini clients
	lineService, err := services.NewLineService(cfg.LineChannelToken)
	if err != nil {
		log.Fatal("Failed to initialize LINE client:", err)
	}

	geminiService, err := services.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.TextModel, cfg.ImageModel, cfg.EditModel)
	if err != nil {
		log.Fatal("Failed to initialize Gemini client:", err)
	}

	// Image pipeline; without Cloudinary generated images cannot be delivered
	resultCache := cache.New(cfg.CacheCapacity)
	var imageService *services.ImageService
	if cfg.CloudinaryURL == "" {
		log.Println("⚠️  CLOUDINARY_URL not set - image generation disabled")
		imageService = services.NewImageService(geminiService, nil, resultCache, cfg.CacheTTL)
	} else {
		uploadService, err := services.NewUploadService(cfg.CloudinaryURL)
		if err != nil {
			log.Fatal("Failed to initialize Cloudinary:", err)
		}
		imageService = services.NewImageService(geminiService, uploadService, resultCache, cfg.CacheTTL)
	}

	// Data providers
	if cfg.OpenWeatherAPIKey == "" {
		log.Println("⚠️  OPENWEATHER_API_KEY not set - weather lookups will fail")
	}
	if cfg.FinnhubAPIKey == "" {
		log.Println("⚠️  FINNHUB_API_KEY not set - stock lookups will fail")
	}
	if cfg.NewsAPIKey == "" {
		log.Println("⚠️  NEWS_API_KEY not set - news lookups will fail")
	}
	weatherService := services.NewWeatherService(cfg.OpenWeatherAPIKey)
	stockService := services.NewStockService(cfg.FinnhubAPIKey)
	newsService := services.NewNewsService(cfg.NewsAPIKey, cfg.MaxSearchResults)
	currencyService := services.NewCurrencyService()
	webService := services.NewWebService()
	parsingService := services.NewParsingService(geminiService, cfg.MaxSearchResults)

	// Background task executor
	executor := tasks.NewExecutor(store, lineService, cfg.Workers, cfg.QueueSize, cfg.TaskTimeout)
	executor.Start()

	// Wire the bot
	assistant := bot.New(bot.Config{
		Store:      store,
		Messenger:  lineService,
		Classifier: parsingService,
		Chatter:    geminiService,
		Images:     imageService,
		Weather:    weatherService,
		Stocks:     stockService,
		News:       newsService,
		Currency:   currencyService,
		Pages:      webService,
		Executor:   executor,
	})

	// Handlers
	webhookHandler := handlers.NewWebhookHandler(assistant)
	taskHandler := handlers.NewTaskHandler(store)

	// Start the expiry sweep
	cleanupJob := jobs.NewCleanupJob(store, cfg.CleanupInterval)
	cleanupJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "LINE Assistant Bot v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Status endpoint with database and queue detail
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service":     "LINE Assistant Bot",
			"version":     version,
			"status":      "healthy",
			"environment": environment(),
			"storage":     storageType(),
			"integrations": fiber.Map{
				"line":       cfg.LineChannelToken != "",
				"gemini":     cfg.GeminiAPIKey != "",
				"cloudinary": cfg.CloudinaryURL != "",
				"weather":    cfg.OpenWeatherAPIKey != "",
				"stocks":     cfg.FinnhubAPIKey != "",
				"news":       cfg.NewsAPIKey != "",
			},
			"tasks": fiber.Map{
				"workers": executor.Workers(),
				"queued":  executor.Queued(),
			},
		}

		// Add database status if using database
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			// Get counts
			var historyCount, locationCount, todoCount, taskCount int64
			database.DB.Model(&models.ChatHistory{}).Count(&historyCount)
			database.DB.Model(&models.UserLocation{}).Count(&locationCount)
			database.DB.Model(&models.TodoList{}).Count(&todoCount)
			database.DB.Model(&models.TaskRecord{}).Count(&taskCount)

			response["database"] = fiber.Map{
				"status":    dbStatus,
				"histories": historyCount,
				"locations": locationCount,
				"todos":     todoCount,
				"tasks":     taskCount,
			}
		}

		return c.JSON(response)
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		// Check database if using it
		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"line":     cfg.LineChannelToken != "",
				"gemini":   cfg.GeminiAPIKey != "",
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, webhookHandler, taskHandler)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping cleanup job...")
		cleanupJob.Stop()
		log.Println("⏹️  Draining task executor...")
		executor.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 LINE Assistant Bot starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("🌍 Environment: %s", environment())
	log.Printf("🤖 Text model: %s", cfg.TextModel)
	log.Printf("🎨 Image models: %s / %s", cfg.ImageModel, cfg.EditModel)
	log.Printf("👷 Task workers: %d (queue %d)", executor.Workers(), cfg.QueueSize)
	log.Println("========================================")

	log.Fatal(app.Listen(":" + cfg.Port))
}

func environment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
