package routes

import (
	"os"

	"linebot-assistant/internal/handlers"
	"linebot-assistant/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, webhookHandler *handlers.WebhookHandler, taskHandler *handlers.TaskHandler) {

	// API routes
	api := app.Group("/api")
	api.Get("/tasks/:id", taskHandler.Status)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// LINE webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: Skip validation for ngrok
		webhooks.Post("/line", webhookHandler.HandleLineWebhook)
		// Log that validation is disabled
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  LINE webhook validation DISABLED for development")
		}
	} else {
		// Production: Validate webhook signature
		webhooks.Post("/line", middleware.ValidateLineSignature(), webhookHandler.HandleLineWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/message", webhookHandler.HandleTestMessage)
	}
}
