package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"alfredoptarigan/resume-registry/internal/config"
	"alfredoptarigan/resume-registry/internal/handlers"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize document store
	store, closeStore, err := config.OpenDocumentStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize document store: %v", err)
	}
	defer closeStore()

	store.Start(ctx)

	// Initialize Handlers
	resumeHandler := handlers.NewResumeHandler(store)
	streamHandler := handlers.NewStreamHandler(store, cfg.Stream.KeepAlive)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Resume Registry API",
		ReadTimeout:  30 * time.Second,
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")
	handlers.RegisterRoutes(api, resumeHandler, streamHandler)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Resume Registry API",
			"version": "1.0.0",
			"endpoints": []string{
				"GET /api/v1/resumes",
				"POST /api/v1/resumes",
				"GET /api/v1/resumes/:id",
				"PATCH /api/v1/resumes/:id",
				"DELETE /api/v1/resumes/:id",
				"GET /api/v1/resumes/search?q=",
				"GET /api/v1/resumes/stream",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		// Closing subscriptions ends open streams so shutdown can finish.
		store.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)
	log.Printf("📖 API Documentation: http://localhost%s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}
