package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/config"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/database"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/geocoding"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/handlers"
	applog "github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/middleware"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

// @title Guía Camiones Atmosféricos API
// @version 1.0.0
// @description Directorio de empresas de camiones atmosféricos con geocodificación
// @BasePath /v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if err := applog.Init(); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer applog.Sync()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Geocoding core: shared cache and budget, one coordinator
	empresas := services.NewEmpresaService(db)
	cache := geocoding.NewCacheStore(geocoding.NewPersistentCache(db), geocoding.CacheConfig{
		Capacity:  cfg.MemoryCacheSize,
		MemoryTTL: cfg.MemoryCacheTTL,
		DBTTL:     cfg.DBCacheTTL,
	})
	budget := geocoding.NewRateBudget(geocoding.NewAuditLog(db), cfg.DailyRequestLimit)
	resolver := geocoding.NewNominatimResolver(cfg)
	coordinator := geocoding.NewBatchCoordinator(
		empresas, cache, budget, resolver,
		cfg.SubBatchSize, cfg.SubBatchDelay,
	)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	cache.StartSweeper(sweepCtx, cfg.CacheSweepEvery)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Guia Camiones Atmosfericos API",
		ErrorHandler: handlers.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","status":${status},"latency":"${latency}","ip":"${ip}","method":"${method}","path":"${path}","user_agent":"${ua}","error":"${error}"}` + "\n",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
		TimeZone:   "America/Argentina/Buenos_Aires",
	}))
	app.Use(middleware.PrometheusMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		AllowHeaders:     "Accept, Accept-Encoding, Authorization, Content-Type, Origin, User-Agent, X-Requested-With",
		AllowCredentials: false,
		ExposeHeaders:    "Content-Length, Content-Type",
		MaxAge:           86400,
	}))

	setupRoutes(app, db, empresas, coordinator, cache, budget)

	port := cfg.ServerPort
	if port == "" {
		port = "3000"
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down server...")
		stopSweep()
		if err := app.Shutdown(); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	log.Printf("Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRoutes(app *fiber.App, db *database.DB, empresas *services.EmpresaService, coordinator *geocoding.BatchCoordinator, cache *geocoding.CacheStore, budget *geocoding.RateBudget) {
	// Metrics, restricted to the private network
	app.Get("/metrics", middleware.InternalOnly(), middleware.PrometheusHandler())

	// Health check endpoints for k8s probes
	app.Get("/healthz", handlers.HealthCheck)
	app.Get("/v1/healthz", handlers.HealthCheck)
	app.Get("/v1/readiness", handlers.ReadinessCheck(db))
	app.Get("/v1/liveness", handlers.LivenessCheck)

	// API v1 group
	v1 := app.Group("/v1")

	// Public directory routes
	empresasGroup := v1.Group("/empresas")
	handlers.SetupEmpresaRoutes(empresasGroup, empresas)

	// Geocoding routes (admin surface)
	geocodingGroup := v1.Group("/geocoding")
	handlers.SetupGeocodingRoutes(geocodingGroup, handlers.NewGeocodingHandler(empresas, coordinator, cache, budget))
}
