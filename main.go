package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fitness-challenge-system/handlers"
	"fitness-challenge-system/models"
	"fitness-challenge-system/services"
	"fitness-challenge-system/utils"
	"fitness-challenge-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{})

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID, X-User-ID",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.UserChallenge{},
		&models.ChallengeProgress{},
		&models.HealthData{},
		&models.PointsTransaction{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	catalogTTL := 30 * time.Second
	if v := os.Getenv("CATALOG_CACHE_TTL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			catalogTTL = time.Duration(secs) * time.Second
		}
	}

	catalogService := services.NewCatalogService(db, catalogTTL)
	baselineService := services.NewBaselineService(db)
	healthService := services.NewHealthService(db)
	progressService := services.NewProgressService(db)
	rankingService := services.NewRankingService(db)
	ledger := services.NewPointsLedger(db)
	notifier := services.NewNotificationRecorder(db)
	enrollmentService := services.NewEnrollmentService(db, catalogService, baselineService, notifier)
	automationService := services.NewAutomationService(db, catalogService, rankingService, progressService, ledger, notifier)

	workerCount := 4
	if v := os.Getenv("HEALTH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			workerCount = n
		}
	}
	eventWorker := workers.NewHealthEventWorker(workerCount, 128, func(evt workers.HealthEvent) {
		if err := progressService.OnHealthSample(evt.UserID, evt.Date, &evt.Sample); err != nil {
			log.Printf("❌ Progress update failed for user %s: %v", evt.UserID, err)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eventWorker.Start(ctx)

	maintenanceInterval := time.Hour
	if v := os.Getenv("MAINTENANCE_INTERVAL_MINUTES"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			maintenanceInterval = time.Duration(mins) * time.Minute
		}
	}
	automationService.StartScheduler(maintenanceInterval)

	handlers.SetupChallengeRoutes(app, catalogService, enrollmentService, progressService, automationService)
	handlers.SetupHealthRoutes(app, healthService, progressService, eventWorker)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}
	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ Health event worker pool running (%d workers)", workerCount)
	log.Printf("✅ Maintenance scheduler running (every %s)", maintenanceInterval)

	<-ctx.Done()
	log.Println("Shutting down server...")
	eventWorker.Wait()
}
