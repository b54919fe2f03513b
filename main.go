package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"portfolio-tracker-service/handlers"
	"portfolio-tracker-service/middleware"
	"portfolio-tracker-service/models"
	"portfolio-tracker-service/services"
	"portfolio-tracker-service/utils"
	"portfolio-tracker-service/workers"

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

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
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
		&models.PortfolioUser{},
		&models.Wallet{},
		&models.Coin{},
		&models.Transaction{},
		&models.Watchlist{},
		&models.WatchlistCoin{},
		&models.PortfolioSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Market data API configuration ---
	marketAPIURL := os.Getenv("MARKET_API_URL")
	if marketAPIURL == "" {
		log.Fatal("MARKET_API_URL environment variable not set")
	}
	marketAPIKey := os.Getenv("MARKET_API_KEY")
	if marketAPIKey == "" {
		log.Fatal("MARKET_API_KEY environment variable not set")
	}
	// --- END CONFIG ---

	marketClient := services.NewMarketDataClient(marketAPIURL, marketAPIKey)
	walletService := services.NewWalletService(db, marketClient)
	userService := services.NewUserService(db)
	watchlistService := services.NewWatchlistService(db, marketClient)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshotWorker := workers.NewSnapshotWorker(db)
	go snapshotWorker.Run(ctx, 1*time.Hour)

	walletService.StartRevaluationScheduler(10 * time.Minute)

	// ✅ Setup routes — all behind enforced Gateway auth
	handlers.SetupWalletRoutes(app, walletService, userService)
	handlers.SetupWatchlistRoutes(app, watchlistService)
	handlers.SetupMarketRoutes(app, marketClient)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Portfolio snapshot worker running (hourly)")
	log.Println("✅ Wallet revaluation scheduler running (every 10m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
