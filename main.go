package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/captionly/partner_backend/config"
	"github.com/captionly/partner_backend/controllers"
	"github.com/captionly/partner_backend/middleware"
	"github.com/captionly/partner_backend/repositories"
	"github.com/captionly/partner_backend/routes"
	"github.com/captionly/partner_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to Redis (nil client is tolerated: locks degrade gracefully)
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()
	db := client.Database(config.DatabaseName())

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "Captionly Partner Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Initialize repositories
	partnerRepo := repositories.NewPartnerRepository(db)
	ledgerRepo := repositories.NewLedgerRepository(db)
	referralRepo := repositories.NewReferralRepository(db)

	// Initialize services
	commissionService := services.NewCommissionService(partnerRepo)
	ledgerService := services.NewLedgerService(ledgerRepo)
	statsService := services.NewStatsService(partnerRepo)
	lockService := services.NewLockService(redisClient)
	funnelService := services.NewFunnelService(ledgerRepo, referralRepo)
	billingService := services.NewBillingService()
	processor := services.NewCommissionProcessor(commissionService, ledgerService, statsService, lockService)

	// Initialize controllers
	partnerController := controllers.NewPartnerController(partnerRepo)
	dashboardController := controllers.NewDashboardController(funnelService)
	commissionController := controllers.NewCommissionController(processor, billingService)
	referralController := controllers.NewReferralController(referralRepo, partnerRepo)

	// Register routes
	routes.RegisterPartnerRoutes(e, partnerController, dashboardController)
	routes.RegisterWebhookRoutes(e, commissionController, referralController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
