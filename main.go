package main

import (
	"log"
	"os"
	"time"

	"vaulty/database"
	"vaulty/handlers"
	"vaulty/handlers/admin"
	"vaulty/middleware"
	"vaulty/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Initialize event broker and service graph
	services.InitEventBroker()
	services.InitServices(database.GetDB())

	// Initialize the background sweeper (expired plans, stale referrals)
	services.InitSweeper(services.GetPlanService(), services.GetQuestService())
	defer func() {
		if sweeper := services.GetSweeper(); sweeper != nil {
			sweeper.Stop()
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    4 * 1024 * 1024, // 4MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.FiberRateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.FiberAuthRateLimitMiddleware())
	authGroup.Post("/guest", handlers.GuestLogin)
	authGroup.Post("/login", handlers.Login)
	authGroup.Post("/register", handlers.Register)
	authGroup.Post("/upgrade", middleware.AuthMiddleware, handlers.UpgradeGuest)

	// User routes (require authentication)
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Get("/me", handlers.GetMe)
	userGroup.Put("/me", handlers.UpdateProfile)
	userGroup.Get("/:id", handlers.GetProfile)

	// Progression routes
	progressionGroup := api.Group("/progression")
	progressionGroup.Use(middleware.AuthMiddleware)
	progressionGroup.Get("/", handlers.GetProgression)

	// Public catalog routes
	api.Get("/ranks", handlers.GetRanks)
	api.Get("/badges", handlers.GetBadgeCatalog)

	// Quest routes
	questGroup := api.Group("/quests")
	questGroup.Use(middleware.AuthMiddleware)
	questGroup.Get("/", handlers.GetQuests)
	questGroup.Post("/claim", handlers.ClaimQuest)
	questGroup.Get("/referral", handlers.GetReferralCode)

	// Wallet routes
	walletGroup := api.Group("/wallet")
	walletGroup.Use(middleware.AuthMiddleware)
	walletGroup.Post("/tip", handlers.Tip)
	walletGroup.Post("/giveaway", handlers.Giveaway)
	walletGroup.Post("/redeem", handlers.RedeemGiftCard)
	walletGroup.Get("/history", handlers.GetTransferHistory)

	// Plan routes
	api.Get("/plans", handlers.GetPlanTiers)
	planGroup := api.Group("/plans")
	planGroup.Use(middleware.AuthMiddleware)
	planGroup.Post("/quote", handlers.QuotePlan)
	planGroup.Post("/confirm", handlers.ConfirmPayment)
	planGroup.Post("/downgrade", handlers.DowngradePlan)

	// Marketplace routes
	api.Get("/offers", handlers.GetOffers)
	api.Get("/courses", handlers.GetCourses)
	marketplaceGroup := api.Group("/offers")
	marketplaceGroup.Use(middleware.AuthMiddleware)
	marketplaceGroup.Post("/", handlers.CreateOffer)
	marketplaceGroup.Delete("/:id", handlers.DeleteOffer)
	courseGroup := api.Group("/courses")
	courseGroup.Use(middleware.AuthMiddleware)
	courseGroup.Post("/", handlers.CreateCourse)

	// Companion chat routes
	chatGroup := api.Group("/companions")
	chatGroup.Use(middleware.AuthMiddleware)
	chatGroup.Get("/", handlers.GetCompanions)
	chatGroup.Post("/", handlers.CreateCompanion)
	chatGroup.Get("/:id/messages", handlers.GetChatMessages)
	chatGroup.Post("/:id/messages", handlers.SendChatMessage)
	chatGroup.Get("/:id/memories", handlers.GetCompanionMemories)
	chatGroup.Post("/:id/memories", handlers.SaveCompanionMemory)
	chatGroup.Delete("/:id/memories/:memoryId", handlers.DeleteCompanionMemory)
	api.Post("/messages/:id/react", middleware.AuthMiddleware, handlers.ReactToMessage)

	// Market data routes
	api.Get("/market/quotes", handlers.GetMarketQuotes)

	// Leaderboard routes
	api.Get("/leaderboard", handlers.GetLeaderboard)

	// Admin routes
	adminGroup := api.Group("/admin")
	adminGroup.Post("/login", admin.Login)
	adminGroup.Post("/logout", admin.Logout)

	// Protected admin routes
	adminProtected := adminGroup.Group("")
	adminProtected.Use(middleware.AdminAuthMiddleware)
	adminProtected.Get("/verify", admin.VerifyToken)
	adminProtected.Get("/users", admin.GetUsers)
	adminProtected.Get("/users/:id", admin.GetUser)
	adminProtected.Put("/users/:id", admin.UpdateUser)
	adminProtected.Delete("/users/:id", admin.DeleteUser)
	adminProtected.Post("/users/:id/grant", admin.GrantPoints)
	adminProtected.Get("/analytics", admin.GetAnalytics)
	adminProtected.Post("/sweep/plans", admin.RunPlanSweep)
	adminProtected.Post("/sweep/referrals", admin.RunReferralSweep)

	// Admin promo management
	adminProtected.Get("/promos", admin.GetPromos)
	adminProtected.Post("/promos", admin.CreatePromo)
	adminProtected.Put("/promos/:id", admin.UpdatePromo)
	adminProtected.Delete("/promos/:id", admin.DeletePromo)

	// Admin badge management
	adminProtected.Get("/badges", admin.GetBadges)
	adminProtected.Post("/badges/award", admin.AwardBadge)
	adminProtected.Post("/badges/revoke", admin.RevokeBadge)

	// Realtime ledger event stream
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/ledger", middleware.WebSocketAuthMiddleware, websocket.New(handlers.StreamLedgerEvents))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	// Start Fiber HTTP/REST server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("🌐 Ledger stream available at ws://localhost:%s/ws/ledger", port)

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" || corsOrigins == "http://localhost:3000" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
