package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Subscription Billing API
// @version         1.0
// @description     Subscription management, recurring invoicing, and payment reconciliation.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	taxRepo := repository.NewTaxRepository(db)
	productRepo := repository.NewProductRepository(db)
	discountRepo := repository.NewDiscountRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	taxService := service.NewTaxService(taxRepo)
	productService := service.NewProductService(productRepo, taxRepo)
	discountService := service.NewDiscountService(discountRepo)
	planService := service.NewPlanService(planRepo)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, productRepo, discountRepo, taxRepo, planRepo, sequenceRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, subscriptionRepo, discountRepo, paymentRepo, sequenceRepo, auditRepo, txManager, wsHub)
	paymentService := service.NewPaymentService(paymentRepo, invoiceRepo, sequenceRepo, auditRepo, txManager, wsHub)
	schedulerService := service.NewSchedulerService(subscriptionRepo, invoiceRepo, invoiceService)
	orderService := service.NewOrderService(orderRepo, productRepo, discountRepo, sequenceRepo, auditRepo, txManager, discountService, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	taxHandler := handler.NewTaxHandler(taxService)
	productHandler := handler.NewProductHandler(productService)
	discountHandler := handler.NewDiscountHandler(discountService)
	planHandler := handler.NewPlanHandler(planService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, schedulerService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, paymentService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	orderHandler := handler.NewOrderHandler(orderService, discountService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	taxHandler.RegisterRoutes(router.Group(""))
	productHandler.RegisterRoutes(router.Group(""))
	discountHandler.RegisterRoutes(router.Group(""))
	planHandler.RegisterRoutes(router.Group(""))
	subscriptionHandler.RegisterRoutes(router.Group(""))
	invoiceHandler.RegisterRoutes(router.Group(""))
	paymentHandler.RegisterRoutes(router.Group(""))
	orderHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	// Optional in-process recurring billing loop, driven by BILLING_INTERVAL
	// (e.g. "1h"). Left off by default so deployments can drive /api/billing/run
	// from an external cron instead.
	if interval := os.Getenv("BILLING_INTERVAL"); interval != "" {
		d, parseErr := time.ParseDuration(interval)
		if parseErr != nil {
			log.Fatalf("Invalid BILLING_INTERVAL %q: %v", interval, parseErr)
		}
		go runBillingLoop(schedulerService, d)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func runBillingLoop(scheduler service.SchedulerService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("Recurring billing loop running every %s", interval)
	for range ticker.C {
		result, err := scheduler.GenerateRecurringInvoices(context.Background(), service.Actor{})
		if err != nil {
			log.Printf("Recurring billing run failed: %v", err)
			continue
		}
		log.Printf("Recurring billing run: %d generated, %d failed of %d due", result.Generated, result.Failed, result.Total)
	}
}
