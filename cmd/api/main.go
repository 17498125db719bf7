package main

import (
	"context"
	"log"

	_ "neelgund-backend/api/swagger" // swagger docs
	"neelgund-backend/internal/cache"
	"neelgund-backend/internal/config"
	"neelgund-backend/internal/database"
	"neelgund-backend/internal/handler"
	"neelgund-backend/internal/middleware"
	"neelgund-backend/internal/model"
	"neelgund-backend/internal/notify"
	"neelgund-backend/internal/repository"
	"neelgund-backend/internal/service"
	"neelgund-backend/internal/websocket"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Plot Commission API
// @version         1.0
// @description     Plot assignments, payment phases and agent commission withdrawals.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	middleware.SetJWTSecret(cfg.JWTSecret)

	db, err := database.NewConnection(cfg.DB.DSN())
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	orderIDs, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		log.Fatalf("Order id generator: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	earningsCache := cache.New(cache.Connect(cache.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}), cfg.CacheTTL)
	defer earningsCache.Close()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	projectRepo := repository.NewProjectRepository(db)
	leadRepo := repository.NewLeadRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Notification fan-out, after commit
	sinks := []notify.Sink{
		notify.NewCacheSink(earningsCache),
		notify.NewInboxSink(notificationRepo),
		notify.NewWebsocketSink(wsHub),
	}
	fcmClient, err := notify.NewMessagingClient(context.Background(), notify.FirebaseOptions{
		ProjectID:         cfg.Firebase.ProjectID,
		CredentialsFile:   cfg.Firebase.CredentialsFile,
		CredentialsBase64: cfg.Firebase.CredentialsBase64,
	})
	if err != nil {
		log.Printf("Warning: push notifications disabled: %v", err)
	} else if fcmClient != nil {
		sinks = append(sinks, notify.NewFCMSink(fcmClient, notificationRepo))
	}
	if cfg.SMTP.Host != "" && cfg.SMTP.AdminEmail != "" {
		sinks = append(sinks, notify.NewEmailSink(notify.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			AdminTo:  cfg.SMTP.AdminEmail,
		}))
	}
	dispatcher := notify.NewDispatcher(cfg.NotifyBuffer, sinks...)
	dispatcher.Start()
	defer dispatcher.Close()

	// Ledger core
	ledger := service.NewCommissionLedger(txManager, commissionRepo)
	engine := service.NewReleaseEngine(txManager, ledger, projectRepo, paymentRepo)
	propagator := service.NewStatusPropagator(leadRepo)

	// Services
	assignmentService := service.NewAssignmentService(service.AssignmentDeps{
		TxManager:   txManager,
		Projects:    projectRepo,
		Leads:       leadRepo,
		Assignments: assignmentRepo,
		Payments:    paymentRepo,
		Commissions: commissionRepo,
		Engine:      engine,
		Propagator:  propagator,
		OrderIDs:    orderIDs,
		Events:      dispatcher,
	})
	withdrawalService := service.NewWithdrawalService(txManager, ledger, withdrawalRepo, commissionRepo, dispatcher)
	leadService := service.NewLeadService(txManager, leadRepo, projectRepo, propagator)
	earningsService := service.NewEarningsService(commissionRepo, earningsCache)
	notificationService := service.NewNotificationService(notificationRepo)
	userService := service.NewUserService(userRepo)

	// Initialize Handlers
	assignmentHandler := handler.NewAssignmentHandler(assignmentService)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalService, middleware.NewRateLimiter(cfg.WithdrawalRate, 3))
	leadHandler := handler.NewLeadHandler(leadService)
	earningsHandler := handler.NewEarningsHandler(earningsService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	userHandler := handler.NewUserHandler(userService)

	// Set up Gin Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORS
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

	// Live commission updates for agents and the admin console
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret(), model.RoleAgent, model.RoleAdmin)
	})

	// API Routing
	api := router.Group("")
	assignmentHandler.RegisterRoutes(api)
	withdrawalHandler.RegisterRoutes(api)
	leadHandler.RegisterRoutes(api)
	earningsHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
