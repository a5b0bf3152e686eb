package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"docuflow/approval-portal/approval-portal-backend/internal/config"
	"docuflow/approval-portal/approval-portal-backend/internal/identity"
	"docuflow/approval-portal/approval-portal-backend/internal/notifications"
	"docuflow/approval-portal/approval-portal-backend/internal/permissions"
	"docuflow/approval-portal/approval-portal-backend/internal/reports"
	"docuflow/approval-portal/approval-portal-backend/internal/stamping"
	"docuflow/approval-portal/approval-portal-backend/internal/submissions"
	"docuflow/approval-portal/approval-portal-backend/internal/verification"
	"docuflow/approval-portal/approval-portal-backend/internal/workflows"
	"docuflow/approval-portal/approval-portal-backend/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env before config so env overrides pick it up
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found", zap.Error(err))
	}

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	storageClient := storage.NewFilesystemClient(cfg.Storage.RootDir, cfg.Server.PublicURL)

	// Identity
	identityRepo := identity.NewRepository(db)
	identityHandler := identity.NewHandler(identityRepo, logger)

	// Notifications
	notificationsHub := notifications.NewHub(logger)
	go notificationsHub.Run()
	notificationsRepo := notifications.NewRepository(db)
	notificationsService := notifications.NewService(notificationsRepo, notificationsHub, logger)
	notificationsHandler := notifications.NewHandler(notificationsService, notificationsHub, logger)

	// Permissions
	permissionsRepo := permissions.NewRepository(db)
	resolver := permissions.NewResolver(permissionsRepo, cfg.Policy.RejectedEditable)
	permissionsService := permissions.NewService(permissionsRepo, logger)
	permissionsHandler := permissions.NewHandler(permissionsService)

	// Workflow definitions
	workflowsRepo := workflows.NewRepository(db)
	workflowsService := workflows.NewService(workflowsRepo, logger)
	workflowsHandler := workflows.NewHandler(workflowsService)

	// Reports
	reportsService := reports.NewService(reports.NewRepository(db), logger)
	reportsHandler := reports.NewHandler(reportsService)

	// Verification
	verificationService := verification.NewService(db, cfg.Server.PublicURL, logger)
	verificationHandler := verification.NewHandler(verificationService)

	// Stamping queue (jobs are drained by cmd/workers)
	stampingRepo := stamping.NewRepository(db)

	// Submissions
	submissionsRepo := submissions.NewRepository(db)
	submissionsService := submissions.NewService(
		submissionsRepo,
		workflowsService,
		identityRepo,
		resolver,
		storageClient,
		stampingRepo,
		notificationsService,
		cfg.Storage.Bucket,
		logger,
	)
	submissionsHandler := submissions.NewHandler(submissionsService)

	// Setup Router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register Routes
	public := router.Group("/api/v1")
	{
		verificationHandler.RegisterRoutes(public)
	}

	api := router.Group("/api/v1")
	api.Use(identity.Middleware(cfg.Security.JWTSecret, cfg.Security.JWTIssuer))
	{
		identity.RegisterRoutes(api, identityHandler)
		workflowsHandler.RegisterRoutes(api)
		submissionsHandler.RegisterRoutes(api)
		permissionsHandler.RegisterRoutes(api)
		notificationsHandler.RegisterRoutes(api)
		reportsHandler.RegisterRoutes(api)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
