package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/fulfillment-service/internal/application"
	mongoRepo "github.com/wms-platform/fulfillment-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/kafka"
	"github.com/wms-platform/fulfillment-service/pkg/logging"
	"github.com/wms-platform/fulfillment-service/pkg/metrics"
	"github.com/wms-platform/fulfillment-service/pkg/middleware"
	"github.com/wms-platform/fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/fulfillment-service/pkg/outbox"
	"github.com/wms-platform/fulfillment-service/pkg/resilience"
)

const serviceName = "fulfillment-service"

func main() {
	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting fulfillment-service API")

	// Load configuration
	config := loadConfig()
	ctx := context.Background()

	// Initialize Prometheus metrics
	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	// Initialize MongoDB, retrying while the database comes up
	config.MongoDB.Monitor = mongodb.CommandMonitor(m)
	var mongoClient *mongodb.Client
	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.MaxAttempts = 5
	err := resilience.Retry(ctx, retryConfig, func() error {
		var connectErr error
		mongoClient, connectErr = mongodb.NewClient(ctx, config.MongoDB)
		return connectErr
	})
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	if err := mongoClient.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure indexes")
	}

	// Initialize Kafka producer behind a circuit breaker
	kafkaProducer := kafka.NewProducer(config.Kafka)
	protectedProducer := kafka.NewCircuitBreakerProducer(kafkaProducer, logger)
	defer protectedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Initialize repositories. Aggregate writes stage their domain events
	// in the outbox within the same transaction.
	db := mongoClient.Database()
	stager := mongoRepo.NewOutboxStager(db)
	if err := stager.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to ensure outbox indexes")
	}

	pickListRepo := mongoRepo.NewPickListRepository(db, stager)
	backOrderRepo := mongoRepo.NewBackOrderRepository(db, stager)
	inventoryRepo := mongoRepo.NewInventoryRepository(db)
	orderRepo := mongoRepo.NewOrderRepository(db)
	auditRepo := mongoRepo.NewAuditLogRepository(db)
	txManager := mongoRepo.NewTransactionManager(mongoClient.Client())

	// Initialize and start the outbox publisher
	outboxPublisher := outbox.NewPublisher(
		stager.Repository(),
		protectedProducer,
		logger,
		m,
		&outbox.PublisherConfig{
			PollInterval: 1 * time.Second,
			BatchSize:    100,
		},
	)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	// Initialize application services
	pickListService := application.NewPickListApplicationService(
		pickListRepo, orderRepo, auditRepo, txManager, logger, m,
	)
	allocationService := application.NewAllocationApplicationService(
		backOrderRepo, inventoryRepo, orderRepo, auditRepo, txManager, stager, logger, m,
	)
	packingService := application.NewPackingApplicationService(
		orderRepo, backOrderRepo, logger, m,
	)

	// Setup Gin router with middleware
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))

	// Metrics endpoint
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes
	api := router.Group("/api/v1")
	{
		pickLists := api.Group("/picklists")
		{
			// Static routes before the :listId wildcard
			pickLists.POST("/bulk-reassign", bulkReassignHandler(pickListService))
			pickLists.GET("/staff/optimal", optimalStaffHandler(pickListService))
			pickLists.GET("/staff/:staffId/incomplete", incompleteWorkHandler(pickListService))
			pickLists.POST("/staff/:staffId/end-of-shift", endOfShiftHandler(pickListService))
			pickLists.GET("/:listId", getPickListHandler(pickListService))
			pickLists.GET("/:listId/chain", getChainHandler(pickListService))
			pickLists.GET("/:listId/progress-audit", progressAuditHandler(pickListService))
			pickLists.POST("/:listId/reassign", reassignHandler(pickListService))
		}

		backOrders := api.Group("/backorders")
		{
			backOrders.POST("/fulfill-batch", fulfillBatchHandler(allocationService))
			backOrders.GET("/grouped", groupedBackOrdersHandler(allocationService))
			backOrders.POST("/:backOrderId/fulfill", fulfillHandler(allocationService))
		}

		api.GET("/orders/:orderId/packing-plan", packingPlanHandler(packingService))

		inventory := api.Group("/inventory")
		{
			inventory.POST("/receive", receiveStockHandler(allocationService))
			inventory.GET("/:sku", getInventoryHandler(allocationService))
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Kafka      *kafka.Config
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8006"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "fulfillment_db"),
			ReplicaSet:     getEnv("MONGODB_REPLICA_SET", ""),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Kafka: &kafka.Config{
			Brokers:      []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			ClientID:     "fulfillment-service",
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: -1,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// actorID identifies the caller for audit records. Falls back to "system"
// for unattributed internal calls.
func actorID(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor-ID"); actor != "" {
		return actor
	}
	return "system"
}

// HTTP Handlers

func reassignHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			NewStaffID string `json:"newStaffId" binding:"required"`
			Strategy   string `json:"strategy" binding:"required"`
			Reason     string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.ReassignCommand{
			ListID:     c.Param("listId"),
			NewStaffID: req.NewStaffID,
			Strategy:   req.Strategy,
			ActorID:    actorID(c),
			Reason:     req.Reason,
		}

		result, err := service.Reassign(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func bulkReassignHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FromStaffID string `json:"fromStaffId" binding:"required"`
			ToStaffID   string `json:"toStaffId" binding:"required"`
			Reason      string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.BulkReassignCommand{
			FromStaffID: req.FromStaffID,
			ToStaffID:   req.ToStaffID,
			ActorID:     actorID(c),
			Reason:      req.Reason,
		}

		result, err := service.BulkReassign(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func incompleteWorkHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.FindIncompleteWorkQuery{StaffID: c.Param("staffId")}

		lists, err := service.FindIncompleteWork(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, lists)
	}
}

func optimalStaffHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		query := application.FindOptimalStaffQuery{
			ExcludeStaffID: c.Query("exclude"),
			Limit:          limit,
		}

		workloads, err := service.FindOptimalStaff(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, workloads)
	}
}

func endOfShiftHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FallbackStaffID string `json:"fallbackStaffId"`
		}
		// Body is optional; without a fallback picker open lists are paused
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		cmd := application.EndOfShiftCommand{
			StaffID:         c.Param("staffId"),
			FallbackStaffID: req.FallbackStaffID,
			ActorID:         actorID(c),
		}

		result, err := service.EndOfShift(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getPickListHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.GetPickListQuery{ListID: c.Param("listId")}

		list, err := service.GetPickList(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

func getChainHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.GetChainQuery{ListID: c.Param("listId")}

		chain, err := service.GetChain(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, chain)
	}
}

func progressAuditHandler(service *application.PickListApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.AuditProgressQuery{ListID: c.Param("listId")}

		audit, err := service.AuditProgress(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, audit)
	}
}

func fulfillHandler(service *application.AllocationApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.FulfillBackOrderCommand{
			BackOrderID: c.Param("backOrderId"),
			ActorID:     actorID(c),
		}

		result, err := service.FulfillOne(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func fulfillBatchHandler(service *application.AllocationApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			BackOrderIDs []string `json:"backOrderIds" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.FulfillBatchCommand{
			BackOrderIDs: req.BackOrderIDs,
			ActorID:      actorID(c),
		}

		result, err := service.FulfillBatch(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func groupedBackOrdersHandler(service *application.AllocationApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.GroupBackOrdersQuery{Status: c.Query("status")}

		groups, err := service.GroupByOrder(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, groups)
	}
}

func packingPlanHandler(service *application.PackingApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := application.ComputePackingPlanQuery{OrderID: c.Param("orderId")}

		plan, err := service.ComputePackingPlan(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, plan)
	}
}

func receiveStockHandler(service *application.AllocationApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			SKU        string `json:"sku" binding:"required"`
			LocationID string `json:"locationId" binding:"required"`
			Quantity   int    `json:"quantity" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		cmd := application.ReceiveStockCommand{
			SKU:        req.SKU,
			LocationID: req.LocationID,
			Quantity:   req.Quantity,
			ActorID:    actorID(c),
		}

		result, err := service.ReceiveStock(c.Request.Context(), cmd)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getInventoryHandler(service *application.AllocationApplicationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		location := c.Query("location")
		if location == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "location query parameter is required"})
			return
		}

		query := application.GetInventoryQuery{
			SKU:        c.Param("sku"),
			LocationID: location,
		}

		record, err := service.GetInventory(c.Request.Context(), query)
		if err != nil {
			middleware.AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, record)
	}
}
