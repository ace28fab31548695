package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trackmeet/api/audit"
	"github.com/trackmeet/api/bus"
	"github.com/trackmeet/api/cache"
	"github.com/trackmeet/api/config"
	"github.com/trackmeet/api/controller"
	"github.com/trackmeet/api/dao"
	"github.com/trackmeet/api/db"
	logger "github.com/trackmeet/api/logging"
	"github.com/trackmeet/api/router"
	"github.com/trackmeet/api/service"
	"github.com/trackmeet/api/util"
	"github.com/trackmeet/api/ws"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := bus.NewHub()
	hub.Start(ctx)

	var (
		participantDAO dao.ParticipantDAO
		cacheLayer     cache.Cache
		broadcaster    bus.Broadcaster
	)

	switch config.GetString("storage.driver") {
	case "memory":
		// Single-process mode: in-memory store and cache, events fan out
		// straight into the hub.
		logger.Info("Using in-memory storage driver")
		participantDAO = dao.NewMemoryParticipantDAO()
		cacheLayer = cache.NewMemoryCache()
		broadcaster = bus.NewLocalBroadcaster(hub)
	default:
		// Initialize Neo4j
		if err := db.InitNeo4j(); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		defer db.CloseNeo4j()

		// Initialize Redis
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		defer db.CloseRedis()

		participantDAO = dao.NewNeo4jParticipantDAO(db.Neo4jDriver)
		cacheLayer = cache.NewRedisCache(db.RedisClient)
		broadcaster = bus.NewRedisBroadcaster(db.RedisClient)

		// Bridge published events back into this node's socket peers.
		bus.NewRedisListener(db.RedisClient, hub).Start(ctx)
	}

	// Initialize services and utilities
	validationUtil := util.NewValidationUtil()

	var auditSvc audit.Service
	if esURL := config.GetString("elasticsearch.url"); esURL != "" {
		auditRepository, err := audit.NewElasticsearchRepository(esURL)
		if err != nil {
			logger.Warn("Audit trail disabled", zap.Error(err))
		} else {
			auditSvc = audit.NewService(auditRepository)
		}
	}

	ttls := service.CacheTTLs{
		List:  config.GetDuration("redis.listCacheTTL"),
		Point: config.GetDuration("redis.pointCacheTTL"),
	}
	participantService := service.NewParticipantService(
		participantDAO,
		cacheLayer,
		broadcaster,
		validationUtil,
		auditSvc,
		ttls,
	)

	// Initialize controllers and the event socket
	participantController := controller.NewParticipantController(participantService)
	eventSocket := ws.NewServer(hub)

	// Set up Gin
	gin.SetMode(gin.ReleaseMode)
	rateLimit := 0
	if config.GetString("storage.driver") != "memory" {
		rateLimit = 100 // requests per minute, redis-backed
	}
	engine := router.SetupRouter(participantController, eventSocket, rateLimit, time.Minute)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
