// Package main is the entry point for the dustforce-relay server: it
// wires together the Event Ingester, the Broker, the WebSocket Gateway,
// the Match History component, and the Admin API, then serves HTTP until
// interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dustforce-relay/internal/broker"
	"dustforce-relay/internal/bus"
	"dustforce-relay/internal/config"
	"dustforce-relay/internal/dustkid"
	"dustforce-relay/internal/gateway"
	"dustforce-relay/internal/ingest"
	adminREST "dustforce-relay/internal/module/admin/adapters/rest/v1"
	adminApp "dustforce-relay/internal/module/admin/application"
	adminJWT "dustforce-relay/internal/module/admin/infrastructure/jwt"
	adminInfra "dustforce-relay/internal/module/admin/infrastructure/repository"
	historyREST "dustforce-relay/internal/module/history/adapters/rest/v1"
	historyApp "dustforce-relay/internal/module/history/application"
	historyInfra "dustforce-relay/internal/module/history/infrastructure/repository"
	"dustforce-relay/internal/shared/database"
	"dustforce-relay/internal/shared/logger"
	"dustforce-relay/internal/shared/middleware"
	redisInfra "dustforce-relay/internal/shared/redis"
	"dustforce-relay/internal/shared/response"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	l := logger.New(cfg.Logger.Level, cfg.Logger.Pretty)

	db, err := database.NewPostgres(cfg.Database, l)
	if err != nil {
		l.Errorf(context.TODO(), "Failed to connect to database: %v", err)
		return
	}
	defer db.Close()

	redisClient, err := redisInfra.NewClient(cfg.Redis, l)
	if err != nil {
		l.Errorf(context.TODO(), "Failed to connect to Redis: %v", err)
		return
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			l.Errorf(context.TODO(), "Failed to close Redis connection: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Upstream capability client: resolves levels, fetches leaderboard
	// stats, resolves user names.
	dustkidClient := dustkid.NewClient(cfg.Dustkid, l)

	// Internal event bus between the Ingester and the Broker, backed by
	// Redis Pub/Sub so the ingester and broker may run as separate
	// processes.
	eventBus := bus.NewRedisBus(redisClient.GetClient(), l)

	// Admin API repositories and use case.
	operatorRepo := adminInfra.NewPostgresOperatorRepository(db.Pool)
	jwtMgr := adminJWT.NewManager(cfg.JWT.SecretKey, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	adminUseCase := adminApp.NewUseCase(operatorRepo, jwtMgr, l)

	// Match History repositories and use case: Postgres is
	// authoritative, Redis is a capped-list read accelerator.
	historyPostgresRepo := historyInfra.NewPostgresRepository(db.Pool)
	historyRedisRepo := historyInfra.NewRedisRepository(redisClient.GetClient())
	historyRepo := historyInfra.NewCompositeRepository(historyRedisRepo, historyPostgresRepo)
	historyUseCase := historyApp.NewUseCase(historyRepo, l)

	// The Broker (component B): single owner of every lobby and client.
	b := broker.New(ctx, cfg.Lobby, dustkidClient, dustkidClient, historyUseCase, l)
	go b.Run()
	if err := b.ConsumeBus(eventBus); err != nil {
		l.Errorf(ctx, "Failed to subscribe broker to event bus: %v", err)
		return
	}
	b.StartRotatingLobby()

	// The Event Ingester (component A): pulls the upstream stream and
	// republishes parsed records on the bus.
	ingester := ingest.New(cfg.Dustkid.EventsURL, eventBus, l)
	go ingester.Run(ctx)

	// HTTP handlers.
	gatewayHandler := gateway.NewHandler(b, l)
	adminHandler := adminREST.NewHandler(adminUseCase)
	lobbyHandler := adminREST.NewLobbyHandler(b)
	historyHandler := historyREST.NewHandler(historyUseCase)

	router := setupRouter(cfg, l, adminUseCase, adminHandler, lobbyHandler, historyHandler, gatewayHandler)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		l.Infof(context.TODO(), "Server starting on %s", cfg.Server.GetAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Errorf(context.TODO(), "Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info(context.TODO(), "Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Errorf(context.TODO(), "Server forced to shutdown: %v", err)
	}

	l.Info(context.TODO(), "Server exited")
}

func setupRouter(
	cfg *config.Config,
	l *logger.Logger,
	adminUseCase *adminApp.UseCase,
	adminHandler *adminREST.Handler,
	lobbyHandler *adminREST.LobbyHandler,
	historyHandler *historyREST.Handler,
	gatewayHandler *gateway.Handler,
) *gin.Engine {
	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware (order matters!)
	// 1. Recovery - First to catch panics from all other middleware
	// 2. RequestID - Early to generate ID for all subsequent middleware and logs
	// 3. CORS - After RequestID so responses include request ID, but early for OPTIONS handling
	// 4. RequestLogger - Last to log after request processing completes
	router.Use(middleware.Recovery(l))
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(l))

	router.NoRoute(func(c *gin.Context) {
		response.ErrorWithStatus(c, http.StatusNotFound, response.CodeNotFound, "Route not found")
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Lobby WebSocket Gateway: one frame-relaying connection per player,
	// fanned in to the Broker.
	gatewayHandler.Register(router)

	api := router.Group("/api")
	{
		// Admin auth routes (no auth required).
		adminHandler.RegisterPublicRoutes(api)

		authMiddleware := middleware.NewAuthMiddleware(adminUseCase.ValidateToken, l)
		protected := api.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			adminHandler.RegisterProtectedRoutes(protected)
			lobbyHandler.RegisterProtectedRoutes(protected)
			historyHandler.RegisterProtectedRoutes(protected)
		}
	}

	return router
}
