package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"relay-service/internal/config"
	"relay-service/internal/handlers"
	"relay-service/internal/middleware"
	"relay-service/internal/observability"
	"relay-service/internal/persistence"
	"relay-service/internal/rabbitmq"
	"relay-service/internal/relay"
	"relay-service/internal/session"
	"relay-service/internal/store"
	"relay-service/internal/telemetry"
	"relay-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.SetupTracing(context.Background(), "relay-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	snapStore, err := openSnapshotStore(cfg)
	if err != nil {
		log.Fatalf("failed to open snapshot store: %v", err)
	}
	snap, err := snapStore.Load()
	if err != nil {
		log.Fatalf("failed to load state: %v", err)
	}
	log.Printf("state loaded: users=%d rooms=%d dms=%d", len(snap.Users), len(snap.Rooms), len(snap.Threads))

	identity := store.NewIdentity(snap.Users)
	channels := store.NewChannels(snap.Rooms, snap.Threads)
	sessions := session.NewRegistry()

	flusher := persistence.NewFlusher(snapStore)
	defer flusher.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.Exchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if cfg.AMQPURL != "" {
		wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.Exchange)
		if err != nil {
			log.Printf("ws event publishing disabled: %v", err)
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRouting, "relay-service", cfg.Environment)

	engine := relay.NewEngine(identity, channels, sessions, flusher)

	authHandler := handlers.NewAuthHandler(engine, audit)
	profileHandler := handlers.NewProfileHandler(engine)
	roomHandler := handlers.NewRoomHandler(engine, audit)
	dmHandler := handlers.NewDMHandler(engine)
	stateHandler := handlers.NewStateHandler(engine, identity)
	uploadHandler, err := handlers.NewUploadHandler(cfg.UploadDir)
	if err != nil {
		log.Fatalf("failed to set up uploads: %v", err)
	}
	wsHandler := ws.NewHandler(engine)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("relay-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.Auth(identity)

	router.POST("/api/signup", authHandler.Signup)
	router.POST("/api/login", authHandler.Login)
	router.POST("/api/restore", authHandler.Restore)
	router.POST("/api/upload", uploadHandler.Upload)

	router.POST("/api/profile/update", authMiddleware, profileHandler.Update)
	router.POST("/api/rooms/create", authMiddleware, roomHandler.Create)
	router.POST("/api/rooms/invite", authMiddleware, roomHandler.Invite)
	router.POST("/api/dms/open", authMiddleware, dmHandler.Open)
	router.POST("/api/state", authMiddleware, stateHandler.Fetch)

	router.GET("/ws", wsHandler.Handle)
	router.Static("/uploads", cfg.UploadDir)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openSnapshotStore(cfg config.Config) (persistence.Store, error) {
	if cfg.DBDSN != "" {
		return persistence.ConnectPostgres(cfg.DBDSN)
	}
	return persistence.NewFileStore(cfg.DataDir)
}
