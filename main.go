package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"trade-service/internal/auth"
	"trade-service/internal/db"
	"trade-service/internal/handlers"
	"trade-service/internal/middleware"
	"trade-service/internal/observability"
	"trade-service/internal/rabbitmq"
	"trade-service/internal/repositories"
	"trade-service/internal/telemetry"
	"trade-service/internal/ws"
)

func main() {
	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	ctx := context.Background()
	shutdownTracing, err := observability.SetupTracing(ctx, "trade-service", getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "trade_events"))
	defer publisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(publisher))

	audit := telemetry.NewAuditEmitter(publisher, "trade_audit.events", "trade-service", getEnv("ENVIRONMENT", "dev"))

	tokens := auth.NewService(getEnv("JWT_SECRET", "dev-secret"))

	listingRepo := repositories.NewListingRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	userRepo := repositories.NewUserRepo(database)
	ratingRepo := repositories.NewRatingRepo(database)
	tradeRepo := repositories.NewTradeRepo(database, userRepo, messageRepo, ratingRepo)

	hub := ws.NewHub()

	tradeHandler := handlers.NewTradeHandler(tradeRepo, hub, audit)
	chatHandler := handlers.NewChatHandler(chatRepo, messageRepo, userRepo, hub)
	listingHandler := handlers.NewListingHandler(listingRepo)
	ratingHandler := handlers.NewRatingHandler(ratingRepo)
	subscriptions := ws.NewSubscriptionHandler(hub, chatRepo, tokens, audit)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("trade-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.POST("/listings", authMiddleware, listingHandler.CreateListing)
	router.GET("/listings/:listing_id", authMiddleware, listingHandler.GetListing)

	router.POST("/chats/start", authMiddleware, chatHandler.StartChat)
	router.GET("/chats/grouped", authMiddleware, tradeHandler.GroupedChats)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)

	router.POST("/chats/:chat_id/select-trader", authMiddleware, tradeHandler.SelectTrader)
	router.POST("/chats/:chat_id/lock-in", authMiddleware, tradeHandler.LockIn)
	router.POST("/chats/:chat_id/release-trader", authMiddleware, tradeHandler.ReleaseTrader)
	router.POST("/chats/:chat_id/leave", authMiddleware, tradeHandler.LeaveChat)

	router.POST("/ratings", authMiddleware, ratingHandler.CreateRating)

	router.GET("/ws/chats/:chat_id", subscriptions.HandleChat)
	router.GET("/ws/listings/:listing_id", subscriptions.HandleListing)
	router.GET("/ws/notifications", subscriptions.HandleNotifications)

	port := getEnv("PORT", "8086")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
