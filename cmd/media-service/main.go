package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/picstash/media-service/docs"
	"github.com/picstash/media-service/internal/config"
	"github.com/picstash/media-service/internal/events"
	mediaHandlers "github.com/picstash/media-service/internal/http/handlers/media"
	userHandlers "github.com/picstash/media-service/internal/http/handlers/users"
	wsHandlers "github.com/picstash/media-service/internal/http/handlers/websocket"
	"github.com/picstash/media-service/internal/http/middleware"
	mediaService "github.com/picstash/media-service/internal/services/media"
	"github.com/picstash/media-service/internal/services/tags"
	minioStore "github.com/picstash/media-service/internal/storage/minio"
	"github.com/picstash/media-service/internal/users"
	"github.com/picstash/media-service/internal/utils/password"
	"github.com/picstash/media-service/internal/utils/response"
	"github.com/picstash/media-service/internal/websocket"
)

// @title Media Service API
// @version 1.0
// @description Image repository backed by object storage with tag metadata and short-lived access URLs.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// load config
	cfg := config.MustLoad()

	// object storage setup
	store, err := minioStore.NewStore(cfg)
	if err != nil {
		log.Fatal("Failed to initialize object storage:", err)
	}
	slog.Info("Connected to object storage", slog.String("endpoint", cfg.MinIO.Endpoint))

	// redis for rate limiting
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis", slog.String("address", cfg.Redis.Address))

	// user registry
	registry := users.NewRegistry()
	if cfg.Admin.Username != "" {
		if err := seedAdmin(registry, cfg.Admin); err != nil {
			log.Fatal("Failed to seed admin user:", err)
		}
		slog.Info("Seeded admin user", slog.String("username", cfg.Admin.Username))
	}

	// websocket hub for upload notifications
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewEventPublisher(hub)

	// services
	suggester := tags.NewClient(cfg)
	media := mediaService.NewService(store, suggester)

	// handlers and middleware
	mh := mediaHandlers.NewMediaHandlers(media, publisher, &cfg.Media)
	authMW := middleware.AuthMiddleware(cfg.JWTSecret)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		response.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":            "ok",
			"connected_clients": hub.GetClientCount(),
		})
	})

	router.HandleFunc("POST /signup", userHandlers.SignUp(registry))
	router.HandleFunc("POST /login", userHandlers.Login(registry, cfg.JWTSecret))

	router.Handle("POST /images", authMW(rateLimits.RateLimitMiddleware("upload")(mh.Upload())))
	router.Handle("GET /images", authMW(mh.ListImages()))
	router.Handle("GET /images/tags/{tag}", authMW(mh.ListImagesByTag()))
	router.Handle("POST /images/suggestions", authMW(rateLimits.RateLimitMiddleware("suggest")(mh.SuggestTags())))

	router.HandleFunc("GET /ws", wsHandlers.WebSocketHandler(hub, cfg.JWTSecret))

	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}

func seedAdmin(registry *users.Registry, admin config.Admin) error {
	hash, err := password.HashPassword(admin.Password)
	if err != nil {
		return err
	}
	_, err = registry.Register(admin.Username, hash, true)
	return err
}
