package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/api/middleware"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/handlers"
	"github.com/parley-chat/parley/internal/messaging"
	"github.com/parley-chat/parley/internal/store"
)

// NewRouter creates and configures the HTTP router. redisStore may be nil
// when running on the memory backend; rate limiting and search degrade
// gracefully.
func NewRouter(cfg *config.Config, logger zerolog.Logger, users store.DataStore, kv store.KVStore, msg *messaging.Service, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024)) // messages are bounded well below this
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	var redisClient *redis.Client
	if redisStore != nil {
		redisClient = redisStore.Client()
	}
	limiter := middleware.NewRateLimiter(redisClient, logger, cfg.RateLimitWhitelist)
	r.Use(limiter.Middleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Parley-UID"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(users, kv, msg, redisStore)
	identity := middleware.NewIdentityMiddleware(users)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no identity required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/register", h.Register)
	r.Get("/users/{uid}", h.GetUser)

	// Identified routes
	r.Group(func(r chi.Router) {
		r.Use(identity.RequireUser)

		r.Post("/chats", h.CreateChat)
		r.Get("/chats", h.ListChats)
		r.Get("/chats/unread", h.ListUnread)
		r.Post("/chats/{roomID}/messages", h.PostMessage)
		r.Get("/chats/{roomID}/messages", h.GetChatMessages)
		r.Get("/chats/{roomID}/members", h.GetChatMembers)
		r.Post("/chats/{roomID}/read", h.MarkChatRead)
		r.Get("/find", h.Search)
	})

	return r
}
