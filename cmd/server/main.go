package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/AnshRaj112/flags-survey-backend/internal/cache"
	"github.com/AnshRaj112/flags-survey-backend/internal/config"
	"github.com/AnshRaj112/flags-survey-backend/internal/database"
	"github.com/AnshRaj112/flags-survey-backend/internal/dispatch"
	"github.com/AnshRaj112/flags-survey-backend/internal/handlers"
	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
	"github.com/AnshRaj112/flags-survey-backend/internal/middleware"
	"github.com/AnshRaj112/flags-survey-backend/internal/oauth"
	"github.com/AnshRaj112/flags-survey-backend/internal/routes"
	"github.com/AnshRaj112/flags-survey-backend/internal/session"
	"github.com/AnshRaj112/flags-survey-backend/internal/submission"
	"github.com/AnshRaj112/flags-survey-backend/pkg/clientip"
	"github.com/AnshRaj112/flags-survey-backend/pkg/utils"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found")
	}
	// Load configuration
	cfg := config.Load()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warnf("⚠️  WARNING: invalid LOG_LEVEL %q, keeping info", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration:\n%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	logger.Info("Connecting to Redis...")
	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	storeKey, err := utils.DeriveKey(cfg.SessionSecret, "flags-session-store")
	if err != nil {
		logger.Fatalf("Failed to derive session key: %v", err)
	}
	sessions, err := session.NewManager(session.NewRedisStore(redisClient, storeKey), cfg.SessionSecret, cfg.SessionExpiry, cfg.IsProduction())
	if err != nil {
		logger.Fatalf("Failed to set up sessions: %v", err)
	}
	logger.Infof("✅ Sessions stored in Redis (expiry %s)", cfg.SessionExpiry)

	discord := oauth.NewClient(oauth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		BaseURL:      cfg.OAuthBaseURL,
		CDNBaseURL:   cfg.CDNBaseURL,
		Timeout:      cfg.OAuthTimeout,
	})
	profiles := cache.New(redisClient, cfg.ProfileCacheTTL)

	records, closeRecords, err := openRecordStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to set up %s record store: %v", cfg.RecordStore, err)
	}
	defer closeRecords()
	logger.Infof("✅ Record store: %s", records.Name())

	dispatcher := dispatch.NewDispatcher(
		dispatch.NewWebhookNotifier(cfg.WebhookURL, cfg.DispatchTimeout),
		records,
		dispatch.Options{
			Timeout: cfg.DispatchTimeout,
			Retry: dispatch.RetryPolicy{
				MaxRetries:  cfg.DispatchMaxRetries,
				MinInterval: 500 * time.Millisecond,
				MaxInterval: 5 * time.Second,
			},
		},
	)

	// Setup router
	clientIP := clientip.Resolver(cfg.TrustProxy)
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(clientIP))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → per-IP limit → auth/submit limit
	// Non-production: Redis-based rate limit only
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(ctx, clientIP) {
			r.Use(mw)
		}
		logger.Info("✅ Production security enabled (security headers, per-IP + auth rate limiting)")
	} else {
		r.Use(middleware.RedisRateLimit(redisClient, clientIP))
	}

	routes.SetupRoutes(r, sessions, routes.Handlers{
		Auth:   handlers.NewAuthHandler(discord, sessions, profiles),
		User:   handlers.NewUserHandler(discord, profiles),
		Submit: handlers.NewSubmitHandler(submission.NewNormalizer(), dispatcher, sessions),
	})

	logger.Info("📋 Registered routes:")
	for _, route := range routes.Registered {
		logger.Info("  " + route)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// a submit may spend the whole dispatch timeout on retries
		WriteTimeout: cfg.DispatchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("🚀 Flags survey backend running on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.DispatchTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// openRecordStore connects the backend chosen by RECORD_STORE. The returned
// func releases its connections.
func openRecordStore(ctx context.Context, cfg *config.Config) (dispatch.RecordStore, func(), error) {
	switch cfg.RecordStore {
	case config.StorePostgres:
		logger.Info("Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI, submission.QuestionKeys())
		if err != nil {
			return nil, nil, err
		}
		return dispatch.NewPostgresStore(db, submission.QuestionKeys()), func() { db.Close() }, nil

	case config.StoreMongo:
		logger.Info("Connecting to MongoDB...")
		db, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		return dispatch.NewMongoStore(db), func() {
			if err := database.DisconnectMongo(db); err != nil {
				logger.Warnf("Disconnect MongoDB: %v", err)
			}
		}, nil

	default:
		store, err := dispatch.NewAirtableStore(cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableBaseURL, &http.Client{Timeout: cfg.DispatchTimeout})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}
