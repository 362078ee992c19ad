package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"archie-core-shopee-layer/internal/application"
	"archie-core-shopee-layer/internal/application/webhook_handlers"
	"archie-core-shopee-layer/internal/domain"
	apiinfra "archie-core-shopee-layer/internal/infrastructure/api"
	"archie-core-shopee-layer/internal/infrastructure/cache"
	"archie-core-shopee-layer/internal/infrastructure/encryption"
	"archie-core-shopee-layer/internal/infrastructure/pubsub"
	"archie-core-shopee-layer/internal/infrastructure/repository"
	shopeeinfra "archie-core-shopee-layer/internal/infrastructure/shopee"
	"archie-core-shopee-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	securitymiddleware "archie-core-shopee-layer/internal/infrastructure/middleware"
)

const oauthStateCookie = "shopee_oauth_state"

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	partnerID, err := strconv.ParseInt(os.Getenv("SHOPEE_PARTNER_ID"), 10, 64)
	if err != nil {
		logger.Fatal().Msg("SHOPEE_PARTNER_ID environment variable is required")
	}
	partnerKey := os.Getenv("SHOPEE_PARTNER_KEY")
	if partnerKey == "" {
		logger.Fatal().Msg("SHOPEE_PARTNER_KEY environment variable is required")
	}
	region := os.Getenv("SHOPEE_REGION")
	if region == "" {
		region = "global"
	}

	creds := shopeeinfra.Credentials{
		PartnerID:   partnerID,
		PartnerKey:  partnerKey,
		Region:      region,
		RedirectURI: appURL + "/auth/callback",
	}
	if err := creds.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid Shopee credentials")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	db := client.Database(os.Getenv("MONGODB_DATABASE"))

	// Get encryption key
	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize repositories
	repo := repository.NewMongoRepository(db)

	// Response cache: Redis when configured, in-process otherwise
	var responseCache ports.ResponseCache
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		responseCache = cache.NewRedisCache(redisClient, logger)
		logger.Info().Str("addr", redisAddr).Msg("Using Redis response cache")
	} else {
		responseCache = cache.NewMemoryCache()
		logger.Info().Msg("Using in-memory response cache")
	}

	// Initialize rate limiter for the Shopee API
	rateLimiter := shopeeinfra.NewRateLimiter(logger)
	defer rateLimiter.Close()

	// Auth transport, token manager and API client
	authClient, err := shopeeinfra.NewAuthClient(creds, "")
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize auth client")
	}
	tokenManager := shopeeinfra.NewTokenManager(authClient, repo, encryptionService, logger)
	shopeeClient, err := shopeeinfra.NewClient(creds, "", tokenManager, rateLimiter, responseCache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Shopee client")
	}

	// Initialize application services
	shopeeService := application.NewShopeeService(
		shopeeClient,
		authClient,
		tokenManager,
		repo,
		repo,
		logger,
		region,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAuthorizationHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewDeauthorizationHandler(logger, repo, tokenManager))

	// Initialize webhook pub/sub for in-process subscribers
	webhookPubSub := pubsub.NewWebhookPubSub(logger)

	// Webhook endpoint handler
	webhookVerifier := shopeeinfra.NewWebhookVerifier(partnerKey)
	webhookEndpoint := apiinfra.NewWebhookHandler(
		webhookVerifier,
		webhookDispatcher,
		webhookPubSub,
		shopeeService,
		appURL+"/webhooks/shopee",
		logger,
	)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(securitymiddleware.AuditLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Public routes
	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // The URL pointing to API definition
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopee", authInitHandler(shopeeService, logger))
	r.Get("/auth/callback", authCallbackHandler(shopeeService, logger))

	// Webhook endpoint: POST /webhooks/shopee
	r.Method(http.MethodPost, "/webhooks/shopee", webhookEndpoint)

	// Live stream of verified push events for dashboards and workers
	r.Method(http.MethodGet, "/webhooks/shopee/events", apiinfra.NewEventStreamHandler(webhookPubSub, logger))

	// Shop listing
	r.Get("/shops", func(w http.ResponseWriter, r *http.Request) {
		shops, err := shopeeService.ListShops(r.Context())
		if err != nil {
			http.Error(w, "Failed to list shops", http.StatusInternalServerError)
			return
		}
		// Never expose stored tokens, even encrypted
		for _, shop := range shops {
			shop.AccessToken = ""
			shop.RefreshToken = ""
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(shops)
	})

	// REST API Proxy: /api/v1/shopee/*
	restProxy := apiinfra.NewRESTProxy(shopeeClient, logger)
	r.HandleFunc("/api/v1/shopee/*", restProxy.HandleProxyRequest)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Str("region", region).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// authInitHandler initiates the authorization grant: it redirects the
// merchant to the signed auth_partner URL.
func authInitHandler(shopeeService *application.ShopeeService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Generate random state for CSRF protection
		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to generate state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		state := hex.EncodeToString(stateBytes)

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state,
			Path:     "/auth",
			MaxAge:   600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, shopeeService.AuthorizationURL(state), http.StatusFound)
	}
}

// authCallbackHandler receives code and shop_id from the grant
// redirect chain and completes the token exchange.
func authCallbackHandler(shopeeService *application.ShopeeService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		code := r.URL.Query().Get("code")
		shopIDParam := r.URL.Query().Get("shop_id")
		if code == "" || shopIDParam == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		// Verify state against the cookie set at initiation
		if state := r.URL.Query().Get("state"); state != "" {
			cookie, err := r.Cookie(oauthStateCookie)
			if err != nil || cookie.Value != state {
				http.Error(w, "Invalid state", http.StatusUnauthorized)
				return
			}
		}

		shopID, err := domain.ParseShopID(shopIDParam)
		if err != nil {
			http.Error(w, "Invalid shop_id", http.StatusBadRequest)
			return
		}

		shop, err := shopeeService.CompleteAuthorization(ctx, code, shopID)
		if err != nil {
			logger.Error().Err(err).Int64("shopId", shopID).Msg("Failed to complete authorization")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		logger.Info().
			Int64("shopId", shop.ShopID).
			Msg("Shop connected via authorization callback")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":     "connected",
			"shop_id":    shop.ShopID,
			"region":     shop.Region,
			"expires_at": shop.ExpiresAt,
		})
	}
}
