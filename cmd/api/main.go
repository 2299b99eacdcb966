package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"dealroom/internal/adapter/api"
	"dealroom/internal/adapter/api/handler"
	apimiddleware "dealroom/internal/adapter/api/middleware"
	"dealroom/internal/adapter/api/router"
	"dealroom/internal/adapter/repository"
	domainrepo "dealroom/internal/domain/repository"
	"dealroom/internal/domain/service"
	"dealroom/internal/infrastructure/auth"
	"dealroom/internal/infrastructure/cache"
	"dealroom/internal/infrastructure/firebase"
	"dealroom/internal/infrastructure/metrics"
	"dealroom/internal/infrastructure/ratelimit"
	"dealroom/internal/infrastructure/storage"
	"dealroom/internal/infrastructure/websocket"
	"dealroom/internal/usecase"
	"dealroom/pkg/config"
	"dealroom/pkg/logger"
	"dealroom/pkg/utils"
)

type repositories struct {
	users         domainrepo.UserRepository
	listings      domainrepo.ListingRepository
	deals         domainrepo.DealRepository
	messages      domainrepo.MessageRepository
	notifications domainrepo.NotificationRepository
	documents     domainrepo.DocumentRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Configure(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := credentialOptions(cfg)

	var (
		firestoreClient *firestore.Client
		repos           repositories
	)
	if cfg.StoreDriver == config.StoreFirestore {
		firestoreClient, err = firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		repos = firestoreRepositories(firestoreClient)
		logger.Info("Using Firestore store for project %s", cfg.FirebaseProject)
	} else {
		repos = memoryRepositories()
		logger.Warn("Using in-memory store; data is lost on restart")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	redisCache := cache.NewRedisCache(redisClient)

	var (
		verifier       service.TokenVerifier
		hmacIssuer     *auth.HMACVerifier
		jwksVerifier   *auth.JWKSVerifier
		firebaseTester usecase.ConnectionTester
	)
	switch cfg.AuthProvider {
	case config.AuthFirebase:
		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		firebaseAuth := firebase.NewFirebaseAuthClient(authClient)
		verifier, firebaseTester = firebaseAuth, firebaseAuth
	case config.AuthJWKS:
		jwksVerifier, err = auth.NewJWKSVerifier(cfg.JWKSURL)
		if err != nil {
			log.Fatalf("Failed to initialize JWKS verifier: %v", err)
		}
		verifier = jwksVerifier
	default:
		hmacIssuer = auth.NewHMACVerifier(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
		verifier = hmacIssuer
	}
	logger.Info("Authenticating with the %s provider", cfg.AuthProvider)

	var (
		files         service.FileUploadService
		storageClient *storage.CloudStorageClient
	)
	if cfg.StorageBucket != "" {
		storageClient, err = storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
		if err != nil {
			log.Fatalf("Failed to initialize Cloud Storage: %v", err)
		}
		files = storageClient
	} else {
		logger.Warn("STORAGE_BUCKET is not set; document uploads are disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	hub := websocket.NewHub(m)
	hub.Start(ctx)

	locks := utils.NewKeyedMutex()
	history := usecase.NewHistoryCache(redisCache, repos.messages, repos.deals, locks, usecase.HistoryCacheConfig{
		HistoryTTL:  cfg.HistoryTTL,
		SnapshotTTL: cfg.SnapshotTTL,
		Window:      cfg.HistoryWindow,
	}, m)
	presence := usecase.NewPresenceTracker(redisCache, cfg.PresenceTTL, m)

	authenticator := usecase.NewAuthenticator(verifier, repos.users)
	userUseCase := usecase.NewUserUseCase(repos.users)
	notificationUseCase := usecase.NewNotificationUseCase(repos.notifications, hub)
	documentUseCase := usecase.NewDocumentUseCase(repos.documents, repos.deals, files, notificationUseCase, hub, cfg.MaxDocumentSize)
	dealUseCase := usecase.NewDealUseCase(repos.deals, repos.users, repos.listings, repos.messages,
		history, presence, notificationUseCase, documentUseCase, hub, locks)
	messageUseCase := usecase.NewMessageUseCase(repos.messages, repos.deals, history, notificationUseCase, hub, locks)

	limiter := ratelimit.NewRateLimiter(nil)
	limiter.StartCleanupRoutine(ctx.Done())

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authenticator)
	adminMiddleware := apimiddleware.NewAdminMiddleware()

	realtime := handler.NewRealtimeHandler(hub, dealUseCase, messageUseCase, presence, limiter, m)

	handlers := router.Handlers{
		Deal:         handler.NewDealHandler(dealUseCase, presence),
		Message:      handler.NewMessageHandler(messageUseCase),
		Document:     handler.NewDocumentHandler(documentUseCase, cfg.MaxDocumentSize),
		Notification: handler.NewNotificationHandler(notificationUseCase),
		User:         handler.NewUserHandler(userUseCase),
		Admin:        handler.NewAdminHandler(hub),
		Health:       handler.NewHealthHandler(redisCache, firebaseTester),
		WebSocket:    handler.NewWebSocketHandler(ctx, hub, authenticator, realtime, cfg.WSSendBuffer, cfg.IsDevelopment()),
	}
	if cfg.IsDevelopment() && hmacIssuer != nil {
		handlers.DevToken = handler.NewDevTokenHandler(hmacIssuer, userUseCase)
		logger.Warn("Development token endpoint enabled at /_dev/token")
	}

	router.Setup(e, handlers, authMiddleware, adminMiddleware, limiter, registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := e.Shutdown(shutdownCtx)
		hub.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error: %v", err)
	}

	if err := redisCache.Close(); err != nil {
		logger.Error("Failed to close Redis: %v", err)
	}
	if firestoreClient != nil {
		firestoreClient.Close()
	}
	if storageClient != nil {
		storageClient.Close()
	}
	if jwksVerifier != nil {
		jwksVerifier.Close()
	}
}

// credentialOptions prefers inline service account JSON over a file path.
// With neither set the Google clients fall back to default credentials.
func credentialOptions(cfg *config.Config) []option.ClientOption {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))}
	}

	if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		logger.Info("Using service account from file: %s", cfg.ServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.ServiceAccountPath)}
	}

	return nil
}

func firestoreRepositories(client *firestore.Client) repositories {
	return repositories{
		users:         repository.NewFirestoreUserRepository(client),
		listings:      repository.NewFirestoreListingRepository(client),
		deals:         repository.NewFirestoreDealRepository(client),
		messages:      repository.NewFirestoreMessageRepository(client),
		notifications: repository.NewFirestoreNotificationRepository(client),
		documents:     repository.NewFirestoreDocumentRepository(client),
	}
}

func memoryRepositories() repositories {
	store := repository.NewMemoryStore()
	return repositories{
		users:         store.Users(),
		listings:      store.Listings(),
		deals:         store.Deals(),
		messages:      store.Messages(),
		notifications: store.Notifications(),
		documents:     store.Documents(),
	}
}
