package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/yourusername/livequiz-api/internal/config"
	"github.com/yourusername/livequiz-api/internal/domain/repository"
	"github.com/yourusername/livequiz-api/internal/handler"
	"github.com/yourusername/livequiz-api/internal/middleware"
	airtableRepo "github.com/yourusername/livequiz-api/internal/repository/airtable"
	pgRepo "github.com/yourusername/livequiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/livequiz-api/internal/repository/redis"
	"github.com/yourusername/livequiz-api/internal/service"
	ws "github.com/yourusername/livequiz-api/internal/websocket"
	"github.com/yourusername/livequiz-api/pkg/airtable"
	"github.com/yourusername/livequiz-api/pkg/database"
)

// stores объединяет репозитории выбранного хранилища записей
type stores struct {
	questions repository.QuestionRepository
	sessions  repository.SessionRepository
	votes     repository.VoteRepository
	close     func()
}

func main() {
	// .env необязателен, переменные окружения имеют приоритет
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Не удалось загрузить .env")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize record store: %v", err)
	}
	defer st.close()

	// --- Redis: кеш каталога, блокировка advance, rate limit, кластер WebSocket ---
	var (
		redisClient redis.UniversalClient
		cacheRepo   repository.CacheRepository
		locker      service.SessionLocker
		voteLimit   gin.HandlerFunc
	)
	if cfg.Redis.Enabled {
		redisClient, err = database.NewUniversalRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Successfully connected to Redis")

		repo, err := redisRepo.NewCacheRepo(redisClient)
		if err != nil {
			log.Fatalf("Failed to initialize CacheRepo: %v", err)
		}
		cacheRepo = repo
		locker = service.NewRedisSessionLocker(repo, cfg.Quiz.AdvanceLockTTL, cfg.AdvanceLockWait())

		limiter := middleware.NewRateLimiter(middleware.NewRedisWindowCounter(redisClient))
		voteLimit = limiter.Limit(middleware.VoteRateLimitConfig(cfg.RateLimit.VoteMaxRequests, cfg.RateLimit.VoteWindow))
	} else {
		log.Println("Redis выключен: кеш каталога и rate limit не используются, блокировки только локальные")
		locker = service.NewLocalSessionLocker()
	}

	// --- WebSocket ---
	var pubSubProvider ws.PubSubProvider = &ws.NoOpPubSub{}
	clusterEnabled := cfg.WebSocket.ClusterEnabled && redisClient != nil
	if cfg.WebSocket.ClusterEnabled && redisClient == nil {
		log.Warn("Кластеризация WebSocket требует Redis и будет неактивна")
	}
	if clusterEnabled {
		redisProvider, err := ws.NewRedisPubSub(redisClient)
		if err != nil {
			log.Fatalf("Failed to create Redis PubSub provider: %v", err)
		}
		pubSubProvider = redisProvider
	}

	wsHub := ws.NewHub(ws.HubConfig{
		ClusterEnabled: clusterEnabled,
		ClusterChannel: cfg.WebSocket.ClusterChannel,
	}, pubSubProvider)
	wsManager := ws.NewManager(wsHub)
	if clusterEnabled {
		go func() {
			if err := wsHub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("WebSocket hub cluster listener stopped")
			}
		}()
	}

	var notifier service.SessionEventNotifier
	if cfg.WebSocket.Enabled {
		notifier = wsManager
	}

	// --- Сервисы ---
	catalogService := service.NewCatalogService(st.questions, cacheRepo, cfg.Quiz.CatalogCacheTTL)
	sessionService := service.NewSessionService(st.sessions, catalogService, locker, notifier)
	voteService := service.NewVoteService(st.votes, catalogService, notifier)
	resultService := service.NewResultService(st.votes, catalogService)

	// --- Обработчики ---
	deps := handler.RouterDeps{
		Quiz:        handler.NewQuizHandler(catalogService, sessionService, cfg.Quiz.DefaultSession, cfg.Quiz.LegacyActiveFlag),
		Session:     handler.NewSessionHandler(sessionService),
		Vote:        handler.NewVoteHandler(voteService),
		Result:      handler.NewResultHandler(resultService),
		Health:      handler.NewHealthHandler(cfg.Store.Driver, wsHub),
		VoteLimit:   voteLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if cfg.WebSocket.Enabled {
		deps.WS = handler.NewWSHandler(wsHub, wsManager, ws.ClientConfig{
			BufferSize:   cfg.WebSocket.SendBuffer,
			PingInterval: cfg.WebSocket.PingInterval,
			PongWait:     cfg.WebSocket.PongWait,
			WriteWait:    cfg.WebSocket.WriteWait,
		}, cfg.Quiz.DefaultSession, cfg.Server.CORSOrigins)
	}

	router := handler.NewRouter(deps)

	// В production не доверяем прокси-заголовкам (защита от IP spoofing в rate limit)
	if gin.Mode() == gin.ReleaseMode {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s (store: %s)", cfg.Server.Port, cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// Закрываем хаб после HTTP сервера, чтобы новые соединения не появлялись
	if err := wsHub.Close(); err != nil {
		log.Errorf("Error closing WebSocket hub: %v", err)
	}

	log.Println("Server exited properly")
}

// openStores создает репозитории выбранного драйвера хранилища
func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverAirtable:
		client, err := airtable.NewClient(airtable.Config{
			APIKey:  cfg.Airtable.APIKey,
			BaseID:  cfg.Airtable.BaseID,
			BaseURL: cfg.Airtable.BaseURL,
			Timeout: cfg.Airtable.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.WithField("base_id", cfg.Airtable.BaseID).Info("Используется хранилище Airtable")
		return &stores{
			questions: airtableRepo.NewQuestionRepo(client, cfg.Airtable.QuizTable),
			sessions:  airtableRepo.NewSessionRepo(client, cfg.Airtable.SessionTable),
			votes:     airtableRepo.NewVoteRepo(client, cfg.Airtable.VotesTable),
			close:     func() {},
		}, nil

	case config.StoreDriverPostgres:
		db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
		if err != nil {
			return nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := database.MigrateDB(db); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
		log.WithField("host", cfg.Database.Host).Info("Используется хранилище PostgreSQL")
		return &stores{
			questions: pgRepo.NewQuestionRepo(db),
			sessions:  pgRepo.NewSessionRepo(db),
			votes:     pgRepo.NewVoteRepo(db),
			close: func() {
				if sqlDB, err := db.DB(); err == nil {
					sqlDB.Close()
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
