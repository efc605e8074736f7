package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"litqa/internal/ai"
	"litqa/internal/app"
	"litqa/internal/cache"
	"litqa/internal/config"
	"litqa/internal/model"
	"litqa/internal/pkg/logger"
	"litqa/internal/pkg/monitoring"
	minioClient "litqa/internal/platform/minio"
	mysqlClient "litqa/internal/platform/mysql"
	rabbitmqClient "litqa/internal/platform/rabbitmq"
	redisClient "litqa/internal/platform/redis"
	"litqa/internal/repository"
	"litqa/internal/worker"
)

// App owns every long-lived dependency of the process.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *monitoring.Metrics

	MySQL            *gorm.DB
	Redis            *redis.Client
	Minio            *miniogo.Client
	MQConn           *amqp.Connection
	HistoryPublisher *rabbitmqClient.HistoryPublisher
	HistoryWorker    *worker.HistoryPersistWorker

	AuthService     *app.AuthService
	DocumentService *app.DocumentService
	QAService       *app.QAService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   monitoring.NewMetrics(),
		StartedAt: time.Now(),
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	migrations := []any{&model.User{}}
	if cfg.History.Backend == "mysql" {
		migrations = append(migrations, &model.QARecord{})
	}
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), migrations...)
	if err != nil {
		return err
	}
	a.MySQL = db

	if cfg.Redis.Addr != "" {
		rdb, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = rdb
	}

	docs, err := a.documentStore(ctx)
	if err != nil {
		return err
	}

	var history app.HistoryStore
	switch cfg.History.Backend {
	case "mysql":
		history = repository.NewQARecordRepository(a.MySQL, cfg.History.Capacity)
	default:
		history = repository.NewFileHistoryRepository(cfg.Storage.KnowledgeBaseDir, cfg.History.Capacity)
	}

	var historyCache app.HistoryCache
	if a.Redis != nil {
		historyCache = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	var publisher app.HistoryPublisher
	if cfg.History.Async {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.HistoryPersistQueue)
		if err != nil {
			return err
		}
		a.MQConn = conn
		a.HistoryPublisher = rabbitmqClient.NewHistoryPublisher(conn, cfg.RabbitMQ.HistoryPersistQueue)
		publisher = a.HistoryPublisher
	}
	historyService := app.NewHistoryService(history, publisher, historyCache, a.Logger.Named("history"))

	if a.MQConn != nil {
		a.HistoryWorker = worker.NewHistoryPersistWorker(a.MQConn, history, cfg.RabbitMQ.HistoryPersistQueue, a.Logger)
		a.HistoryWorker.OnPersisted = historyService.Persisted
		if err := a.HistoryWorker.Start(ctx); err != nil {
			return fmt.Errorf("start history worker failed: %w", err)
		}
	}

	llm := ai.NewClient(ai.Options{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Mode:        ai.Mode(cfg.LLM.Mode),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopP:        cfg.LLM.TopP,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if cfg.LLM.APIKey == "" {
		a.Logger.Warn("llm api key is empty, generation calls will fail")
	}
	a.Logger.Info("generation client ready", zap.String("endpoint", llm.Endpoint()), zap.String("mode", string(llm.Mode())))

	a.AuthService = app.NewAuthService(
		repository.NewUserRepository(a.MySQL),
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
		a.Logger.Named("auth"),
	)
	a.DocumentService = app.NewDocumentService(docs, a.Logger.Named("documents"))
	a.QAService = app.NewQAService(
		app.NewRetriever(docs, cfg.Retrieval.KnowledgeBaseDocChars, cfg.Retrieval.SingleDocChars),
		app.NewFusionPipeline(llm, a.Metrics, a.Logger.Named("fusion")),
		historyService,
		app.NewCodeIntentClassifier(cfg.QA.CodeKeywords),
		app.StageModels{Main: cfg.LLM.Model, Deep: cfg.LLM.DeepModel, Code: cfg.LLM.CodeModel},
		a.Metrics,
		a.Logger.Named("qa"),
	)
	return nil
}

func (a *App) documentStore(ctx context.Context) (app.DocumentStore, error) {
	if a.Config.Storage.Type != "minio" {
		return repository.NewFileDocumentRepository(a.Config.Storage.KnowledgeBaseDir), nil
	}
	client, err := minioClient.New(ctx, a.Config.Storage)
	if err != nil {
		return nil, err
	}
	a.Minio = client
	return repository.NewObjectDocumentRepository(client, a.Config.Storage.MinioBucket), nil
}

func (a *App) Close() error {
	var errs []error
	if a.HistoryWorker != nil {
		a.HistoryWorker.Close()
	}
	if a.HistoryPublisher != nil {
		if err := a.HistoryPublisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.MySQL != nil {
		if sqlDB, err := a.MySQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
