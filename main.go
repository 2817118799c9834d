package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/config"
	"github.com/vitovidale/video-notes-service/domain"
	"github.com/vitovidale/video-notes-service/infrastructure"
	"github.com/vitovidale/video-notes-service/usecase"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := infrastructure.NewLogger(cfg.Env)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("logger config rejected, falling back to zap production logger", zap.Error(err))
	}
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db, dialect, err := infrastructure.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := infrastructure.Migrate(ctx, db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	jobs := infrastructure.NewSQLJobRepository(db, dialect)
	quotas := infrastructure.NewSQLQuotaRepository(db, dialect)
	plans := cfg.PlanCatalog()
	metrics := infrastructure.NewMetrics()

	var metadata domain.MetadataLookup
	if cfg.YouTubeAPIKey != "" {
		yt, err := infrastructure.NewYouTubeMetadata(ctx, cfg.YouTubeAPIKey, "", logger)
		if err != nil {
			logger.Fatal("failed to create youtube client", zap.Error(err))
		}
		metadata = yt
	} else {
		logger.Warn("YOUTUBE_API_KEY not set, video metadata comes from the client")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = infrastructure.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		if metadata != nil {
			metadata = infrastructure.NewCachedMetadataLookup(metadata, rdb, cfg.Pipeline.MetadataCacheTTL, logger)
		}
	}

	var summarizer domain.Summarizer
	switch cfg.AI.Provider {
	case "anthropic":
		summarizer = infrastructure.NewAnthropicSummarizer(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout, logger)
	default:
		summarizer = infrastructure.NewOpenAISummarizer(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.BaseURL, cfg.AI.Timeout, logger)
	}

	provider := infrastructure.NewBrightDataClient(cfg.BrightData.BaseURL, cfg.BrightData.APIToken,
		cfg.BrightData.DatasetID, cfg.BrightData.Timeout, logger)

	summarize := &usecase.SummarizeJobUseCase{
		Jobs:       jobs,
		Quotas:     quotas,
		Summarizer: summarizer,
		Plans:      plans,
		Observer:   metrics,
		Logger:     logger,
	}
	transcriptReady := &usecase.TranscriptReadyUseCase{
		Jobs:      jobs,
		Summarize: summarize,
		Observer:  metrics,
		Logger:    logger,
	}

	var rabbitConn *amqp.Connection
	if cfg.RabbitMQURL != "" {
		rabbitConn, err = infrastructure.DialRabbitMQ(ctx, cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer rabbitConn.Close()

		if cfg.Pipeline.SummarizeAsync {
			queue := infrastructure.NewRabbitMQQueue(rabbitConn, logger)
			transcriptReady.Queue = queue
			go func() {
				if err := queue.ConsumeTranscriptReady(ctx, transcriptReady.HandleQueued); err != nil {
					logger.Error("transcript consumer stopped", zap.Error(err))
				}
			}()
		}
	}

	sweeper := &usecase.SweepStaleUseCase{
		Jobs:       jobs,
		StaleAfter: *cfg.Pipeline.StaleAfter,
		Observer:   metrics,
		Logger:     logger,
	}
	go sweeper.Run(ctx, cfg.Pipeline.SweepInterval)

	handlers := &infrastructure.VideoHandlers{
		VideoInfoUC: &usecase.VideoInfoUseCase{Metadata: metadata},
		StartJobUC: &usecase.StartJobUseCase{
			Jobs:             jobs,
			Quotas:           quotas,
			Provider:         provider,
			Metadata:         metadata,
			Summarize:        summarize,
			Plans:            plans,
			Observer:         metrics,
			Logger:           logger,
			WebhookURL:       cfg.WebhookURL(),
			NotifyURL:        cfg.NotifyURL(),
			WebhookSecret:    cfg.WebhookSecret,
			ReuseTranscripts: *cfg.Pipeline.ReuseTranscripts,
		},
		JobStatusUC:    &usecase.JobStatusUseCase{Jobs: jobs},
		UsageUC:        &usecase.UsageUseCase{Quotas: quotas, Plans: plans},
		RecentVideosUC: &usecase.RecentVideosUseCase{Jobs: jobs},
		ReprocessUC: &usecase.ReprocessUseCase{
			Jobs:      jobs,
			Quotas:    quotas,
			Summarize: summarize,
			Plans:     plans,
			Logger:    logger,
		},
		TranscriptReady:  transcriptReady,
		ProviderNotifyUC: &usecase.ProviderNotifyUseCase{Jobs: jobs, Observer: metrics, Logger: logger},
		Webhook:          infrastructure.NewWebhookReceiver(cfg.WebhookSecret, logger),
		Metrics:          metrics,
		Logger:           logger,
		DB:               db,
		Redis:            rdb,
		RabbitMQ:         rabbitConn,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handlers.Router(infrastructure.AuthMiddleware([]byte(cfg.JWTSecret))),
	}

	go func() {
		logger.Info("video notes service listening",
			zap.String("addr", srv.Addr),
			zap.String("webhook_url", cfg.WebhookURL()),
			zap.String("ai_provider", cfg.AI.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
