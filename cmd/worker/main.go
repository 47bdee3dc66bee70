package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"persona-ingest/internal/ai"
	"persona-ingest/internal/alert"
	"persona-ingest/internal/config"
	"persona-ingest/internal/consent"
	"persona-ingest/internal/dataaccess"
	"persona-ingest/internal/db"
	"persona-ingest/internal/derive"
	"persona-ingest/internal/domain"
	"persona-ingest/internal/graph"
	"persona-ingest/internal/metrics"
	"persona-ingest/internal/orchestrator"
	"persona-ingest/internal/queue"
	"persona-ingest/internal/store"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	mongoClient, err := db.NewMongoClient(ctx, cfg)
	if err != nil {
		logger.Warn("mongo connect failed, feature store disabled", zap.Error(err))
	}
	defer func() {
		if mongoClient != nil {
			_ = mongoClient.Disconnect(ctx)
		}
	}()

	graphDriver, err := db.NewGraphDriver(ctx, cfg)
	if err != nil {
		logger.Warn("neo4j connect failed, persona graph disabled", zap.Error(err))
	}
	defer func() {
		if graphDriver != nil {
			_ = graphDriver.Close(ctx)
		}
	}()

	var consentCache consent.DecisionCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, consent cache disabled", zap.Error(err))
		} else {
			consentCache = consent.NewRedisDecisionCache(redisClient, time.Duration(cfg.ConsentCacheTTLSecs)*time.Second)
		}
		cancel()
	}

	gate := consent.NewHTTPGate(cfg.ConsentBaseURL, time.Duration(cfg.ConsentTimeoutMS)*time.Millisecond, consentCache, logger)
	facade := dataaccess.NewHTTPFacade(cfg.DataAccessBaseURL, 30*time.Second, logger)

	var passes []orchestrator.AnalysisPass
	if cfg.GeminiAPIKey != "" {
		passes = append(passes, orchestrator.AnalysisPass{
			Adapter:        ai.NewGeminiAdapter(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, logger),
			PromptTemplate: "Analyze the following text. Summarize the key topics discussed and the dispositions the author expresses.",
			RequiredScope:  "action:analyze_text,resource:user_data_package",
			Modality:       "text_analysis",
		})
	}
	if cfg.OpenAIAPIKey != "" {
		passes = append(passes, orchestrator.AnalysisPass{
			Adapter:        ai.NewOpenAIAdapter(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel),
			PromptTemplate: "Analyze the following text. Summarize the key topics discussed and the dispositions the author expresses.",
			RequiredScope:  "action:analyze_text,resource:user_data_package",
			Modality:       "text_analysis",
		})
	}
	if len(passes) == 0 {
		logger.Warn("no ai adapter configured, every job will produce zero feature sets")
	}

	featureStore := store.NewFeatureStore(nil, logger)
	if mongoClient != nil {
		coll := mongoClient.Database(cfg.MongoDatabase).Collection(db.FeatureSetCollection)
		featureStore = store.NewFeatureStore(coll, logger)
	}
	candidateStore := store.NewCandidateStore(pool, logger)
	graphWriter := graph.NewWriter(graphDriver, time.Duration(cfg.StageTimeoutS)*time.Second, logger)

	engine := derive.NewEngine(derive.DefaultRules(), logger)
	orch := orchestrator.New(
		gate,
		facade,
		passes,
		engine,
		derive.ExtractConcepts,
		featureStore,
		candidateStore,
		graphWriter,
		time.Duration(cfg.StageTimeoutS)*time.Second,
		logger,
	)

	var notifier alert.Notifier = alert.Disabled{}
	if cfg.SMTPHost != "" && cfg.AlertTo != "" {
		n, err := alert.NewSMTPNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.AlertTo, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp notifier init failed", zap.Error(err))
		} else {
			notifier = n
		}
	}

	jobQueue := queue.NewQueue(cfg.QueueCapacity)
	workers := queue.NewPool(jobQueue, orch, notifier, cfg.WorkerCount, logger)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	workers.Start(workerCtx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "queue_depth": jobQueue.Len()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.POST("/jobs", func(c *gin.Context) {
		var job domain.IngestionJob
		if err := c.ShouldBindJSON(&job); err != nil || job.PackageID == "" || job.UserID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "packageID and userID are required"})
			return
		}
		if !jobQueue.Enqueue(c.Request.Context(), job) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "queue full"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	server := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting worker ops server", zap.String("port", cfg.MetricsPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ops server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	jobQueue.Close()
	workers.Wait()
	stopWorkers()
}
