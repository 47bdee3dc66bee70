package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"persona-ingest/internal/config"
	"persona-ingest/internal/db"
	"persona-ingest/internal/graph"
	apihttp "persona-ingest/internal/http"
	"persona-ingest/internal/service"
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

	graphDriver, err := db.NewGraphDriver(ctx, cfg)
	if err != nil {
		logger.Fatal("neo4j connect", zap.Error(err))
	}
	defer func() {
		if graphDriver != nil {
			_ = graphDriver.Close(ctx)
		}
	}()

	graphWriter := graph.NewWriter(graphDriver, time.Duration(cfg.StageTimeoutS)*time.Second, logger)
	candidateStore := store.NewCandidateStore(pool, logger)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	traitHandler := apihttp.NewTraitHandler(graphWriter, candidateStore, logger)
	router := apihttp.NewRouter(logger, jwtSvc, traitHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting feedback api", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
