package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"persona-ingest/internal/config"
)

// FeatureSetCollection es la coleccion donde se guardan los feature sets crudos.
const FeatureSetCollection = "raw_analysis_feature_sets"

// NewMongoClient conecta al almacen de documentos y verifica conectividad.
// Devuelve nil sin error cuando no hay URI configurada: el writer de
// features trata la ausencia de handle como "no configurado".
func NewMongoClient(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, nil
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return client, nil
}
