// Package store contiene los writers de persistencia best-effort: el
// almacen documental de feature sets y el relacional de candidatos.
// Ambos tragan errores en su frontera y devuelven un resultado blando;
// el orquestador decide si la ausencia de escritura es fatal.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

type featureCollection interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// FeatureStore persiste feature sets crudos en el almacen documental.
// El _id del documento es el FeatureSetID que aporta el productor, asi
// un reintento sobreescribe el mismo documento en vez de duplicarlo.
type FeatureStore struct {
	coll   featureCollection
	logger *zap.Logger
}

// NewFeatureStore construye el writer. Una coleccion nil significa "no
// configurado": las escrituras devuelven resultado nulo en silencio.
func NewFeatureStore(coll *mongo.Collection, logger *zap.Logger) *FeatureStore {
	s := &FeatureStore{logger: logger}
	if coll != nil {
		s.coll = coll
	}
	return s
}

// Configured indica si hay coleccion detras del writer.
func (s *FeatureStore) Configured() bool { return s.coll != nil }

// SaveOne guarda un feature set y devuelve su ID. ok=false significa
// "no quedo registrado de forma durable".
func (s *FeatureStore) SaveOne(ctx context.Context, fs domain.RawAnalysisFeatureSet) (string, bool) {
	if s.coll == nil {
		return "", false
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": fs.FeatureSetID}, fs, opts)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("feature set save failed",
				zap.Error(err),
				zap.String("feature_set_id", fs.FeatureSetID),
				zap.String("user_id", fs.UserID),
			)
		}
		return "", false
	}
	return fs.FeatureSetID, true
}

// SaveBatch guarda el lote con un BulkWrite de upserts. Una lista vacia
// es un no-op que no contacta el almacen.
func (s *FeatureStore) SaveBatch(ctx context.Context, sets []domain.RawAnalysisFeatureSet) ([]string, bool) {
	if len(sets) == 0 {
		return []string{}, true
	}
	if s.coll == nil {
		return nil, false
	}

	models := make([]mongo.WriteModel, 0, len(sets))
	ids := make([]string, 0, len(sets))
	for _, fs := range sets {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": fs.FeatureSetID}).
			SetReplacement(fs).
			SetUpsert(true))
		ids = append(ids, fs.FeatureSetID)
	}

	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true)); err != nil {
		if s.logger != nil {
			s.logger.Error("feature set batch save failed", zap.Error(err), zap.Int("count", len(sets)))
		}
		return nil, false
	}
	return ids, true
}
