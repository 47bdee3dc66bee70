package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

const uniqueViolationCode = "23505"

type rowExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// CandidateStore persiste candidatos de rasgo en el almacen relacional.
// El upsert por candidate_id sobreescribe solo columnas mutables, asi la
// reentrega del mismo candidato es idempotente sin crear otra fila.
type CandidateStore struct {
	pool   rowExecer
	logger *zap.Logger
}

// NewCandidateStore construye el writer. Un pool nil significa "no
// configurado": las escrituras devuelven resultado nulo sin tocar la red.
func NewCandidateStore(pool *pgxpool.Pool, logger *zap.Logger) *CandidateStore {
	s := &CandidateStore{logger: logger}
	if pool != nil {
		s.pool = pool
	}
	return s
}

// Configured indica si hay pool detras del writer.
func (s *CandidateStore) Configured() bool { return s.pool != nil }

const upsertCandidateQuery = `
	INSERT INTO trait_candidates (
		candidate_id, user_id, trait_id, trait_name, trait_description,
		trait_category, evidence, confidence_score, originating_models,
		feature_set_ids, status, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (candidate_id)
	DO UPDATE SET
		evidence = EXCLUDED.evidence,
		confidence_score = EXCLUDED.confidence_score,
		originating_models = EXCLUDED.originating_models,
		feature_set_ids = EXCLUDED.feature_set_ids,
		status = EXCLUDED.status,
		updated_at = EXCLUDED.updated_at
`

// SaveOne inserta o actualiza un candidato. ok=false indica falla blanda
// (pool ausente, error del almacen o carrera de unicidad).
func (s *CandidateStore) SaveOne(ctx context.Context, cand domain.ExtractedTraitCandidate) (string, bool) {
	if s.pool == nil {
		return "", false
	}

	evidence, err := json.Marshal(cand.SupportingEvidence)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("candidate evidence marshal failed", zap.Error(err), zap.String("candidate_id", cand.CandidateID))
		}
		return "", false
	}
	models, err := json.Marshal(cand.OriginatingModels)
	if err != nil {
		return "", false
	}
	featureSetIDs, err := json.Marshal(cand.AssociatedFeatureSetIDs)
	if err != nil {
		return "", false
	}

	// trait_id es la identidad estable del rasgo en el grafo; la columna
	// permite que el flujo de feedback localice la fila por usuario+rasgo.
	_, err = s.pool.Exec(ctx, upsertCandidateQuery,
		cand.CandidateID,
		cand.UserID,
		domain.NewTraitID(cand.UserID, cand.TraitName),
		cand.TraitName,
		cand.TraitDescription,
		cand.TraitCategory,
		evidence,
		cand.ConfidenceScore,
		models,
		featureSetIDs,
		cand.Status,
		cand.CreationTimestamp,
		cand.LastUpdatedTimestamp,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// Carrera con otro worker: la fila ya existe, no se propaga.
			if s.logger != nil {
				s.logger.Warn("candidate upsert unique violation", zap.String("candidate_id", cand.CandidateID))
			}
			return "", false
		}
		if s.logger != nil {
			s.logger.Error("candidate upsert failed",
				zap.Error(err),
				zap.String("candidate_id", cand.CandidateID),
				zap.String("trait_name", cand.TraitName),
			)
		}
		return "", false
	}
	return cand.CandidateID, true
}

// SaveBatch intenta guardar cada candidato y devuelve cuantos se
// intentaron. La semantica de upsert hace poco fiable "rows affected",
// asi que se reporta el conteo de intentos, no de cambios.
func (s *CandidateStore) SaveBatch(ctx context.Context, cands []domain.ExtractedTraitCandidate) int {
	if s.pool == nil || len(cands) == 0 {
		return 0
	}

	attempted := 0
	for _, cand := range cands {
		attempted++
		s.SaveOne(ctx, cand)
	}
	return attempted
}

// UpdateStatusByTrait transiciona el estado de los candidatos de un rasgo
// (flujo de feedback). La clave es usuario+trait_id porque el llamador
// conoce la identidad del rasgo en el grafo, no el candidate_id por
// paquete. Cero filas afectadas es falla: no habia candidato que espejar.
// Nunca borra filas.
func (s *CandidateStore) UpdateStatusByTrait(ctx context.Context, userID, traitID, status string) bool {
	if s.pool == nil {
		return false
	}

	const query = `
		UPDATE trait_candidates
		SET status = $3, updated_at = NOW()
		WHERE user_id = $1 AND trait_id = $2
	`
	tag, err := s.pool.Exec(ctx, query, userID, traitID, status)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("candidate status update failed", zap.Error(err), zap.String("trait_id", traitID))
		}
		return false
	}
	if tag.RowsAffected() == 0 {
		if s.logger != nil {
			s.logger.Warn("candidate status update matched no rows",
				zap.String("user_id", userID),
				zap.String("trait_id", traitID),
			)
		}
		return false
	}
	return true
}
