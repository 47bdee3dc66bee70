// Package graph escribe el Persona Knowledge Graph (PKG) en Neo4j.
// Cada escritura es una transaccion gestionada independiente: una falla
// tardia no revierte escrituras anteriores, y como cada mutacion es
// idempotente, repetir la secuencia completa en un reintento es seguro.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

const queryPrefixLen = 80

// WriteError envuelve cualquier excepcion del driver con el prefijo de la
// consulta que fallo y el mensaje subyacente.
type WriteError struct {
	Query string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("graph write failed [%s…]: %v", e.Query, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// mutationRunner ejecuta una mutacion como transaccion de escritura y
// devuelve las propiedades del primer registro si la consulta hace RETURN.
type mutationRunner interface {
	run(ctx context.Context, m mutation) (map[string]any, error)
}

// Writer expone las operaciones de mutacion del PKG. Las operaciones
// devuelven false/nil ante cualquier falla (registrada con detalle) en
// vez de propagar la excepcion del driver.
type Writer struct {
	runner  mutationRunner
	timeout time.Duration
	logger  *zap.Logger
}

// NewWriter construye el writer del PKG. Un driver nil deja el writer
// "no configurado": toda operacion devuelve false/nil en silencio.
func NewWriter(driver neo4j.DriverWithContext, timeout time.Duration, logger *zap.Logger) *Writer {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	w := &Writer{timeout: timeout, logger: logger}
	if driver != nil {
		w.runner = &neo4jRunner{driver: driver}
	}
	return w
}

// Configured indica si hay driver detras del writer.
func (w *Writer) Configured() bool { return w.runner != nil }

// runWrite es el unico punto que aplica timeout y traduccion de errores
// para todas las mutaciones del PKG.
func (w *Writer) runWrite(ctx context.Context, m mutation) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	props, err := w.runner.run(ctx, m)
	if err != nil {
		prefix := m.cypher
		if len(prefix) > queryPrefixLen {
			prefix = prefix[:queryPrefixLen]
		}
		return nil, &WriteError{Query: prefix, Err: err}
	}
	return props, nil
}

func (w *Writer) logWriteError(op string, err error, fields ...zap.Field) {
	if w.logger == nil {
		return
	}
	fields = append(fields, zap.Error(err), zap.String("operation", op))
	w.logger.Error("pkg write failed", fields...)
}

// EnsureUserNode garantiza que el nodo User existe.
func (w *Writer) EnsureUserNode(ctx context.Context, userID string) bool {
	if w.runner == nil {
		return false
	}
	if _, err := w.runWrite(ctx, mergeUserNode(userID)); err != nil {
		w.logWriteError("ensure_user_node", err, zap.String("user_id", userID))
		return false
	}
	return true
}

// AddTraitCandidate registra el candidato en el grafo: nodo Trait,
// relacion User->Trait y, por cada evidencia, nodo Evidence mas relacion
// Trait->Evidence. Total de escrituras: 2 + 2*|evidencia|.
func (w *Writer) AddTraitCandidate(ctx context.Context, userID string, cand domain.ExtractedTraitCandidate) bool {
	if w.runner == nil {
		return false
	}

	traitID := domain.NewTraitID(userID, cand.TraitName)
	muts := make([]mutation, 0, 2+2*len(cand.SupportingEvidence))
	muts = append(muts, mergeTraitNode(traitID, cand))
	muts = append(muts, mergeHasTraitRel(userID, traitID))
	for _, ev := range cand.SupportingEvidence {
		key := domain.NewEvidenceKey(ev.Content, ev.SourceDetail)
		muts = append(muts, mergeEvidenceNode(key, ev))
		muts = append(muts, mergeSupportedByRel(traitID, key))
	}

	for _, m := range muts {
		if _, err := w.runWrite(ctx, m); err != nil {
			w.logWriteError("add_trait_candidate", err,
				zap.String("user_id", userID),
				zap.String("trait_id", traitID),
				zap.String("mutation", m.name),
			)
			return false
		}
	}
	return true
}

// AddMentionedConcepts registra conceptos mencionados. Una lista vacia es
// exito trivial sin escrituras. Una falla a mitad de lista no corta el
// resto de escrituras; el resultado agregado solo es exito si todas las
// escrituras individuales lo fueron.
func (w *Writer) AddMentionedConcepts(ctx context.Context, userID string, concepts []domain.ConceptMention, packageID string) bool {
	if len(concepts) == 0 {
		return true
	}
	if w.runner == nil {
		return false
	}

	allOK := true
	for _, c := range concepts {
		key := domain.NormalizeConceptName(c.Name)
		if key == "" {
			continue
		}
		for _, m := range []mutation{mergeConceptNode(key, c), mergeMentionsRel(userID, key, packageID, c)} {
			if _, err := w.runWrite(ctx, m); err != nil {
				w.logWriteError("add_mentioned_concepts", err,
					zap.String("user_id", userID),
					zap.String("concept", key),
					zap.String("mutation", m.name),
				)
				allOK = false
			}
		}
	}
	return allOK
}

// UpdateTraitStatusAndProperties aplica la decision del usuario sobre un
// rasgo: confirmed_asis, confirmed_modified o rejected. Cada transicion
// emite al menos tres escrituras (MERGE de User, SET del Trait y update
// de la relacion). Devuelve las propiedades actualizadas del Trait, o nil
// ante falla o decision desconocida. El rechazo marca la relacion como
// inactiva; nunca la borra, para conservar historial.
func (w *Writer) UpdateTraitStatusAndProperties(ctx context.Context, userID, traitID, decision string, modifications *domain.TraitModifications, originalDetails map[string]any) map[string]any {
	if w.runner == nil {
		return nil
	}

	props := map[string]any{}
	relActive := true
	switch decision {
	case domain.TraitDecisionConfirmedAsIs:
		props["status"] = domain.GraphTraitStatusConfirmed
		props["origin"] = domain.TraitOriginAIConfirmed
	case domain.TraitDecisionConfirmedModified:
		props["status"] = domain.GraphTraitStatusModified
		props["origin"] = domain.TraitOriginAIRefined
		// originalDetails aporta defaults; modifications los sobreescribe.
		for _, field := range []string{"name", "description", "category"} {
			if v, ok := originalDetails[field]; ok {
				props[field] = v
			}
		}
		if modifications != nil {
			if modifications.Name != "" {
				props["name"] = modifications.Name
			}
			if modifications.Description != "" {
				props["description"] = modifications.Description
			}
			if modifications.Category != "" {
				props["category"] = modifications.Category
			}
			if modifications.UserConfidence != nil {
				props["userConfidence"] = *modifications.UserConfidence
			}
		}
	case domain.TraitDecisionRejected:
		props["status"] = domain.GraphTraitStatusRejected
		relActive = false
	default:
		if w.logger != nil {
			w.logger.Warn("unknown trait decision", zap.String("decision", decision), zap.String("trait_id", traitID))
		}
		return nil
	}

	if _, err := w.runWrite(ctx, mergeUserNode(userID)); err != nil {
		w.logWriteError("update_trait_status", err, zap.String("user_id", userID))
		return nil
	}

	updated, err := w.runWrite(ctx, setTraitDecision(traitID, props))
	if err != nil {
		w.logWriteError("update_trait_status", err, zap.String("trait_id", traitID))
		return nil
	}

	if _, err := w.runWrite(ctx, setHasTraitActive(userID, traitID, relActive)); err != nil {
		w.logWriteError("update_trait_status", err, zap.String("trait_id", traitID))
		return nil
	}

	return updated
}

// AddCustomTrait crea un rasgo definido directamente por el usuario y lo
// relaciona con su evidencia textual. Devuelve las propiedades del nuevo
// nodo, o nil ante falla.
func (w *Writer) AddCustomTrait(ctx context.Context, userID, name, category, description string, evidenceTexts []string, userConfidence *float64) map[string]any {
	if w.runner == nil {
		return nil
	}
	if name == "" || category == "" {
		return nil
	}

	traitID := domain.NewTraitID(userID, name)

	if _, err := w.runWrite(ctx, mergeUserNode(userID)); err != nil {
		w.logWriteError("add_custom_trait", err, zap.String("user_id", userID))
		return nil
	}

	props, err := w.runWrite(ctx, mergeCustomTraitNode(traitID, name, category, description, userConfidence))
	if err != nil {
		w.logWriteError("add_custom_trait", err, zap.String("trait_id", traitID))
		return nil
	}

	if _, err := w.runWrite(ctx, mergeHasTraitRel(userID, traitID)); err != nil {
		w.logWriteError("add_custom_trait", err, zap.String("trait_id", traitID))
		return nil
	}

	for _, text := range evidenceTexts {
		if text == "" {
			continue
		}
		ev := domain.EvidenceSnippet{Type: "user_statement", Content: text, SourceDetail: "user"}
		key := domain.NewEvidenceKey(ev.Content, ev.SourceDetail)
		if _, err := w.runWrite(ctx, mergeEvidenceNode(key, ev)); err != nil {
			w.logWriteError("add_custom_trait", err, zap.String("trait_id", traitID))
			return nil
		}
		if _, err := w.runWrite(ctx, mergeSupportedByRel(traitID, key)); err != nil {
			w.logWriteError("add_custom_trait", err, zap.String("trait_id", traitID))
			return nil
		}
	}

	return props
}

// UpdateCommunicationStyle registra o actualiza un hecho de estilo de
// comunicacion del usuario. Devuelve las propiedades actualizadas o nil.
func (w *Writer) UpdateCommunicationStyle(ctx context.Context, userID, styleDimension, value string) map[string]any {
	if w.runner == nil {
		return nil
	}
	if styleDimension == "" {
		return nil
	}

	if _, err := w.runWrite(ctx, mergeUserNode(userID)); err != nil {
		w.logWriteError("update_communication_style", err, zap.String("user_id", userID))
		return nil
	}

	props, err := w.runWrite(ctx, mergeStyleEntry(userID, styleDimension, value))
	if err != nil {
		w.logWriteError("update_communication_style", err,
			zap.String("user_id", userID),
			zap.String("dimension", styleDimension),
		)
		return nil
	}

	if _, err := w.runWrite(ctx, mergeAdoptsStyleRel(userID, styleDimension)); err != nil {
		w.logWriteError("update_communication_style", err, zap.String("user_id", userID))
		return nil
	}

	return props
}

// neo4jRunner ejecuta mutaciones con transacciones gestionadas del driver.
type neo4jRunner struct {
	driver neo4j.DriverWithContext
}

func (r *neo4jRunner) run(ctx context.Context, m mutation) (map[string]any, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, m.cypher, m.params)
		if err != nil {
			return nil, err
		}
		// Las mutaciones sin RETURN no producen registros; no es falla.
		var props map[string]any
		for res.Next(ctx) {
			if v, ok := res.Record().Get("props"); ok {
				if asMap, ok := v.(map[string]any); ok {
					props = asMap
				}
			}
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return props, nil
	})
	if err != nil {
		return nil, err
	}
	if props, ok := result.(map[string]any); ok {
		return props, nil
	}
	return nil, nil
}
