// Package derive convierte feature sets crudos de analisis en candidatos
// de rasgo deduplicados mediante reglas de patron.
package derive

import (
	"time"

	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

// Engine aplica las reglas en orden y fusiona candidatos por TraitName.
type Engine struct {
	rules  []PatternRule
	logger *zap.Logger
}

// NewEngine construye el motor; sin reglas explicitas usa DefaultRules.
func NewEngine(rules []PatternRule, logger *zap.Logger) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Engine{rules: rules, logger: logger}
}

// Derive produce la lista deduplicada de candidatos para un paquete.
// Una lista de entrada vacia produce una lista vacia. La fusion por
// TraitName toma el maximo de confianza (nunca promedio), concatena la
// evidencia en orden de evaluacion y acumula modelos y feature sets de
// origen como conjuntos ordenados.
func (e *Engine) Derive(userID, packageID string, featureSets []domain.RawAnalysisFeatureSet) []domain.ExtractedTraitCandidate {
	merged := make(map[string]*domain.ExtractedTraitCandidate)
	order := make([]string, 0)
	now := time.Now().UTC()

	for _, fs := range featureSets {
		outputText := fs.ModelOutputText()
		if outputText == "" {
			continue
		}

		for _, rule := range e.rules {
			excerpt, ok := rule.Match(outputText)
			if !ok {
				continue
			}

			snippet := domain.EvidenceSnippet{
				Type:            "text_excerpt",
				Content:         excerpt,
				SourcePackageID: packageID,
				SourceDetail:    fs.ModelNameOrType,
			}

			existing, seen := merged[rule.TraitName]
			if !seen {
				merged[rule.TraitName] = &domain.ExtractedTraitCandidate{
					CandidateID:             domain.NewCandidateID(userID, packageID, rule.TraitName),
					UserID:                  userID,
					TraitName:               rule.TraitName,
					TraitDescription:        rule.Description,
					TraitCategory:           rule.Category,
					SupportingEvidence:      []domain.EvidenceSnippet{snippet},
					ConfidenceScore:         rule.Confidence,
					OriginatingModels:       []string{fs.ModelNameOrType},
					AssociatedFeatureSetIDs: []string{fs.FeatureSetID},
					Status:                  domain.CandidateStatusCandidate,
					CreationTimestamp:       now,
					LastUpdatedTimestamp:    now,
				}
				order = append(order, rule.TraitName)
				continue
			}

			if rule.Confidence > existing.ConfidenceScore {
				existing.ConfidenceScore = rule.Confidence
			}
			existing.SupportingEvidence = append(existing.SupportingEvidence, snippet)
			existing.OriginatingModels = appendDistinct(existing.OriginatingModels, fs.ModelNameOrType)
			existing.AssociatedFeatureSetIDs = appendDistinct(existing.AssociatedFeatureSetIDs, fs.FeatureSetID)
		}
	}

	candidates := make([]domain.ExtractedTraitCandidate, 0, len(order))
	for _, name := range order {
		candidates = append(candidates, *merged[name])
	}

	if e.logger != nil && len(candidates) > 0 {
		e.logger.Info("traits derived",
			zap.String("user_id", userID),
			zap.String("package_id", packageID),
			zap.Int("feature_sets", len(featureSets)),
			zap.Int("candidates", len(candidates)),
		)
	}

	return candidates
}

// appendDistinct agrega el valor solo si no esta ya, preservando el orden.
func appendDistinct(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
