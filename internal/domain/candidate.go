package domain

import "time"

// Categorias de rasgos soportadas por las reglas de derivacion.
const (
	TraitCategoryInterest      = "Interest"
	TraitCategoryPersonality   = "Personality"
	TraitCategoryValue         = "Value"
	TraitCategoryCommunication = "CommunicationStyle"
)

// Estados del ciclo de vida de un candidato. Nunca se borra, solo transiciona.
const (
	CandidateStatusCandidate = "candidate"
	CandidateStatusConfirmed = "confirmed_by_user"
	CandidateStatusRejected  = "rejected_by_user"
	CandidateStatusModified  = "modified_by_user"
)

// EvidenceSnippet es un extracto que respalda un rasgo. Pertenece a un
// unico candidato (o a un nodo Trait en el PKG); nunca se comparte.
type EvidenceSnippet struct {
	Type            string   `json:"type"`
	Content         string   `json:"content"`
	SourcePackageID string   `json:"sourcePackageID"`
	SourceDetail    string   `json:"sourceDetail"`
	RelevanceScore  *float64 `json:"relevanceScore,omitempty"`
}

// ExtractedTraitCandidate es un rasgo provisional derivado por IA, pendiente
// de confirmacion del usuario. TraitName es la clave de dedup dentro de una
// llamada de derivacion; ConfidenceScore es el maximo de los candidatos
// fusionados, nunca un promedio.
type ExtractedTraitCandidate struct {
	CandidateID             string            `json:"candidateID"`
	UserID                  string            `json:"userID"`
	TraitName               string            `json:"traitName"`
	TraitDescription        string            `json:"traitDescription,omitempty"`
	TraitCategory           string            `json:"traitCategory"`
	SupportingEvidence      []EvidenceSnippet `json:"supportingEvidenceSnippets"`
	ConfidenceScore         float64           `json:"confidenceScore"`
	OriginatingModels       []string          `json:"originatingModels"`
	AssociatedFeatureSetIDs []string          `json:"associatedFeatureSetIDs"`
	Status                  string            `json:"status"`
	CreationTimestamp       time.Time         `json:"creationTimestamp"`
	LastUpdatedTimestamp    time.Time         `json:"lastUpdatedTimestamp"`
}
