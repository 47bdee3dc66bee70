package domain

// ConceptMention es un concepto detectado en los datos del usuario,
// destinado a la relacion User-MENTIONS->Concept del PKG.
type ConceptMention struct {
	Name         string   `json:"name"`
	Frequency    int      `json:"frequency"`
	SentimentAvg *float64 `json:"sentimentAvg,omitempty"`
}

// Estados y origenes de un nodo Trait dentro del PKG.
const (
	GraphTraitStatusCandidate = "candidate"
	GraphTraitStatusConfirmed = "active_user_confirmed"
	GraphTraitStatusModified  = "active_user_modified"
	GraphTraitStatusRejected  = "rejected_by_user"

	TraitOriginAIDerived   = "ai_derived"
	TraitOriginAIConfirmed = "ai_confirmed_user"
	TraitOriginAIRefined   = "ai_refined_user"
	TraitOriginUserDefined = "user_defined"
)

// Decisiones del flujo de confirmacion de rasgos.
const (
	TraitDecisionConfirmedAsIs     = "confirmed_asis"
	TraitDecisionConfirmedModified = "confirmed_modified"
	TraitDecisionRejected          = "rejected"
)

// TraitModifications son los campos que el usuario puede sobreescribir
// al confirmar un rasgo con cambios.
type TraitModifications struct {
	Name           string   `json:"name,omitempty"`
	Description    string   `json:"description,omitempty"`
	Category       string   `json:"category,omitempty"`
	UserConfidence *float64 `json:"userConfidence,omitempty"`
}
