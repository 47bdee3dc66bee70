package domain

import "time"

const (
	FeatureSetStatusCompleted = "completed"
	FeatureSetStatusFailed    = "failed"
	FeatureSetStatusSkipped   = "skipped"
)

// RawAnalysisFeatureSet es la salida cruda de una invocacion del adaptador de IA.
// FeatureSetID lo genera el productor y sirve como clave de almacenamiento,
// asi los reintentos sobreescriben el mismo documento en vez de duplicarlo.
type RawAnalysisFeatureSet struct {
	FeatureSetID          string                 `json:"featureSetID" bson:"_id"`
	UserID                string                 `json:"userID" bson:"userId"`
	SourceUserDataPackage string                 `json:"sourceUserDataPackageID" bson:"sourceUserDataPackageId"`
	Modality              string                 `json:"modality" bson:"modality"`
	ModelNameOrType       string                 `json:"modelNameOrType" bson:"modelNameOrType"`
	ExtractedFeatures     map[string]interface{} `json:"extractedFeatures" bson:"extractedFeatures"`
	Status                string                 `json:"status" bson:"status"`
	Timestamp             time.Time              `json:"timestamp" bson:"timestamp"`
}

// ModelOutputText devuelve el texto crudo del modelo dentro de ExtractedFeatures.
// Es la entrada del motor de derivacion de rasgos.
func (f RawAnalysisFeatureSet) ModelOutputText() string {
	if f.ExtractedFeatures == nil {
		return ""
	}
	if s, ok := f.ExtractedFeatures["model_output_text"].(string); ok {
		return s
	}
	return ""
}
