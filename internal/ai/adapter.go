// Package ai define la capacidad polimorfica de analisis sobre texto.
// Cada proveedor (Gemini, OpenAI-compatibles) es una implementacion
// concreta seleccionada por configuracion.
package ai

import (
	"context"
	"fmt"
)

// Kinds de error del adaptador; el orquestador decide politica por kind.
const (
	ErrKindNotInitialized = "not_initialized"
	ErrKindSafetyBlocked  = "safety_blocked"
	ErrKindQuota          = "quota_exceeded"
	ErrKindProvider       = "provider_error"
)

// AdapterError es el error tipado de toda falla del adaptador.
type AdapterError struct {
	Kind    string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ai adapter [%s]: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("ai adapter [%s]: %s", e.Kind, e.Message)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Usage resume el consumo de tokens reportado por el proveedor.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AnalysisOutput es la salida estructurada de una invocacion de analisis.
type AnalysisOutput struct {
	ModelOutputText string                 `json:"model_output_text"`
	ModelNameUsed   string                 `json:"model_name_used"`
	ParametersUsed  map[string]interface{} `json:"parameters_used,omitempty"`
	FinishReason    string                 `json:"finish_reason,omitempty"`
	UsageMetadata   Usage                  `json:"usage_metadata"`
}

// Adapter expone exactamente dos capacidades: analizar texto con un
// template de prompt y reportar su identificador de modelo.
type Adapter interface {
	Analyze(ctx context.Context, text, promptTemplate string, params map[string]interface{}) (AnalysisOutput, error)
	Identifier() string
}

// renderPrompt sustituye el marcador de texto del template. Un template
// vacio usa el texto tal cual.
func renderPrompt(promptTemplate, text string) string {
	if promptTemplate == "" {
		return text
	}
	return promptTemplate + "\n\n" + text
}
