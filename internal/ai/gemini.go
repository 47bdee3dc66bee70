package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GeminiAdapter implementa Adapter contra la API generateContent de Gemini.
type GeminiAdapter struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewGeminiAdapter construye el adaptador. Sin API key el adaptador queda
// sin inicializar y toda llamada devuelve AdapterError not_initialized.
func NewGeminiAdapter(baseURL, apiKey, model string, logger *zap.Logger) *GeminiAdapter {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiAdapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

func (a *GeminiAdapter) Identifier() string {
	return "gemini:" + a.model
}

func (a *GeminiAdapter) Analyze(ctx context.Context, text, promptTemplate string, params map[string]interface{}) (AnalysisOutput, error) {
	if a.apiKey == "" {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindNotInitialized, Message: "gemini client not initialized"}
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: renderPrompt(promptTemplate, text)}}},
		},
	}
	if temp, ok := params["temperature"].(float64); ok {
		reqBody.GenerationConfig = &geminiGenerationConfig{Temperature: &temp}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "marshal request", Err: err}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "do request", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "read response", Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindQuota, Message: "gemini quota exceeded"}
	}
	if resp.StatusCode >= 400 {
		if a.logger != nil {
			a.logger.Warn("gemini error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", respBody))
		}
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: fmt.Sprintf("gemini http error: status=%d", resp.StatusCode)}
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "unmarshal response", Err: err}
	}

	if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return AnalysisOutput{}, &AdapterError{
			Kind:    ErrKindSafetyBlocked,
			Message: "prompt blocked by safety filters: " + gr.PromptFeedback.BlockReason,
		}
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "gemini empty response"}
	}

	cand := gr.Candidates[0]
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		sb.WriteString(part.Text)
	}

	out := AnalysisOutput{
		ModelOutputText: cleanModelResponse(sb.String()),
		ModelNameUsed:   a.Identifier(),
		ParametersUsed:  params,
		FinishReason:    cand.FinishReason,
	}
	if gr.UsageMetadata != nil {
		out.UsageMetadata = Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}
