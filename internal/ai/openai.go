package ai

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIAdapter implementa Adapter sobre cualquier API OpenAI-compatible.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter construye el adaptador. Sin API key devuelve un
// adaptador sin inicializar.
func NewOpenAIAdapter(baseURL, apiKey, model string) *OpenAIAdapter {
	if apiKey == "" {
		return &OpenAIAdapter{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (a *OpenAIAdapter) Identifier() string {
	return "openai:" + a.model
}

func (a *OpenAIAdapter) Analyze(ctx context.Context, text, promptTemplate string, params map[string]interface{}) (AnalysisOutput, error) {
	if a.client == nil {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindNotInitialized, Message: "openai client not initialized"}
	}

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: renderPrompt(promptTemplate, text)},
		},
	}
	if temp, ok := params["temperature"].(float64); ok {
		req.Temperature = float32(temp)
	}
	if maxTokens, ok := params["max_tokens"].(int); ok {
		req.MaxTokens = maxTokens
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return AnalysisOutput{}, &AdapterError{Kind: ErrKindQuota, Message: "openai quota exceeded", Err: err}
		}
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "chat completion", Err: err}
	}

	if len(resp.Choices) == 0 {
		return AnalysisOutput{}, &AdapterError{Kind: ErrKindProvider, Message: "openai empty response"}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return AnalysisOutput{}, &AdapterError{
			Kind:    ErrKindSafetyBlocked,
			Message: "prompt blocked by safety filters: content_filter",
		}
	}

	return AnalysisOutput{
		ModelOutputText: cleanModelResponse(choice.Message.Content),
		ModelNameUsed:   a.Identifier(),
		ParametersUsed:  params,
		FinishReason:    string(choice.FinishReason),
		UsageMetadata: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
