package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result es el veredicto del servicio de consentimiento para un scope.
// Toda falla operativa se traduce en IsValid=false con una razon
// distintiva: la puerta siempre falla cerrada.
type Result struct {
	IsValid      bool                   `json:"isValid"`
	DeniedReason string                 `json:"deniedReason,omitempty"`
	GrantedScope map[string]interface{} `json:"grantedScopeDetails,omitempty"`
}

// Gate verifica que el usuario autorizo un uso concreto de sus datos.
type Gate interface {
	Verify(ctx context.Context, userID, consentTokenID, requiredScope string) Result
}

// HTTPGate implementa Gate contra el servicio HTTP de consentimiento.
type HTTPGate struct {
	baseURL string
	client  *http.Client
	cache   DecisionCache
	logger  *zap.Logger
}

// NewHTTPGate construye la puerta de consentimiento. baseURL vacia produce
// una puerta que niega todo con razon "Consent service not configured".
func NewHTTPGate(baseURL string, timeout time.Duration, cache DecisionCache, logger *zap.Logger) *HTTPGate {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPGate{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
		logger:  logger,
	}
}

func (g *HTTPGate) Verify(ctx context.Context, userID, consentTokenID, requiredScope string) Result {
	if g.baseURL == "" {
		return Result{IsValid: false, DeniedReason: "Consent service not configured"}
	}
	if strings.TrimSpace(consentTokenID) == "" {
		return Result{IsValid: false, DeniedReason: "Missing consentTokenID for consent verification"}
	}

	if g.cache != nil {
		if cached, ok := g.cache.Get(ctx, userID, consentTokenID, requiredScope); ok {
			return cached
		}
	}

	q := url.Values{}
	q.Set("userID", userID)
	q.Set("scope", requiredScope)
	q.Set("consentTokenID", consentTokenID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/verify?"+q.Encode(), nil)
	if err != nil {
		return Result{IsValid: false, DeniedReason: fmt.Sprintf("Consent API request error: %v", err)}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("consent request failed", zap.Error(err), zap.String("user_id", userID), zap.String("scope", requiredScope))
		}
		return Result{IsValid: false, DeniedReason: fmt.Sprintf("Consent API request error: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{IsValid: false, DeniedReason: fmt.Sprintf("Consent API request error: %v", err)}
	}

	if resp.StatusCode >= 400 {
		if g.logger != nil {
			g.logger.Warn("consent http error", zap.Int("status", resp.StatusCode), zap.String("user_id", userID))
		}
		return Result{IsValid: false, DeniedReason: fmt.Sprintf("Consent API HTTP error: %d", resp.StatusCode)}
	}

	var payload struct {
		IsValid             bool                   `json:"isValid"`
		ScopeGranted        map[string]interface{} `json:"scopeGranted"`
		ReasonForInvalidity string                 `json:"reason_for_invalidity"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{IsValid: false, DeniedReason: fmt.Sprintf("Consent API request error: %v", err)}
	}

	result := Result{
		IsValid:      payload.IsValid,
		DeniedReason: payload.ReasonForInvalidity,
		GrantedScope: payload.ScopeGranted,
	}

	// Solo cacheamos veredictos reales del servicio, nunca fallas de transporte.
	if g.cache != nil {
		g.cache.Put(ctx, userID, consentTokenID, requiredScope, result)
	}

	return result
}
