package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-ingest/internal/domain"
	"persona-ingest/internal/service"
)

type mockGraph struct {
	configured bool
	fail       bool

	lastDecision string
	lastTraitID  string
	lastMods     *domain.TraitModifications
	customNames  []string
	styleDims    []string
}

func (m *mockGraph) Configured() bool { return m.configured }

func (m *mockGraph) UpdateTraitStatusAndProperties(_ context.Context, _, traitID, decision string, mods *domain.TraitModifications, _ map[string]any) map[string]any {
	if m.fail {
		return nil
	}
	m.lastTraitID = traitID
	m.lastDecision = decision
	m.lastMods = mods
	return map[string]any{"traitID": traitID, "status": decision}
}

func (m *mockGraph) AddCustomTrait(_ context.Context, _, name, _, _ string, _ []string, _ *float64) map[string]any {
	if m.fail {
		return nil
	}
	m.customNames = append(m.customNames, name)
	return map[string]any{"name": name, "origin": domain.TraitOriginUserDefined}
}

func (m *mockGraph) UpdateCommunicationStyle(_ context.Context, _, dimension, value string) map[string]any {
	if m.fail {
		return nil
	}
	m.styleDims = append(m.styleDims, dimension)
	return map[string]any{"dimension": dimension, "value": value}
}

type mockCandidates struct {
	configured bool
	fail       bool
	lastUserID string
	updates    map[string]string
}

func (m *mockCandidates) Configured() bool { return m.configured }

func (m *mockCandidates) UpdateStatusByTrait(_ context.Context, userID, traitID, status string) bool {
	if m.fail {
		return false
	}
	m.lastUserID = userID
	if m.updates == nil {
		m.updates = map[string]string{}
	}
	m.updates[traitID] = status
	return true
}

func setupTraitAPI(t *testing.T, graph *mockGraph, cands *mockCandidates) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtSvc := service.NewJWTService("test-secret", time.Minute)
	token, err := jwtSvc.GenerateAccessToken("user-abc")
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	handler := NewTraitHandler(graph, cands, zap.NewNop())
	return NewRouter(zap.NewNop(), jwtSvc, handler), token
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDecideTraitConfirm(t *testing.T) {
	graph := &mockGraph{configured: true}
	cands := &mockCandidates{configured: true}
	router, token := setupTraitAPI(t, graph, cands)

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", token, gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if graph.lastDecision != domain.TraitDecisionConfirmedAsIs || graph.lastTraitID != "trait-1" {
		t.Errorf("graph not updated: %+v", graph)
	}
	if cands.updates["trait-1"] != domain.CandidateStatusConfirmed {
		t.Errorf("candidate status not mirrored: %v", cands.updates)
	}
	if cands.lastUserID != "user-abc" {
		t.Errorf("mirror must be scoped to the token's user, got %q", cands.lastUserID)
	}
}

func TestDecideTraitModifiedCarriesModifications(t *testing.T) {
	graph := &mockGraph{configured: true}
	router, token := setupTraitAPI(t, graph, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-2/decision", token, gin.H{
		"decision": domain.TraitDecisionConfirmedModified,
		"modifications": gin.H{
			"name":           "Deep Interest in AI Ethics",
			"userConfidence": 0.9,
		},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if graph.lastMods == nil || graph.lastMods.Name != "Deep Interest in AI Ethics" {
		t.Errorf("modifications not forwarded: %+v", graph.lastMods)
	}
	if graph.lastMods.UserConfidence == nil || *graph.lastMods.UserConfidence != 0.9 {
		t.Errorf("user confidence not forwarded")
	}
}

func TestDecideTraitRejectedMirrorsStatus(t *testing.T) {
	graph := &mockGraph{configured: true}
	cands := &mockCandidates{configured: true}
	router, token := setupTraitAPI(t, graph, cands)

	rec := doJSON(router, http.MethodPost, "/traits/trait-3/decision", token, gin.H{
		"decision": domain.TraitDecisionRejected,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cands.updates["trait-3"] != domain.CandidateStatusRejected {
		t.Errorf("rejection not mirrored: %v", cands.updates)
	}
}

func TestDecideTraitUnknownDecision(t *testing.T) {
	router, token := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", token, gin.H{
		"decision": "maybe_later",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDecideTraitRequiresToken(t *testing.T) {
	router, _ := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", "", gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestDecideTraitGraphFailure(t *testing.T) {
	router, token := setupTraitAPI(t, &mockGraph{configured: true, fail: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", token, gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestDecideTraitGraphNotConfigured(t *testing.T) {
	router, token := setupTraitAPI(t, &mockGraph{configured: false}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", token, gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestDecideTraitCandidateMirrorFailureIsSoft(t *testing.T) {
	graph := &mockGraph{configured: true}
	router, token := setupTraitAPI(t, graph, &mockCandidates{configured: true, fail: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", token, gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("mirror failure must not fail the request, got %d", rec.Code)
	}
}

func TestCreateCustomTrait(t *testing.T) {
	graph := &mockGraph{configured: true}
	router, token := setupTraitAPI(t, graph, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/custom", token, gin.H{
		"name":     "Passion for Chess",
		"category": domain.TraitCategoryInterest,
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(graph.customNames) != 1 || graph.customNames[0] != "Passion for Chess" {
		t.Errorf("custom trait not created: %v", graph.customNames)
	}
}

func TestCreateCustomTraitValidation(t *testing.T) {
	router, token := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/custom", token, gin.H{
		"description": "missing name and category",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateStyle(t *testing.T) {
	graph := &mockGraph{configured: true}
	router, token := setupTraitAPI(t, graph, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPut, "/style/formality", token, gin.H{
		"value": "casual",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(graph.styleDims) != 1 || graph.styleDims[0] != "formality" {
		t.Errorf("style not updated: %v", graph.styleDims)
	}
}
