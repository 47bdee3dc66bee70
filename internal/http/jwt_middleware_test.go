package http

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"persona-ingest/internal/domain"
	"persona-ingest/internal/service"
)

func TestMiddlewareMissingToken(t *testing.T) {
	router, _ := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", "", gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	router, _ := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", "not-a-jwt", gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestMiddlewareExpiredToken(t *testing.T) {
	router, _ := setupTraitAPI(t, &mockGraph{configured: true}, &mockCandidates{configured: true})

	claims := service.Claims{
		UserID:    "user-abc",
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "persona-ingest",
			Subject:   "user-abc",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	rec := doJSON(router, http.MethodPost, "/traits/trait-1/decision", expired, gin.H{
		"decision": domain.TraitDecisionConfirmedAsIs,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "token expired") {
		t.Fatalf("expected expired token error, got %s", body)
	}
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"Bearer   ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		token, ok := bearerToken(tc.header)
		if token != tc.token || ok != tc.ok {
			t.Errorf("bearerToken(%q) = (%q, %v), expected (%q, %v)", tc.header, token, ok, tc.token, tc.ok)
		}
	}
}
