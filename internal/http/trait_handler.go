package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

// graphUpdater es el subconjunto del writer de grafo que usa la API de
// feedback. Un map nil significa que la actualizacion no se aplico.
type graphUpdater interface {
	Configured() bool
	UpdateTraitStatusAndProperties(ctx context.Context, userID, traitID, decision string, modifications *domain.TraitModifications, originalDetails map[string]any) map[string]any
	AddCustomTrait(ctx context.Context, userID, name, category, description string, evidenceTexts []string, userConfidence *float64) map[string]any
	UpdateCommunicationStyle(ctx context.Context, userID, styleDimension, value string) map[string]any
}

// candidateUpdater refleja la decision en la fila relacional del candidato,
// localizada por usuario + identidad del rasgo en el grafo.
type candidateUpdater interface {
	Configured() bool
	UpdateStatusByTrait(ctx context.Context, userID, traitID, status string) bool
}

// TraitHandler expone el flujo de confirmacion de rasgos: decision sobre un
// candidato, alta manual de rasgo y estilo de comunicacion declarado.
type TraitHandler struct {
	graph      graphUpdater
	candidates candidateUpdater
	logger     *zap.Logger
}

func NewTraitHandler(graph graphUpdater, candidates candidateUpdater, logger *zap.Logger) *TraitHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TraitHandler{graph: graph, candidates: candidates, logger: logger}
}

type traitDecisionRequest struct {
	Decision      string `json:"decision" binding:"required"`
	Modifications *struct {
		Name           string   `json:"name,omitempty"`
		Description    string   `json:"description,omitempty"`
		Category       string   `json:"category,omitempty"`
		UserConfidence *float64 `json:"userConfidence,omitempty"`
	} `json:"modifications,omitempty"`
	OriginalDetails map[string]any `json:"originalDetails,omitempty"`
}

// DecideTrait aplica la decision del usuario sobre un rasgo candidato.
// POST /traits/:traitID/decision
func (h *TraitHandler) DecideTrait(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	traitID := strings.TrimSpace(c.Param("traitID"))
	if traitID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "traitID is required"})
		return
	}

	var req traitDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var candidateStatus string
	switch req.Decision {
	case domain.TraitDecisionConfirmedAsIs:
		candidateStatus = domain.CandidateStatusConfirmed
	case domain.TraitDecisionConfirmedModified:
		candidateStatus = domain.CandidateStatusModified
	case domain.TraitDecisionRejected:
		candidateStatus = domain.CandidateStatusRejected
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown decision"})
		return
	}

	if h.graph == nil || !h.graph.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persona graph not configured"})
		return
	}

	var mods *domain.TraitModifications
	if req.Modifications != nil {
		mods = &domain.TraitModifications{
			Name:           req.Modifications.Name,
			Description:    req.Modifications.Description,
			Category:       req.Modifications.Category,
			UserConfidence: req.Modifications.UserConfidence,
		}
	}

	props := h.graph.UpdateTraitStatusAndProperties(c.Request.Context(), claims.UserID, traitID, req.Decision, mods, req.OriginalDetails)
	if props == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph update failed"})
		return
	}

	// El espejo relacional es best-effort: un fallo se loguea y no revierte
	// la decision ya aplicada en el grafo.
	if h.candidates != nil && h.candidates.Configured() {
		if ok := h.candidates.UpdateStatusByTrait(c.Request.Context(), claims.UserID, traitID, candidateStatus); !ok {
			h.logger.Warn("candidate status mirror failed",
				zap.String("user_id", claims.UserID),
				zap.String("trait_id", traitID),
				zap.String("status", candidateStatus))
		}
	}

	c.JSON(http.StatusOK, gin.H{"trait": props})
}

type customTraitRequest struct {
	Name           string   `json:"name" binding:"required"`
	Category       string   `json:"category" binding:"required"`
	Description    string   `json:"description,omitempty"`
	EvidenceTexts  []string `json:"evidenceTexts,omitempty"`
	UserConfidence *float64 `json:"userConfidence,omitempty"`
}

// CreateCustomTrait registra un rasgo declarado directamente por el usuario.
// POST /traits/custom
func (h *TraitHandler) CreateCustomTrait(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req customTraitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if h.graph == nil || !h.graph.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persona graph not configured"})
		return
	}

	props := h.graph.AddCustomTrait(c.Request.Context(), claims.UserID, req.Name, req.Category, req.Description, req.EvidenceTexts, req.UserConfidence)
	if props == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph update failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trait": props})
}

type styleRequest struct {
	Value string `json:"value" binding:"required"`
}

// UpdateStyle fija una dimension del estilo de comunicacion del usuario.
// PUT /style/:dimension
func (h *TraitHandler) UpdateStyle(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	dimension := strings.TrimSpace(c.Param("dimension"))
	if dimension == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "dimension is required"})
		return
	}

	var req styleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if h.graph == nil || !h.graph.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persona graph not configured"})
		return
	}

	props := h.graph.UpdateCommunicationStyle(c.Request.Context(), claims.UserID, dimension, req.Value)
	if props == nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"style": props})
}
