package derive

import (
	"testing"

	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

func featureSet(id, model, text string) domain.RawAnalysisFeatureSet {
	return domain.RawAnalysisFeatureSet{
		FeatureSetID:          id,
		UserID:                "user-1",
		SourceUserDataPackage: "pkg-1",
		Modality:              "text",
		ModelNameOrType:       model,
		ExtractedFeatures:     map[string]interface{}{"model_output_text": text},
		Status:                domain.FeatureSetStatusCompleted,
	}
}

func TestDeriveEmptyInput(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	got := engine.Derive("user-1", "pkg-1", nil)
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %d candidates", len(got))
	}
}

func TestDeriveAIEthicsScenario(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	fs := featureSet("fs-1", "gemini:gemini-2.0-flash",
		"Key topics discussed include AI ethics, machine learning, and data privacy.")

	got := engine.Derive("user-1", "pkg-1", []domain.RawAnalysisFeatureSet{fs})
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d", len(got))
	}

	cand := got[0]
	if cand.TraitName != "Interest in AI Ethics" {
		t.Fatalf("expected trait 'Interest in AI Ethics', got %q", cand.TraitName)
	}
	if cand.TraitCategory != "Interest" {
		t.Fatalf("expected category Interest, got %q", cand.TraitCategory)
	}
	if cand.ConfidenceScore != 0.65 {
		t.Fatalf("expected confidence 0.65, got %v", cand.ConfidenceScore)
	}
	if cand.Status != domain.CandidateStatusCandidate {
		t.Fatalf("expected status candidate, got %q", cand.Status)
	}
	if len(cand.SupportingEvidence) != 1 {
		t.Fatalf("expected 1 evidence snippet, got %d", len(cand.SupportingEvidence))
	}
	if cand.SupportingEvidence[0].SourcePackageID != "pkg-1" {
		t.Fatalf("expected evidence to carry package id, got %+v", cand.SupportingEvidence[0])
	}
}

func TestDeriveMergesSameTrait(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	sets := []domain.RawAnalysisFeatureSet{
		featureSet("fs-1", "gemini:gemini-2.0-flash", "The user keeps coming back to AI ethics debates."),
		featureSet("fs-2", "openai:gpt-4o-mini", "Strong engagement with AI ethics and a stoic outlook on setbacks."),
	}

	got := engine.Derive("user-1", "pkg-1", sets)
	if len(got) != 2 {
		t.Fatalf("expected exactly 2 candidates, got %d", len(got))
	}

	ethics := got[0]
	if ethics.TraitName != "Interest in AI Ethics" {
		t.Fatalf("expected merged AI ethics candidate first, got %q", ethics.TraitName)
	}
	if len(ethics.SupportingEvidence) != 2 {
		t.Fatalf("expected 2 evidence snippets, got %d", len(ethics.SupportingEvidence))
	}
	if len(ethics.OriginatingModels) != 2 {
		t.Fatalf("expected 2 originating models, got %v", ethics.OriginatingModels)
	}
	if len(ethics.AssociatedFeatureSetIDs) != 2 {
		t.Fatalf("expected 2 feature set ids, got %v", ethics.AssociatedFeatureSetIDs)
	}
	// La evidencia sigue el orden de evaluacion: fs-1 antes que fs-2.
	if ethics.SupportingEvidence[0].SourceDetail != "gemini:gemini-2.0-flash" {
		t.Fatalf("unexpected evidence order: %+v", ethics.SupportingEvidence)
	}

	stoic := got[1]
	if stoic.TraitName != "Stoic Disposition" {
		t.Fatalf("expected stoic candidate second, got %q", stoic.TraitName)
	}
	if len(stoic.SupportingEvidence) != 1 {
		t.Fatalf("expected 1 evidence snippet for stoic, got %d", len(stoic.SupportingEvidence))
	}
}

func TestDeriveConfidenceIsMaxNotMean(t *testing.T) {
	rules := []PatternRule{
		{TraitName: "Curiosity", Category: "Personality", Confidence: 0.40, Keywords: []string{"curious"}},
		{TraitName: "Curiosity", Category: "Personality", Confidence: 0.90, Keywords: []string{"inquisitive"}},
	}
	engine := NewEngine(rules, zap.NewNop())
	fs := featureSet("fs-1", "gemini:gemini-2.0-flash", "Deeply curious and notably inquisitive.")

	got := engine.Derive("user-1", "pkg-1", []domain.RawAnalysisFeatureSet{fs})
	if len(got) != 1 {
		t.Fatalf("expected 1 merged candidate, got %d", len(got))
	}
	if got[0].ConfidenceScore != 0.90 {
		t.Fatalf("expected max confidence 0.90, got %v", got[0].ConfidenceScore)
	}
	if len(got[0].SupportingEvidence) != 2 {
		t.Fatalf("expected evidence from both rules, got %d", len(got[0].SupportingEvidence))
	}
}

func TestDeriveOrderIndependentMembership(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	a := featureSet("fs-a", "model-a", "Interested in AI ethics.")
	b := featureSet("fs-b", "model-b", "Practices daily meditation.")

	forward := engine.Derive("user-1", "pkg-1", []domain.RawAnalysisFeatureSet{a, b})
	reversed := engine.Derive("user-1", "pkg-1", []domain.RawAnalysisFeatureSet{b, a})

	names := func(cands []domain.ExtractedTraitCandidate) map[string]bool {
		m := map[string]bool{}
		for _, c := range cands {
			m[c.TraitName] = true
		}
		return m
	}

	fw, rv := names(forward), names(reversed)
	if len(fw) != len(rv) {
		t.Fatalf("membership differs: %v vs %v", fw, rv)
	}
	for name := range fw {
		if !rv[name] {
			t.Fatalf("candidate %q missing in reversed run", name)
		}
	}
}

func TestDeriveNoMatchesNoOutput(t *testing.T) {
	engine := NewEngine(nil, zap.NewNop())
	fs := featureSet("fs-1", "model-a", "Nothing relevant was discussed at all.")

	got := engine.Derive("user-1", "pkg-1", []domain.RawAnalysisFeatureSet{fs})
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}
