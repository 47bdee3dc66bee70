package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"persona-ingest/internal/domain"
)

type fakeRunner struct {
	mutations []mutation
	failOn    map[string]error
	returns   map[string]map[string]any
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{failOn: map[string]error{}, returns: map[string]map[string]any{}}
}

func (f *fakeRunner) run(_ context.Context, m mutation) (map[string]any, error) {
	f.mutations = append(f.mutations, m)
	if err, ok := f.failOn[m.name]; ok {
		return nil, err
	}
	if props, ok := f.returns[m.name]; ok {
		return props, nil
	}
	return nil, nil
}

func (f *fakeRunner) count(name string) int {
	n := 0
	for _, m := range f.mutations {
		if m.name == name {
			n++
		}
	}
	return n
}

func newTestWriter(runner mutationRunner) *Writer {
	return &Writer{runner: runner, timeout: time.Second, logger: zap.NewNop()}
}

func candidateWithEvidence(n int) domain.ExtractedTraitCandidate {
	cand := domain.ExtractedTraitCandidate{
		CandidateID:     "cand-1",
		UserID:          "user-1",
		TraitName:       "Interest in AI Ethics",
		TraitCategory:   domain.TraitCategoryInterest,
		ConfidenceScore: 0.65,
		Status:          domain.CandidateStatusCandidate,
	}
	for i := 0; i < n; i++ {
		cand.SupportingEvidence = append(cand.SupportingEvidence, domain.EvidenceSnippet{
			Type:            "text_excerpt",
			Content:         fmt.Sprintf("evidence %d", i),
			SourcePackageID: "pkg-1",
			SourceDetail:    "model-a",
		})
	}
	return cand
}

func TestEnsureUserNode(t *testing.T) {
	runner := newFakeRunner()
	w := newTestWriter(runner)

	if !w.EnsureUserNode(context.Background(), "user-1") {
		t.Fatal("expected success")
	}
	if len(runner.mutations) != 1 || runner.mutations[0].name != "merge_user_node" {
		t.Fatalf("unexpected mutations %+v", runner.mutations)
	}
}

func TestAddTraitCandidateWriteCount(t *testing.T) {
	runner := newFakeRunner()
	w := newTestWriter(runner)

	cand := candidateWithEvidence(2)
	if !w.AddTraitCandidate(context.Background(), "user-1", cand) {
		t.Fatal("expected success")
	}

	// 2 + 2*|evidencia| escrituras independientes.
	if got := len(runner.mutations); got != 6 {
		t.Fatalf("expected 6 writes, got %d", got)
	}
	if runner.count("merge_trait_node") != 1 || runner.count("merge_has_trait_rel") != 1 {
		t.Fatalf("unexpected mutation mix: %+v", runner.mutations)
	}
	if runner.count("merge_evidence_node") != 2 || runner.count("merge_supported_by_rel") != 2 {
		t.Fatalf("expected 2 evidence writes each, got %+v", runner.mutations)
	}
}

func TestAddTraitCandidateIdempotentRerun(t *testing.T) {
	runner := newFakeRunner()
	w := newTestWriter(runner)

	cand := candidateWithEvidence(1)
	w.AddTraitCandidate(context.Background(), "user-1", cand)
	w.AddTraitCandidate(context.Background(), "user-1", cand)

	// Mismo candidato dos veces: mismas claves, solo MERGEs.
	first := runner.mutations[:4]
	second := runner.mutations[4:]
	for i := range first {
		if first[i].name != second[i].name {
			t.Fatalf("rerun diverged at %d: %s vs %s", i, first[i].name, second[i].name)
		}
		if fmt.Sprint(first[i].params["traitID"]) != fmt.Sprint(second[i].params["traitID"]) {
			t.Fatalf("trait key not stable across reruns")
		}
	}
	for _, m := range runner.mutations {
		if !strings.Contains(m.cypher, "MERGE") {
			t.Fatalf("non-MERGE mutation in candidate path: %s", m.name)
		}
	}
}

func TestAddTraitCandidateFailureReturnsFalse(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn["merge_evidence_node"] = errors.New("connection reset")
	w := newTestWriter(runner)

	if w.AddTraitCandidate(context.Background(), "user-1", candidateWithEvidence(1)) {
		t.Fatal("expected failure to surface as false")
	}
}

func TestAddMentionedConceptsEmptyList(t *testing.T) {
	runner := newFakeRunner()
	w := newTestWriter(runner)

	if !w.AddMentionedConcepts(context.Background(), "user-1", nil, "pkg-1") {
		t.Fatal("empty concept list must succeed trivially")
	}
	if len(runner.mutations) != 0 {
		t.Fatalf("empty list must perform zero writes, got %d", len(runner.mutations))
	}
}

func TestAddMentionedConceptsNoShortCircuit(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn["merge_concept_node"] = errors.New("down")
	w := newTestWriter(runner)

	concepts := []domain.ConceptMention{
		{Name: "AI Ethics", Frequency: 3},
		{Name: "Quantum Computing", Frequency: 1},
	}
	if w.AddMentionedConcepts(context.Background(), "user-1", concepts, "pkg-1") {
		t.Fatal("partial failure must report overall failure")
	}
	// Todas las escrituras restantes se intentaron igual.
	if runner.count("merge_concept_node") != 2 || runner.count("merge_mentions_rel") != 2 {
		t.Fatalf("expected all writes attempted, got %+v", runner.mutations)
	}
}

func TestUpdateTraitConfirmedAsIs(t *testing.T) {
	runner := newFakeRunner()
	runner.returns["set_trait_decision"] = map[string]any{
		"status": domain.GraphTraitStatusConfirmed,
		"origin": domain.TraitOriginAIConfirmed,
	}
	w := newTestWriter(runner)

	props := w.UpdateTraitStatusAndProperties(context.Background(), "user-1", "trait-1", domain.TraitDecisionConfirmedAsIs, nil, nil)
	if props == nil {
		t.Fatal("expected updated properties")
	}
	if props["status"] != domain.GraphTraitStatusConfirmed {
		t.Fatalf("unexpected status %v", props["status"])
	}
	if len(runner.mutations) < 3 {
		t.Fatalf("expected at least 3 writes, got %d", len(runner.mutations))
	}

	decision := runner.mutations[1]
	sent := decision.params["props"].(map[string]any)
	if sent["origin"] != domain.TraitOriginAIConfirmed {
		t.Fatalf("expected origin ai_confirmed_user, got %v", sent["origin"])
	}
	rel := runner.mutations[2]
	if rel.name != "set_has_trait_active" || rel.params["active"] != true {
		t.Fatalf("expected relationship kept active, got %+v", rel)
	}
}

func TestUpdateTraitConfirmedModified(t *testing.T) {
	runner := newFakeRunner()
	runner.returns["set_trait_decision"] = map[string]any{"status": domain.GraphTraitStatusModified}
	w := newTestWriter(runner)

	conf := 0.9
	mods := &domain.TraitModifications{Name: "Applied AI Ethics", Category: "Interest", UserConfidence: &conf}
	props := w.UpdateTraitStatusAndProperties(context.Background(), "user-1", "trait-1", domain.TraitDecisionConfirmedModified, mods, nil)
	if props == nil {
		t.Fatal("expected updated properties")
	}

	sent := runner.mutations[1].params["props"].(map[string]any)
	if sent["name"] != "Applied AI Ethics" {
		t.Fatalf("expected overwritten name, got %v", sent["name"])
	}
	if sent["origin"] != domain.TraitOriginAIRefined {
		t.Fatalf("expected origin ai_refined_user, got %v", sent["origin"])
	}
	if sent["userConfidence"] != 0.9 {
		t.Fatalf("expected userConfidence applied, got %v", sent["userConfidence"])
	}
}

func TestUpdateTraitRejectedKeepsHistory(t *testing.T) {
	runner := newFakeRunner()
	runner.returns["set_trait_decision"] = map[string]any{"status": domain.GraphTraitStatusRejected}
	w := newTestWriter(runner)

	props := w.UpdateTraitStatusAndProperties(context.Background(), "user-1", "trait-1", domain.TraitDecisionRejected, nil, nil)
	if props == nil {
		t.Fatal("expected updated properties")
	}

	rel := runner.mutations[2]
	if rel.params["active"] != false {
		t.Fatal("rejection must mark the relationship inactive")
	}
	for _, m := range runner.mutations {
		if strings.Contains(strings.ToUpper(m.cypher), "DELETE") {
			t.Fatalf("rejection must never delete, found in %s", m.name)
		}
	}
}

func TestUpdateTraitUnknownDecision(t *testing.T) {
	runner := newFakeRunner()
	w := newTestWriter(runner)

	if props := w.UpdateTraitStatusAndProperties(context.Background(), "user-1", "trait-1", "whatever", nil, nil); props != nil {
		t.Fatal("unknown decision must return nil")
	}
	if len(runner.mutations) != 0 {
		t.Fatal("unknown decision must not write")
	}
}

func TestUpdateTraitDriverErrorReturnsNil(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn["set_trait_decision"] = errors.New("transaction closed")
	w := newTestWriter(runner)

	if props := w.UpdateTraitStatusAndProperties(context.Background(), "user-1", "trait-1", domain.TraitDecisionConfirmedAsIs, nil, nil); props != nil {
		t.Fatal("driver failure must return nil, not panic or propagate")
	}
}

func TestAddCustomTrait(t *testing.T) {
	runner := newFakeRunner()
	runner.returns["merge_custom_trait_node"] = map[string]any{
		"name":   "Loves Hiking",
		"origin": domain.TraitOriginUserDefined,
	}
	w := newTestWriter(runner)

	props := w.AddCustomTrait(context.Background(), "user-1", "Loves Hiking", "Interest", "", []string{"I hike every weekend"}, nil)
	if props == nil {
		t.Fatal("expected new trait properties")
	}
	if props["origin"] != domain.TraitOriginUserDefined {
		t.Fatalf("expected user_defined origin, got %v", props["origin"])
	}
	if runner.count("merge_evidence_node") != 1 || runner.count("merge_supported_by_rel") != 1 {
		t.Fatalf("expected one evidence write pair, got %+v", runner.mutations)
	}
}

func TestUpdateCommunicationStyle(t *testing.T) {
	runner := newFakeRunner()
	runner.returns["merge_style_entry"] = map[string]any{
		"styleDimension": "formality",
		"styleValue":     "casual",
	}
	w := newTestWriter(runner)

	props := w.UpdateCommunicationStyle(context.Background(), "user-1", "formality", "casual")
	if props == nil {
		t.Fatal("expected updated style properties")
	}
	if runner.count("merge_adopts_style_rel") != 1 {
		t.Fatal("expected ADOPTS_COMMUNICATION_STYLE relationship write")
	}
}

func TestWriterNotConfigured(t *testing.T) {
	w := NewWriter(nil, time.Second, zap.NewNop())
	if w.Configured() {
		t.Fatal("nil driver must report not configured")
	}
	if w.EnsureUserNode(context.Background(), "user-1") {
		t.Fatal("expected false without driver")
	}
	if w.AddTraitCandidate(context.Background(), "user-1", candidateWithEvidence(1)) {
		t.Fatal("expected false without driver")
	}
	if w.UpdateCommunicationStyle(context.Background(), "user-1", "formality", "casual") != nil {
		t.Fatal("expected nil without driver")
	}
}

func TestWriteErrorCarriesQueryPrefix(t *testing.T) {
	runner := newFakeRunner()
	runner.failOn["merge_user_node"] = errors.New("socket closed")
	w := newTestWriter(runner)

	_, err := w.runWrite(context.Background(), mergeUserNode("user-1"))
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if writeErr.Query == "" || len(writeErr.Query) > queryPrefixLen {
		t.Fatalf("expected bounded query prefix, got %q", writeErr.Query)
	}
	if !strings.Contains(writeErr.Error(), "socket closed") {
		t.Fatalf("expected underlying message, got %q", writeErr.Error())
	}
}
