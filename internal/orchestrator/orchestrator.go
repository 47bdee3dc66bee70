// Package orchestrator ejecuta el pipeline de ingesta de un trabajo: trae
// metadatos, verifica consentimiento, analiza con IA, deriva rasgos y hace
// fan-out a los tres almacenes. Cada etapa tiene una politica propia de
// fallo; la entrega es at-least-once, por lo que toda escritura aguas abajo
// es idempotente y un reintento completo del trabajo es seguro.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"persona-ingest/internal/ai"
	"persona-ingest/internal/consent"
	"persona-ingest/internal/dataaccess"
	"persona-ingest/internal/domain"
)

// Etapas del pipeline, en orden de ejecucion.
const (
	StageFetchMetadata     = "FETCH_METADATA"
	StageVerifyConsent     = "VERIFY_CONSENT"
	StageRetrieveDecrypt   = "RETRIEVE_AND_DECRYPT"
	StageExtractText       = "EXTRACT_TEXT"
	StageAIAnalyze         = "AI_ANALYZE"
	StageDeriveTraits      = "DERIVE_TRAITS"
	StagePersistFeatures   = "PERSIST_FEATURES"
	StagePersistCandidates = "PERSIST_CANDIDATES"
	StageUpdatePKG         = "UPDATE_PKG"
	StageSuccess           = "SUCCESS"
)

// Disposition indica que hacer con el mensaje de cola tras procesar.
type Disposition string

const (
	// DispositionAck elimina el mensaje: exito, o fallo que un reintento
	// no va a arreglar.
	DispositionAck Disposition = "ack"
	// DispositionRetry retiene el mensaje para reentrega: solo se usa
	// cuando el almacen de features esta configurado pero completamente
	// indisponible en la primera persistencia del trabajo.
	DispositionRetry Disposition = "retry"
)

// Estados finales del trabajo.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial_failure"
	OutcomeFailed  = "failed"
)

// AnalysisPass es una pasada de analisis configurada: un adaptador, su
// prompt y el scope de consentimiento que la autoriza.
type AnalysisPass struct {
	Adapter        ai.Adapter
	PromptTemplate string
	RequiredScope  string
	Modality       string
	Params         map[string]interface{}
}

// FeatureWriter persiste feature sets en el almacen documental.
type FeatureWriter interface {
	Configured() bool
	SaveBatch(ctx context.Context, sets []domain.RawAnalysisFeatureSet) ([]string, bool)
}

// CandidateWriter persiste candidatos de rasgo en el almacen relacional.
type CandidateWriter interface {
	Configured() bool
	SaveOne(ctx context.Context, cand domain.ExtractedTraitCandidate) (string, bool)
}

// GraphWriter aplica actualizaciones best-effort al grafo de persona.
type GraphWriter interface {
	Configured() bool
	EnsureUserNode(ctx context.Context, userID string) bool
	AddTraitCandidate(ctx context.Context, userID string, cand domain.ExtractedTraitCandidate) bool
	AddMentionedConcepts(ctx context.Context, userID string, concepts []domain.ConceptMention, packageID string) bool
}

// TraitDeriver convierte feature sets en candidatos de rasgo.
type TraitDeriver interface {
	Derive(userID, packageID string, featureSets []domain.RawAnalysisFeatureSet) []domain.ExtractedTraitCandidate
}

// ConceptExtractor obtiene menciones de concepto de los feature sets.
type ConceptExtractor func(featureSets []domain.RawAnalysisFeatureSet) []domain.ConceptMention

// Result resume el procesamiento de un trabajo.
type Result struct {
	Outcome       string
	FailedStage   string
	Disposition   Disposition
	FeatureSets   int
	Candidates    int
	SkippedPasses []string
	StoreFailures []string
}

// Orchestrator coordina una ejecucion completa del pipeline por trabajo.
type Orchestrator struct {
	gate         consent.Gate
	facade       dataaccess.Facade
	passes       []AnalysisPass
	deriver      TraitDeriver
	concepts     ConceptExtractor
	features     FeatureWriter
	candidates   CandidateWriter
	graph        GraphWriter
	stageTimeout time.Duration
	logger       *zap.Logger
}

func New(
	gate consent.Gate,
	facade dataaccess.Facade,
	passes []AnalysisPass,
	deriver TraitDeriver,
	concepts ConceptExtractor,
	features FeatureWriter,
	candidates CandidateWriter,
	graph GraphWriter,
	stageTimeout time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	if stageTimeout <= 0 {
		stageTimeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gate:         gate,
		facade:       facade,
		passes:       passes,
		deriver:      deriver,
		concepts:     concepts,
		features:     features,
		candidates:   candidates,
		graph:        graph,
		stageTimeout: stageTimeout,
		logger:       logger,
	}
}

// Process ejecuta el pipeline para un trabajo. Nunca devuelve error: toda
// falla queda capturada en el Result, que decide ack o retry.
func (o *Orchestrator) Process(ctx context.Context, job domain.IngestionJob) Result {
	log := o.logger.With(
		zap.String("package_id", job.PackageID),
		zap.String("user_id", job.UserID),
		zap.String("sqs_message_id", job.SQSMessageID),
	)

	// FETCH_METADATA: sin metadatos no hay trabajo que reintentar.
	meta, err := o.fetchMetadata(ctx, job.PackageID)
	if err != nil {
		log.Error("metadata fetch failed", zap.Error(err))
		return Result{Outcome: OutcomeFailed, FailedStage: StageFetchMetadata, Disposition: DispositionAck}
	}
	if meta == nil {
		log.Warn("package metadata not found, dropping job")
		return Result{Outcome: OutcomeFailed, FailedStage: StageFetchMetadata, Disposition: DispositionAck}
	}
	if meta.UserID != "" && meta.UserID != job.UserID {
		log.Warn("job user does not own package, dropping job", zap.String("owner", meta.UserID))
		return Result{Outcome: OutcomeFailed, FailedStage: StageFetchMetadata, Disposition: DispositionAck}
	}

	// VERIFY_CONSENT por pasada: una pasada denegada se omite, no falla el
	// trabajo. Si todas quedan denegadas el trabajo termina en exito vacio.
	var allowed []AnalysisPass
	var skipped []string
	for _, pass := range o.passes {
		verdict := o.gate.Verify(ctx, job.UserID, job.ConsentTokenID, pass.RequiredScope)
		if !verdict.IsValid {
			log.Info("analysis pass skipped by consent",
				zap.String("modality", pass.Modality),
				zap.String("scope", pass.RequiredScope),
				zap.String("reason", verdict.DeniedReason))
			skipped = append(skipped, pass.Modality)
			continue
		}
		allowed = append(allowed, pass)
	}
	if len(allowed) == 0 {
		log.Info("all analysis passes denied by consent, job is a no-op")
		return Result{Outcome: OutcomeSuccess, FailedStage: StageVerifyConsent, Disposition: DispositionAck, SkippedPasses: skipped}
	}

	// RETRIEVE_AND_DECRYPT
	data, err := o.retrieve(ctx, meta)
	if err != nil || len(data) == 0 {
		log.Error("package content unavailable", zap.Error(err))
		return Result{Outcome: OutcomeFailed, FailedStage: StageRetrieveDecrypt, Disposition: DispositionAck, SkippedPasses: skipped}
	}

	// EXTRACT_TEXT
	text, err := o.extractText(ctx, data, meta)
	if err != nil {
		log.Error("text extraction failed", zap.Error(err))
		return Result{Outcome: OutcomeFailed, FailedStage: StageExtractText, Disposition: DispositionAck, SkippedPasses: skipped}
	}
	if text == "" {
		log.Warn("no text extractable from package, dropping job", zap.String("mime_type", meta.MimeType))
		return Result{Outcome: OutcomeFailed, FailedStage: StageExtractText, Disposition: DispositionAck, SkippedPasses: skipped}
	}

	// AI_ANALYZE: cada pasada es independiente. Un adaptador que falla no
	// aporta feature set; el resto del trabajo continua con lo producido.
	featureSets := o.analyze(ctx, log, job, allowed, text, &skipped)

	// DERIVE_TRAITS
	var cands []domain.ExtractedTraitCandidate
	if o.deriver != nil {
		cands = o.deriver.Derive(job.UserID, job.PackageID, featureSets)
	}

	res := Result{
		Outcome:       OutcomeSuccess,
		FailedStage:   StageSuccess,
		Disposition:   DispositionAck,
		FeatureSets:   len(featureSets),
		Candidates:    len(cands),
		SkippedPasses: skipped,
	}

	// PERSIST_FEATURES: unica etapa que puede pedir reentrega, y solo ante
	// indisponibilidad total del almacen documental.
	if o.features != nil && o.features.Configured() && len(featureSets) > 0 {
		saved, ok := o.features.SaveBatch(ctx, featureSets)
		if !ok && len(saved) == 0 {
			log.Error("feature store wholly unavailable, retaining job for redelivery")
			res.Outcome = OutcomeFailed
			res.FailedStage = StagePersistFeatures
			res.Disposition = DispositionRetry
			res.StoreFailures = append(res.StoreFailures, "features")
		} else if !ok {
			log.Warn("partial feature persistence failure", zap.Int("saved", len(saved)))
			res.markPartial(StagePersistFeatures, "features")
		}
	}

	// PERSIST_CANDIDATES: best-effort por candidato; nunca bloquea el PKG.
	if o.candidates != nil && o.candidates.Configured() {
		failed := 0
		for _, cand := range cands {
			if _, ok := o.candidates.SaveOne(ctx, cand); !ok {
				failed++
			}
		}
		if failed > 0 {
			log.Warn("candidate persistence failures", zap.Int("failed", failed), zap.Int("total", len(cands)))
			res.markPartial(StagePersistCandidates, "candidates")
		}
	}

	// UPDATE_PKG: best-effort, siempre se intenta aunque otra etapa de
	// persistencia haya fallado.
	if o.graph != nil && o.graph.Configured() {
		graphOK := o.graph.EnsureUserNode(ctx, job.UserID)
		for _, cand := range cands {
			if !o.graph.AddTraitCandidate(ctx, job.UserID, cand) {
				graphOK = false
			}
		}
		if o.concepts != nil {
			if mentions := o.concepts(featureSets); len(mentions) > 0 {
				if !o.graph.AddMentionedConcepts(ctx, job.UserID, mentions, job.PackageID) {
					graphOK = false
				}
			}
		}
		if !graphOK {
			log.Warn("persona graph update incomplete")
			res.markPartial(StageUpdatePKG, "graph")
		}
	}

	log.Info("job processed",
		zap.String("outcome", res.Outcome),
		zap.String("stage", res.FailedStage),
		zap.Int("feature_sets", res.FeatureSets),
		zap.Int("candidates", res.Candidates))
	return res
}

func (o *Orchestrator) fetchMetadata(ctx context.Context, packageID string) (*dataaccess.PackageMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.facade.FetchPackageMetadata(ctx, packageID)
}

func (o *Orchestrator) retrieve(ctx context.Context, meta *dataaccess.PackageMetadata) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.facade.RetrieveAndDecrypt(ctx, meta)
}

func (o *Orchestrator) extractText(ctx context.Context, data []byte, meta *dataaccess.PackageMetadata) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()
	return o.facade.ExtractText(ctx, data, meta.MimeType, meta.Filename)
}

func (o *Orchestrator) analyze(ctx context.Context, log *zap.Logger, job domain.IngestionJob, passes []AnalysisPass, text string, skipped *[]string) []domain.RawAnalysisFeatureSet {
	out := make([]domain.RawAnalysisFeatureSet, 0, len(passes))
	for _, pass := range passes {
		passCtx, cancel := context.WithTimeout(ctx, o.stageTimeout)
		output, err := pass.Adapter.Analyze(passCtx, text, pass.PromptTemplate, pass.Params)
		cancel()
		if err != nil {
			var aerr *ai.AdapterError
			kind := ai.ErrKindProvider
			if errors.As(err, &aerr) {
				kind = aerr.Kind
			}
			log.Warn("analysis pass failed",
				zap.String("adapter", pass.Adapter.Identifier()),
				zap.String("modality", pass.Modality),
				zap.String("kind", kind),
				zap.Error(err))
			*skipped = append(*skipped, pass.Modality)
			continue
		}

		out = append(out, domain.RawAnalysisFeatureSet{
			FeatureSetID:          domain.NewFeatureSetID(job.PackageID, pass.Adapter.Identifier(), pass.Modality),
			UserID:                job.UserID,
			SourceUserDataPackage: job.PackageID,
			Modality:              pass.Modality,
			ModelNameOrType:       output.ModelNameUsed,
			ExtractedFeatures: map[string]interface{}{
				"model_output_text": output.ModelOutputText,
				"finish_reason":     output.FinishReason,
				"prompt_tokens":     output.UsageMetadata.PromptTokens,
				"completion_tokens": output.UsageMetadata.CompletionTokens,
				"total_tokens":      output.UsageMetadata.TotalTokens,
			},
			Status:    domain.FeatureSetStatusCompleted,
			Timestamp: time.Now().UTC(),
		})
	}
	return out
}

// markPartial degrada el resultado a fallo parcial sin pisar un fallo con
// reentrega ya decidido.
func (r *Result) markPartial(stage, store string) {
	r.StoreFailures = append(r.StoreFailures, store)
	if r.Disposition == DispositionRetry {
		return
	}
	if r.Outcome == OutcomeSuccess {
		r.Outcome = OutcomePartial
		r.FailedStage = stage
	}
}
