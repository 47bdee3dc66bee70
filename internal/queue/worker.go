package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"persona-ingest/internal/alert"
	"persona-ingest/internal/domain"
	"persona-ingest/internal/metrics"
	"persona-ingest/internal/orchestrator"
)

const (
	defaultWorkerCount = 4
	maxRedeliveries    = 3

	redeliveryCountKey = "redelivery_count"
)

// Processor ejecuta el pipeline para un trabajo y decide su disposicion.
type Processor interface {
	Process(ctx context.Context, job domain.IngestionJob) orchestrator.Result
}

// Pool consume la cola con N workers concurrentes. Un trabajo con
// disposicion de reintento vuelve a la cola hasta agotar reentregas;
// todo lo demas se confirma (ack) retirandolo.
type Pool struct {
	queue    *Queue
	proc     Processor
	notifier alert.Notifier
	count    int
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewPool(q *Queue, proc Processor, notifier alert.Notifier, count int, logger *zap.Logger) *Pool {
	if count <= 0 {
		count = defaultWorkerCount
	}
	if notifier == nil {
		notifier = alert.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{queue: q, proc: proc, notifier: notifier, count: count, logger: logger}
}

// Start lanza los workers. Se detienen al cancelar ctx o cerrar la cola.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, p.logger.With(zap.Int("worker", id)))
		}(i)
	}
}

// Wait bloquea hasta que todos los workers terminen.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) run(ctx context.Context, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue.Dequeue():
			if !ok {
				return
			}
			metrics.QueueDepth.Set(float64(p.queue.Len()))
			p.handle(ctx, log, job)
		}
	}
}

func (p *Pool) handle(ctx context.Context, log *zap.Logger, job domain.IngestionJob) {
	res := p.proc.Process(ctx, job)

	metrics.JobsProcessed.WithLabelValues(res.Outcome).Inc()
	if res.Outcome != orchestrator.OutcomeSuccess && res.FailedStage != "" {
		metrics.StageFailures.WithLabelValues(res.FailedStage).Inc()
	}
	for _, store := range res.StoreFailures {
		metrics.StoreFailures.WithLabelValues(store).Inc()
	}
	for range res.SkippedPasses {
		metrics.SkippedPasses.Inc()
	}

	if len(res.StoreFailures) > 0 {
		p.notify(ctx, log, "persona-ingest: store failures", fmt.Sprintf(
			"Job for package %s (user %s) finished %s with store failures: %s\nFailed stage: %s\n",
			job.PackageID, job.UserID, res.Outcome, strings.Join(res.StoreFailures, ", "), res.FailedStage))
	}

	if res.Disposition != orchestrator.DispositionRetry {
		return
	}

	attempts := redeliveryCount(job) + 1
	if attempts > maxRedeliveries {
		log.Error("job dropped after exhausting redeliveries",
			zap.String("package_id", job.PackageID),
			zap.Int("attempts", attempts))
		p.notify(ctx, log, "persona-ingest: job dropped", fmt.Sprintf(
			"Job for package %s (user %s) was dropped after %d redeliveries.\nLast failed stage: %s\nStore failures: %s\n",
			job.PackageID, job.UserID, attempts-1, res.FailedStage, strings.Join(res.StoreFailures, ", ")))
		return
	}

	if job.Metadata == nil {
		job.Metadata = map[string]string{}
	}
	job.Metadata[redeliveryCountKey] = strconv.Itoa(attempts)

	if !p.queue.Enqueue(ctx, job) {
		log.Error("failed to re-enqueue job for redelivery", zap.String("package_id", job.PackageID))
		p.notify(ctx, log, "persona-ingest: redelivery failed", fmt.Sprintf(
			"Job for package %s (user %s) could not be re-enqueued; the queue is full or closed.\n",
			job.PackageID, job.UserID))
		return
	}
	metrics.JobsRetained.Inc()
	log.Warn("job retained for redelivery",
		zap.String("package_id", job.PackageID),
		zap.String("stage", res.FailedStage),
		zap.Int("attempt", attempts))
}

func (p *Pool) notify(ctx context.Context, log *zap.Logger, subject, body string) {
	if err := p.notifier.Notify(ctx, subject, body); err != nil {
		log.Warn("alert dispatch failed", zap.Error(err))
	}
}

func redeliveryCount(job domain.IngestionJob) int {
	if job.Metadata == nil {
		return 0
	}
	n, err := strconv.Atoi(job.Metadata[redeliveryCountKey])
	if err != nil {
		return 0
	}
	return n
}
