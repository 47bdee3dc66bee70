// Package queue implementa la cola de trabajos de ingesta en memoria y los
// workers que la consumen. La semantica imita a una cola gestionada: encolar
// no bloquea, la entrega es at-least-once y un trabajo con disposicion de
// reintento vuelve a encolarse en lugar de eliminarse.
package queue

import (
	"context"
	"sync"

	"persona-ingest/internal/domain"
	"persona-ingest/internal/metrics"
)

const defaultCapacity = 1024

// Queue es una cola acotada de trabajos de ingesta sobre un canal.
type Queue struct {
	jobs chan domain.IngestionJob

	mu     sync.RWMutex
	closed bool
}

// NewQueue construye la cola; capacity <= 0 usa el valor por defecto.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	metrics.QueueDepth.Set(0)
	return &Queue{jobs: make(chan domain.IngestionJob, capacity)}
}

// Enqueue agrega un trabajo sin bloquear. Devuelve false si la cola esta
// llena o cerrada; el productor decide si descarta o reintenta.
func (q *Queue) Enqueue(ctx context.Context, job domain.IngestionJob) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job:
		metrics.QueueDepth.Set(float64(len(q.jobs)))
		return true
	case <-ctx.Done():
		return false
	default:
		return false
	}
}

// Dequeue expone el canal de consumo; se cierra al cerrar la cola.
func (q *Queue) Dequeue() <-chan domain.IngestionJob {
	return q.jobs
}

// Len devuelve la cantidad de trabajos en espera.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close impide nuevos encolados y cierra el canal de consumo una vez
// drenados los trabajos pendientes.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}
