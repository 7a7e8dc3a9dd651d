package auditlogs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PromptSentinel/SentinelGate/pkg/domain/audit"
	"github.com/PromptSentinel/SentinelGate/pkg/infra/metrics"
)

const sinkWriteTimeout = 10 * time.Second

// Queue fans audit entries out to every configured sink on background
// workers. Record never blocks the request path: when the buffer is full the
// entry is dropped and counted instead of queued.
type Queue struct {
	logger  *logrus.Logger
	sinks   []audit.Sink
	entries chan audit.Entry
	wg      sync.WaitGroup
	closed  atomic.Bool
}

func NewQueue(logger *logrus.Logger, queueSize int, sinks ...audit.Sink) *Queue {
	return &Queue{
		logger:  logger,
		sinks:   sinks,
		entries: make(chan audit.Entry, queueSize),
	}
}

func (q *Queue) StartWorkers(n int) {
	for i := 0; i < n; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for entry := range q.entries {
				q.write(entry)
			}
		}()
	}
}

// Record enqueues an entry for persistence, stamping identity and time if
// the caller left them zero. Entries arriving after Shutdown are ignored.
func (q *Queue) Record(entry audit.Entry) {
	if q.closed.Load() {
		return
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	select {
	case q.entries <- entry:
	default:
		metrics.AuditDroppedTotal.Inc()
		q.logger.WithField("verdict", entry.Verdict).Warn("audit queue is full, dropping entry")
	}
}

func (q *Queue) write(entry audit.Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()
	for _, sink := range q.sinks {
		if err := sink.Write(ctx, entry); err != nil {
			q.logger.WithError(err).WithField("sink", sink.Name()).Error("failed to write audit entry")
		}
	}
}

// Shutdown stops intake, drains entries already buffered, then closes every
// sink. Safe to call more than once.
func (q *Queue) Shutdown() {
	if q.closed.Swap(true) {
		return
	}
	q.logger.Info("shutting down audit workers")
	close(q.entries)
	q.wg.Wait()
	for _, sink := range q.sinks {
		sink.Close()
	}
	q.logger.Info("audit workers stopped")
}
