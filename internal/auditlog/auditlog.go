// Package auditlog batches completed-job records to Postgres via pgx using
// a channel-plus-ticker batching loop. It is optional: a nil *Batcher
// Enqueues as a no-op, matching the nil-receiver discipline used throughout
// internal/metrics.
package auditlog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jjs-dev/judge/internal/logging"
)

const (
	defaultBatchSize     = 50
	defaultBufferSize    = 500
	defaultFlushInterval = 500 * time.Millisecond
	defaultTimeout       = 5 * time.Second
)

// Record is one completed job's audit row.
type Record struct {
	JobID      string
	Toolchain  string
	ProblemID  string
	Outcome    string // "success", "fault", "compile_error"
	DurationMs int64
	CompletedAt time.Time
}

// Config tunes the batcher; zero values fall back to the defaults above.
type Config struct {
	BatchSize     int
	BufferSize    int
	FlushInterval time.Duration
	Timeout       time.Duration
}

// Batcher owns a connection pool and asynchronously flushes batches of
// Records to the audit_log table.
type Batcher struct {
	pool          *pgxpool.Pool
	records       chan Record
	flushInterval time.Duration
	batchSize     int
	timeout       time.Duration
	done          chan struct{}
}

// New connects to dsn and starts the background flush loop. Returns nil
// (not an error) with a clear log line if dsn is empty, since audit
// logging is an optional side channel.
func New(ctx context.Context, dsn string, cfg Config) (*Batcher, error) {
	if dsn == "" {
		logging.Op().Info("auditlog disabled, no dsn configured")
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	b := &Batcher{
		pool:          pool,
		records:       make(chan Record, bufferSize),
		flushInterval: flushInterval,
		batchSize:     batchSize,
		timeout:       timeout,
		done:          make(chan struct{}),
	}
	go b.run()
	return b, nil
}

// Enqueue submits one completed job's Record for eventual persistence.
// Safe to call on a nil Batcher.
func (b *Batcher) Enqueue(r Record) {
	if b == nil {
		return
	}
	select {
	case b.records <- r:
	default:
		logging.Op().Warn("dropping audit record due to full buffer", "job_id", r.JobID)
	}
}

// Shutdown flushes any remaining records and closes the pool, waiting up
// to timeout. Safe to call on a nil Batcher.
func (b *Batcher) Shutdown(timeout time.Duration) {
	if b == nil {
		return
	}
	close(b.records)
	select {
	case <-b.done:
	case <-time.After(timeout):
		logging.Op().Warn("timeout waiting for auditlog batcher shutdown", "timeout", timeout)
	}
	b.pool.Close()
}

func (b *Batcher) run() {
	defer close(b.done)

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, b.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := b.insertBatch(ctx, batch); err != nil {
			logging.Op().Error("failed to persist audit records", "error", err, "count", len(batch))
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case r, ok := <-b.records:
			if !ok {
				flush()
				return
			}
			batch = append(batch, r)
			if len(batch) >= b.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (b *Batcher) insertBatch(ctx context.Context, batch []Record) error {
	rows := make([][]any, len(batch))
	for i, r := range batch {
		rows[i] = []any{r.JobID, r.Toolchain, r.ProblemID, r.Outcome, r.DurationMs, r.CompletedAt}
	}
	_, err := b.pool.CopyFrom(ctx,
		pgx.Identifier{"audit_log"},
		[]string{"job_id", "toolchain", "problem_id", "outcome", "duration_ms", "completed_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}
