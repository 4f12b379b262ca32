// Package jobmirror maintains a non-authoritative Redis mirror of
// completed/errored job ids. The in-memory restapi.State map stays
// authoritative; this is a best-effort side channel other services can
// poll without hitting the judge daemon directly.
package jobmirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jjs-dev/judge/internal/logging"
)

// Entry is the small record mirrored per job id.
type Entry struct {
	Completed bool   `json:"completed"`
	Err       string `json:"error,omitempty"`
}

// Mirror wraps a Redis client. A nil *Mirror mirrors as a no-op, matching
// the nil-receiver discipline used by internal/metrics and
// internal/auditlog: callers never need to branch on whether it's configured.
type Mirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Config configures the mirror's Redis connection.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string        // default "judge:job:"
	TTL       time.Duration // default 24h
}

// New connects to addr. Returns nil (not an error) when addr is empty,
// since the mirror is optional.
func New(ctx context.Context, cfg Config) (*Mirror, error) {
	if cfg.Addr == "" {
		logging.Op().Info("jobmirror disabled, no redis addr configured")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "judge:job:"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Mirror{client: client, prefix: prefix, ttl: ttl}, nil
}

func (m *Mirror) key(jobID string) string {
	return m.prefix + jobID
}

// Put records jobID's terminal state. Safe to call on a nil Mirror.
func (m *Mirror) Put(ctx context.Context, jobID string, entry Entry) {
	if m == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, m.key(jobID), data, m.ttl).Err(); err != nil {
		logging.Op().Warn("jobmirror write failed", "job_id", jobID, "error", err)
	}
}

// Get looks up a mirrored entry. Safe to call on a nil Mirror, returning
// (Entry{}, false, nil).
func (m *Mirror) Get(ctx context.Context, jobID string) (Entry, bool, error) {
	if m == nil {
		return Entry{}, false, nil
	}
	data, err := m.client.Get(ctx, m.key(jobID)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, err
	}
	return entry, true, nil
}

// Close closes the underlying Redis client. Safe to call on a nil Mirror.
func (m *Mirror) Close() error {
	if m == nil {
		return nil
	}
	return m.client.Close()
}
