package problemloader

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/jjs-dev/judge/internal/domain"
)

var _ Registry = (*FsRegistry)(nil)
var _ Registry = (*MongoRegistry)(nil)
var _ Registry = (*S3Registry)(nil)

type countingRegistry struct {
	name  string
	calls int32
	hit   *domain.Manifest
}

func (r *countingRegistry) Name() string { return r.name }

func (r *countingRegistry) GetProblem(_ context.Context, _, _ string) (*domain.Manifest, error) {
	atomic.AddInt32(&r.calls, 1)
	return r.hit, nil
}

func TestFind_CachesAfterFirstResolution(t *testing.T) {
	reg := &countingRegistry{name: "stub", hit: &domain.Manifest{CheckerCmd: []string{"check"}}}
	l := New(t.TempDir(), reg)

	m1, dir1, err := l.Find(context.Background(), "p1")
	if err != nil || m1 == nil {
		t.Fatalf("first Find: m=%v err=%v", m1, err)
	}
	m2, dir2, err := l.Find(context.Background(), "p1")
	if err != nil || m2 == nil {
		t.Fatalf("second Find: m=%v err=%v", m2, err)
	}
	if dir1 != dir2 {
		t.Fatalf("expected same assets dir, got %q vs %q", dir1, dir2)
	}
	if atomic.LoadInt32(&reg.calls) != 1 {
		t.Fatalf("expected registry consulted once, got %d", reg.calls)
	}
}

func TestFind_TriesRegistriesInOrder(t *testing.T) {
	miss := &countingRegistry{name: "miss", hit: nil}
	hit := &countingRegistry{name: "hit", hit: &domain.Manifest{}}
	l := New(t.TempDir(), miss, hit)

	m, _, err := l.Find(context.Background(), "p1")
	if err != nil || m == nil {
		t.Fatalf("Find: m=%v err=%v", m, err)
	}
	if miss.calls != 1 || hit.calls != 1 {
		t.Fatalf("expected both registries consulted once: miss=%d hit=%d", miss.calls, hit.calls)
	}
}

func TestFind_NoRegistryResolves(t *testing.T) {
	miss := &countingRegistry{name: "miss"}
	l := New(t.TempDir(), miss)

	m, _, err := l.Find(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %v", m)
	}
}
