package escore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDiscoverer struct {
	calls   int
	results map[string][]*Node // keyed by via.String()
	errs    map[string]error
}

func (f *fakeDiscoverer) DiscoverNodes(ctx context.Context, via *Node, timeout time.Duration) ([]*Node, error) {
	f.calls++
	if err, ok := f.errs[via.String()]; ok {
		return nil, err
	}
	return f.results[via.String()], nil
}

// TestSnifferOnStartupSuccess mirrors the teacher's TestClientSniffSuccess:
// a startup sniff against a reachable seed replaces the pool membership.
func TestSnifferOnStartupSuccess(t *testing.T) {
	seed := NewNode("http://localhost:19200")
	pool := NewNodePool(SniffingPool, []*Node{seed}, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	discovered := []*Node{NewNode("http://localhost:9200")}
	disc := &fakeDiscoverer{results: map[string][]*Node{seed.String(): discovered}}

	sniffer := NewSniffer(pool, disc, 0, nil)
	if err := sniffer.SniffOnStartup(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pool.Nodes(); len(got) != 1 || got[0] != discovered[0] {
		t.Fatalf("expected pool replaced with discovered nodes, got %v", got)
	}
}

// TestSnifferOnStartupFailureAllCandidates mirrors TestClientSniffFailure:
// when every seed candidate fails, SniffOnStartup returns an error and the
// pool keeps its original membership.
func TestSnifferOnStartupFailureAllCandidates(t *testing.T) {
	seed1 := NewNode("http://localhost:19200")
	seed2 := NewNode("http://localhost:19201")
	pool := NewNodePool(SniffingPool, []*Node{seed1, seed2}, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	disc := &fakeDiscoverer{errs: map[string]error{
		seed1.String(): errors.New("connection refused"),
		seed2.String(): errors.New("connection refused"),
	}}

	sniffer := NewSniffer(pool, disc, 0, nil)
	err := sniffer.SniffOnStartup(context.Background(), time.Second)
	if err == nil {
		t.Fatal("expected sniff to fail when no candidate is reachable")
	}
	pe, ok := err.(*PipelineError)
	if !ok || pe.Kind != KindSniffFailure {
		t.Fatalf("expected KindSniffFailure, got %v", err)
	}
	if disc.calls != 2 {
		t.Fatalf("expected both candidates to be tried, got %d calls", disc.calls)
	}
	if got := pool.Nodes(); len(got) != 2 || got[0] != seed1 || got[1] != seed2 {
		t.Fatalf("expected the original membership kept, got %v", got)
	}
}

// TestSnifferOnStartupOnlyRunsOnce verifies the barrier: a second call after
// a successful sniff observes the same cached outcome without discovering
// again.
func TestSnifferOnStartupOnlyRunsOnce(t *testing.T) {
	seed := NewNode("http://localhost:19200")
	pool := NewNodePool(SniffingPool, []*Node{seed}, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	disc := &fakeDiscoverer{results: map[string][]*Node{seed.String(): {NewNode("http://localhost:9200")}}}
	sniffer := NewSniffer(pool, disc, 0, nil)

	if err := sniffer.SniffOnStartup(context.Background(), time.Second); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := sniffer.SniffOnStartup(context.Background(), time.Second); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if disc.calls != 1 {
		t.Fatalf("expected discoverer invoked exactly once, got %d", disc.calls)
	}
}

func TestShouldSniffOnStale(t *testing.T) {
	pool := NewNodePool(SniffingPool, newTestNodes("http://localhost:9200"), DefaultDeadTimeout, DefaultMaxDeadTimeout)
	sniffer := NewSniffer(pool, &fakeDiscoverer{}, 0, nil)
	if sniffer.ShouldSniffOnStale() {
		t.Fatal("expected sniff-on-stale disabled when sniffLifeSpan <= 0")
	}

	sniffer = NewSniffer(pool, &fakeDiscoverer{}, 50*time.Millisecond, nil)
	if !sniffer.ShouldSniffOnStale() {
		t.Fatal("expected true before any sniff has happened")
	}
	pool.MarkSniffed(time.Now())
	if sniffer.ShouldSniffOnStale() {
		t.Fatal("expected false immediately after a sniff")
	}
	time.Sleep(60 * time.Millisecond)
	if !sniffer.ShouldSniffOnStale() {
		t.Fatal("expected true once sniffLifeSpan has elapsed")
	}
}

func TestSniffNonSniffablePoolIsNoop(t *testing.T) {
	pool := NewNodePool(StaticPool, newTestNodes("http://localhost:9200"), DefaultDeadTimeout, DefaultMaxDeadTimeout)
	disc := &fakeDiscoverer{}
	sniffer := NewSniffer(pool, disc, 0, nil)
	if err := sniffer.sniff(context.Background(), ReasonFailure, time.Second); err != nil {
		t.Fatalf("expected no-op on a non-sniffable pool, got %v", err)
	}
	if disc.calls != 0 {
		t.Fatalf("expected discoverer never called, got %d calls", disc.calls)
	}
}
