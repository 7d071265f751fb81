package escore

import (
	"testing"
	"time"
)

func newTestNodes(uris ...string) []*Node {
	nodes := make([]*Node, 0, len(uris))
	for _, u := range uris {
		nodes = append(nodes, NewNode(u))
	}
	return nodes
}

// TestNextNodeRoundRobinHealthy mirrors the teacher's
// TestClientSelectConnHealthy: with every node alive, NextNode cycles
// through them in order. maxRetries=0 limits each call to one node, so the
// persisted cursor is what advances the selection between calls.
func TestNextNodeRoundRobinHealthy(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200", "http://127.0.0.1:9201")
	pool := NewNodePool(StaticPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)

	one := pool.NextNode(intPtr(0))
	if len(one) != 1 || one[0] != nodes[0] {
		t.Fatalf("expected first node, got %v", one)
	}
	two := pool.NextNode(intPtr(0))
	if len(two) != 1 || two[0] != nodes[1] {
		t.Fatalf("expected second node, got %v", two)
	}
	three := pool.NextNode(intPtr(0))
	if len(three) != 1 || three[0] != nodes[0] {
		t.Fatalf("expected wraparound to first node, got %v", three)
	}
}

// TestNextNodeSkipsDead mirrors TestClientSelectConnHealthyAndDead /
// TestClientSelectConnDeadAndHealthy: a dead node is never returned while a
// live one exists.
func TestNextNodeSkipsDead(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200", "http://127.0.0.1:9201")
	pool := NewNodePool(StaticPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	pool.MarkDead(nodes[1])

	for i := 0; i < 3; i++ {
		got := pool.NextNode(nil)
		if len(got) != 1 || got[0] != nodes[0] {
			t.Fatalf("iteration %d: expected only the live node, got %v", i, got)
		}
	}
}

// TestNextNodeAllDeadRevives mirrors TestClientSelectConnAllDead: once every
// node is dead, NextNode falls back to a last-resort revival candidate
// rather than returning nothing.
func TestNextNodeAllDeadRevives(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200", "http://127.0.0.1:9201")
	pool := NewNodePool(StaticPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	pool.MarkDead(nodes[0])
	pool.MarkDead(nodes[1])

	got := pool.NextNode(nil)
	if len(got) != 1 {
		t.Fatalf("expected exactly one last-resort node, got %v", got)
	}
}

func TestNextNodeEmptyPool(t *testing.T) {
	pool := NewNodePool(StaticPool, nil, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	if got := pool.NextNode(nil); got != nil {
		t.Fatalf("expected nil from an empty pool, got %v", got)
	}
}

func TestMarkDeadAppliesExponentialBackoff(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200")
	pool := NewNodePool(StaticPool, nodes, 1*time.Second, 10*time.Second)

	before := time.Now()
	pool.MarkDead(nodes[0])
	firstDeadUntil := nodes[0].DeadUntil()
	if !firstDeadUntil.After(before) {
		t.Fatalf("expected deadUntil in the future after first failure")
	}

	pool.MarkDead(nodes[0])
	secondDeadUntil := nodes[0].DeadUntil()
	if !secondDeadUntil.After(firstDeadUntil) {
		t.Fatalf("expected backoff to grow on consecutive failures")
	}
	if nodes[0].FailedAttempts() != 2 {
		t.Fatalf("expected 2 failed attempts, got %d", nodes[0].FailedAttempts())
	}
}

func TestMarkDeadBackoffCapsAtMax(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200")
	pool := NewNodePool(StaticPool, nodes, 1*time.Second, 5*time.Second)
	for i := 0; i < 10; i++ {
		pool.MarkDead(nodes[0])
	}
	until := nodes[0].DeadUntil()
	if until.After(time.Now().Add(5*time.Second + time.Second)) {
		t.Fatalf("expected backoff capped around 5s, got deadUntil %v", until)
	}
}

func TestMarkAliveResetsBackoffState(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200")
	pool := NewNodePool(StaticPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	pool.MarkDead(nodes[0])
	pool.MarkAlive(nodes[0])

	if !nodes[0].IsAlive() {
		t.Fatal("expected node to be alive again")
	}
	if nodes[0].FailedAttempts() != 0 {
		t.Fatalf("expected failed attempts reset to 0, got %d", nodes[0].FailedAttempts())
	}
	if !nodes[0].DeadUntil().IsZero() {
		t.Fatal("expected deadUntil cleared")
	}
}

func TestRetryBudget(t *testing.T) {
	cases := []struct {
		name      string
		maxRetries *int
		liveCount int
		want      int
	}{
		{"default uses liveCount-1, floored at 1", nil, 1, 1},
		{"default with 3 live nodes", nil, 3, 3},
		{"explicit override capped at liveCount", intPtr(10), 2, 2},
		{"explicit override below liveCount", intPtr(1), 3, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := retryBudget(tc.maxRetries, tc.liveCount)
			if got != tc.want {
				t.Fatalf("retryBudget(%v, %d) = %d, want %d", tc.maxRetries, tc.liveCount, got, tc.want)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func TestOnTransitionCallback(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200")
	pool := NewNodePool(StaticPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)

	var transitions []bool
	pool.OnTransition(func(alive bool) {
		transitions = append(transitions, alive)
	})

	pool.MarkDead(nodes[0])
	pool.MarkAlive(nodes[0])

	if len(transitions) != 2 || transitions[0] != false || transitions[1] != true {
		t.Fatalf("expected [false true], got %v", transitions)
	}
}

func TestSniffReplacesMembership(t *testing.T) {
	nodes := newTestNodes("http://127.0.0.1:9200", "http://127.0.0.1:9201", "http://127.0.0.1:9202")
	pool := NewNodePool(SniffingPool, nodes, DefaultDeadTimeout, DefaultMaxDeadTimeout)
	pool.NextNode(nil)
	pool.NextNode(nil)

	replacement := newTestNodes("http://127.0.0.1:9300")
	pool.Sniff(replacement)

	got := pool.Nodes()
	if len(got) != 1 || got[0] != replacement[0] {
		t.Fatalf("expected membership replaced with sniffed nodes, got %v", got)
	}
}

func TestPoolKindSniffable(t *testing.T) {
	if !SniffingPool.Sniffable() {
		t.Fatal("expected SniffingPool to be sniffable")
	}
	for _, k := range []PoolKind{SingleNodePool, StaticPool, StickyPool} {
		if k.Sniffable() {
			t.Fatalf("expected %v to not be sniffable", k)
		}
	}
}
