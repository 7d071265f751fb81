package escore

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Node is a single addressable instance in the cluster. It is created once
// per cluster-membership snapshot and mutated only via the NodePool's
// markAlive/markDead bookkeeping.
type Node struct {
	ID             string
	URI            *url.URL
	isAlive        bool
	deadUntil      time.Time
	failedAttempts int
}

// NewNode constructs a Node pointing at uri. Panics if uri does not parse;
// callers building pools from configuration should validate first.
func NewNode(rawURI string) *Node {
	u, err := url.Parse(rawURI)
	if err != nil {
		panic("escore: invalid node uri: " + err.Error())
	}
	return &Node{
		ID:      uuid.NewString(),
		URI:     u,
		isAlive: true,
	}
}

// IsAlive reports the node's liveness bit as of the last pool mutation.
func (n *Node) IsAlive() bool {
	return n.isAlive
}

// DeadUntil reports the timestamp at which a dead node becomes eligible for
// revival. Zero means the node is not marked dead.
func (n *Node) DeadUntil() time.Time {
	return n.deadUntil
}

// FailedAttempts is the number of consecutive failures recorded since the
// last markAlive.
func (n *Node) FailedAttempts() int {
	return n.failedAttempts
}

func (n *Node) String() string {
	if n.URI == nil {
		return n.ID
	}
	return n.URI.String()
}

// PoolKind classifies a NodePool's membership-refresh behaviour.
type PoolKind int

const (
	SingleNodePool PoolKind = iota
	StaticPool
	SniffingPool
	StickyPool
)

// Sniffable reports whether a pool of this kind may have its membership
// refreshed at runtime by the Sniffer.
func (k PoolKind) Sniffable() bool {
	return k == SniffingPool
}
