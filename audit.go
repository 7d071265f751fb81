package escore

import (
	"encoding/json"
	"time"
)

// AuditEventKind identifies the kind of event recorded in an AuditTrail.
type AuditEventKind int

const (
	SniffOnStartup AuditEventKind = iota
	SniffSuccess
	SniffFailure
	PingSuccess
	PingFailure
	HealthyResponse
	BadResponse
	MaxRetriesReached
	NoNodesAttempted
	CancellationRequested
	MarkAlive
	MarkDead
)

func (k AuditEventKind) String() string {
	switch k {
	case SniffOnStartup:
		return "SniffOnStartup"
	case SniffSuccess:
		return "SniffSuccess"
	case SniffFailure:
		return "SniffFailure"
	case PingSuccess:
		return "PingSuccess"
	case PingFailure:
		return "PingFailure"
	case HealthyResponse:
		return "HealthyResponse"
	case BadResponse:
		return "BadResponse"
	case MaxRetriesReached:
		return "MaxRetriesReached"
	case NoNodesAttempted:
		return "NoNodesAttempted"
	case CancellationRequested:
		return "CancellationRequested"
	case MarkAlive:
		return "MarkAlive"
	case MarkDead:
		return "MarkDead"
	default:
		return "Unknown"
	}
}

// AuditEvent is one entry in a request's AuditTrail.
type AuditEvent struct {
	Kind      AuditEventKind
	Node      *Node
	Timestamp time.Time
	Exception error
}

// AuditTrail is the ordered, append-only log of events for one request.
type AuditTrail struct {
	events []AuditEvent
}

func newAuditTrail() *AuditTrail {
	return &AuditTrail{}
}

func (t *AuditTrail) add(kind AuditEventKind, node *Node, err error) {
	t.events = append(t.events, AuditEvent{
		Kind:      kind,
		Node:      node,
		Timestamp: time.Now(),
		Exception: err,
	})
}

// Events returns the ordered events recorded so far. The returned slice must
// not be mutated by the caller.
func (t *AuditTrail) Events() []AuditEvent {
	return t.events
}

func (t *AuditTrail) Len() int {
	return len(t.events)
}

// MarshalJSON renders the trail as its ordered event list, since the
// struct's own fields are deliberately unexported to keep Events() the only
// way to read it.
func (t *AuditTrail) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(t.events)
}

// MarshalJSON renders the event kind by name rather than its ordinal value.
func (k AuditEventKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// MarshalJSON flattens the Exception field to its message, since error
// values otherwise marshal as their concrete (often empty) struct shape.
func (e AuditEvent) MarshalJSON() ([]byte, error) {
	type alias struct {
		Kind      AuditEventKind `json:"Kind"`
		Node      *Node          `json:"Node,omitempty"`
		Timestamp time.Time      `json:"Timestamp"`
		Exception string         `json:"Exception,omitempty"`
	}
	a := alias{Kind: e.Kind, Node: e.Node, Timestamp: e.Timestamp}
	if e.Exception != nil {
		a.Exception = e.Exception.Error()
	}
	return json.Marshal(a)
}
