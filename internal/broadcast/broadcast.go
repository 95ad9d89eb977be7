// Package broadcast defines the outbound fan-out interface the
// tournament coordinator uses to notify clients. The server's connection
// hub is the production implementation; tests use NopSink or a recorder.
package broadcast

import "time"

// Envelope is one typed message pushed to a client. Data carries the
// type-specific payload.
type Envelope struct {
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope stamps an envelope with the current time.
func NewEnvelope(typ string, data any) Envelope {
	return Envelope{Type: typ, Data: data, Timestamp: time.Now().UTC()}
}

// Sink delivers envelopes to connected clients. Implementations are
// fire-and-forget: delivery failure drops the recipient and never blocks
// or errors back into game logic.
type Sink interface {
	SendToPlayer(playerID string, env Envelope)
	BroadcastToViewers(env Envelope)
	BroadcastToAdmins(env Envelope)
}

// NopSink discards everything. Used in tests and as a default before the
// server attaches its hub.
type NopSink struct{}

func (NopSink) SendToPlayer(string, Envelope) {}
func (NopSink) BroadcastToViewers(Envelope)   {}
func (NopSink) BroadcastToAdmins(Envelope)    {}
