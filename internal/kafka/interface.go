package kafka

import (
	"context"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

// Event is a broadcast lifecycle or tip event.
type Event struct {
	Type      string          `json:"type"` // "broadcast_started" | "broadcast_stopped" | "tip_distributed"
	StreamID  string          `json:"stream_id"`
	Host      string          `json:"host,omitempty"`
	Reason    string          `json:"reason,omitempty"` // "explicit" | "disconnect"
	Tipper    string          `json:"tipper,omitempty"`
	Amount    int64           `json:"amount,omitempty"`
	Credits   []domain.Credit `json:"credits,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Event types
const (
	EventBroadcastStarted = "broadcast_started"
	EventBroadcastStopped = "broadcast_stopped"
	EventTipDistributed   = "tip_distributed"
)

// Stop reasons
const (
	ReasonExplicit   = "explicit"
	ReasonDisconnect = "disconnect"
)

// EventProducer publishes events. Produce calls must not block on the
// broker; they are made from the coordinator loop.
type EventProducer interface {
	ProduceBroadcastStarted(ctx context.Context, streamID, host string) error
	ProduceBroadcastStopped(ctx context.Context, streamID, host, reason string) error
	ProduceTipDistributed(ctx context.Context, streamID, tipper string, amount int64, credits []domain.Credit) error
	Close() error
}
