package coordinator

import (
	"context"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/kafka"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/mesh"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// SessionSummary is the read-only view served over REST.
type SessionSummary struct {
	StreamID    string `json:"streamId"`
	MemberCount int    `json:"memberCount"`
	HasPoll     bool   `json:"hasPoll"`
	IsLive      bool   `json:"isLive"`
}

// Connect registers a transport connection.
func (c *Coordinator) Connect(ctx context.Context, connID string) error {
	return c.exec(ctx, func() {
		c.reg.Connect(connID)
	})
}

// Disconnect runs the leave teardown and forgets the connection.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	return c.exec(ctx, func() {
		res := c.reg.Disconnect(connID)
		c.afterLeave(ctx, res, kafka.ReasonDisconnect)
	})
}

// Authenticate records a verified token identity for a connection.
func (c *Coordinator) Authenticate(ctx context.Context, connID, identity string) error {
	return c.call(ctx, func() error {
		return c.reg.Authenticate(connID, identity)
	})
}

// Join moves a connection into a session. verifiedHost must come from a
// channel-owner lookup done before queuing.
func (c *Coordinator) Join(ctx context.Context, connID string, msg *domain.JoinMessage, verifiedHost bool) error {
	return c.call(ctx, func() error {
		c.afterLeave(ctx, c.reg.Leave(connID), kafka.ReasonExplicit)

		res, err := c.reg.Join(connID, msg.StreamID, msg.Username, verifiedHost)
		if err != nil {
			return err
		}
		if res.TookOverFrom != "" {
			// The broadcast is already live; only the host changed.
			audit.LogWithDetail(ctx, audit.ActionHostTakeover, res.Username, res.StreamID, "demoted="+res.TookOverFrom, "verified host took over session")
			return nil
		}
		if res.Role != registry.RoleViewer && c.events != nil {
			if err := c.events.ProduceBroadcastStarted(ctx, res.StreamID, res.Username); err != nil {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Str(log.FieldStreamID, res.StreamID).Msg("failed to produce broadcast_started")
			}
		}
		return nil
	})
}

// Leave runs the leave teardown.
func (c *Coordinator) Leave(ctx context.Context, connID string) error {
	return c.exec(ctx, func() {
		res := c.reg.Leave(connID)
		c.afterLeave(ctx, res, kafka.ReasonExplicit)
	})
}

// ReportMetrics stores a link sample.
func (c *Coordinator) ReportMetrics(ctx context.Context, connID string, msg *domain.MetricsReportMessage) error {
	return c.call(ctx, func() error {
		return c.reg.ReportMetrics(connID, msg.StreamID, mesh.Metrics{
			LatencyMs:  msg.LatencyMs,
			UploadMbps: msg.UploadMbps,
		})
	})
}

// Summary returns a read-only view of a session.
func (c *Coordinator) Summary(ctx context.Context, streamID string) (SessionSummary, bool, error) {
	var (
		sum   SessionSummary
		found bool
	)
	err := c.exec(ctx, func() {
		s, ok := c.reg.Session(streamID)
		if !ok {
			return
		}
		_, active := s.Poll.Active()
		found = true
		sum = SessionSummary{
			StreamID:    s.StreamID,
			MemberCount: s.Count(),
			HasPoll:     active,
			IsLive:      s.HostID != "",
		}
	})
	return sum, found, err
}

func (c *Coordinator) afterLeave(ctx context.Context, res registry.LeaveResult, reason string) {
	if !res.WasHost || c.events == nil {
		return
	}
	if err := c.events.ProduceBroadcastStopped(ctx, res.StreamID, res.Username, reason); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldStreamID, res.StreamID).Msg("failed to produce broadcast_stopped")
	}
}
