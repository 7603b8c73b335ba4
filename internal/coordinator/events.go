package coordinator

import (
	"context"
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
)

// Chat hands a chat line to the moderator.
func (c *Coordinator) Chat(ctx context.Context, connID string, msg *domain.ChatMessageIn) error {
	return c.call(ctx, func() error {
		return c.chat.Handle(connID, msg)
	})
}

// Signal relays a generic signal.
func (c *Coordinator) Signal(ctx context.Context, connID string, msg *domain.SignalMessageIn) error {
	return c.call(ctx, func() error {
		return c.relay.Signal(connID, msg.To, msg.Payload)
	})
}

// Relay forwards an offer, answer or ice-candidate.
func (c *Coordinator) Relay(ctx context.Context, connID string, msg *domain.RelayMessageIn) error {
	return c.call(ctx, func() error {
		return c.relay.Forward(msg.Type, connID, msg.Target, msg.Payload)
	})
}

// CreatePoll opens a poll in the caller's session. Host only.
func (c *Coordinator) CreatePoll(ctx context.Context, connID string, msg *domain.CreatePollMessage) error {
	return c.call(ctx, func() error {
		s, err := c.hostSession(connID, msg.StreamID)
		if err != nil {
			return err
		}
		snap, err := s.Poll.Create(msg.Question, msg.Options)
		if err != nil {
			return err
		}
		domain.Broadcast(c.out, s.Members(), &domain.PollMessage{Type: domain.MsgTypePollStarted, Poll: snap})
		return nil
	})
}

// VotePoll counts one vote per connection.
func (c *Coordinator) VotePoll(ctx context.Context, connID string, msg *domain.VotePollMessage) error {
	return c.call(ctx, func() error {
		s, ok := c.reg.Session(msg.StreamID)
		if !ok || !s.Has(connID) {
			return fmt.Errorf("%s not in %q: %w", connID, msg.StreamID, domain.ErrUnauthorized)
		}
		if msg.OptionIndex == nil {
			return fmt.Errorf("missing option index: %w", domain.ErrValidation)
		}
		snap, err := s.Poll.Vote(msg.PollID, connID, *msg.OptionIndex)
		if err != nil {
			return err
		}
		domain.Broadcast(c.out, s.Members(), &domain.PollMessage{Type: domain.MsgTypePollUpdate, Poll: snap})
		return nil
	})
}

// EndPoll closes the active poll. Host only.
func (c *Coordinator) EndPoll(ctx context.Context, connID string, msg *domain.EndPollMessage) error {
	return c.call(ctx, func() error {
		s, err := c.hostSession(connID, msg.StreamID)
		if err != nil {
			return err
		}
		snap, err := s.Poll.End()
		if err != nil {
			return err
		}
		domain.Broadcast(c.out, s.Members(), &domain.PollMessage{Type: domain.MsgTypePollEnded, Poll: snap})
		return nil
	})
}

// UpdateSquad replaces the split table. Verified host only.
func (c *Coordinator) UpdateSquad(ctx context.Context, connID string, msg *domain.UpdateSquadMessage) error {
	return c.call(ctx, func() error {
		squad, err := c.squads.UpdateSquad(connID, msg.StreamID, msg.Squad)
		if err != nil {
			return err
		}
		var user string
		if conn, ok := c.reg.Connection(connID); ok {
			user = conn.Username
		}
		audit.LogWithDetail(ctx, audit.ActionSquadUpdated, user, msg.StreamID, fmt.Sprintf("members=%d", len(squad)), "squad updated")
		return nil
	})
}

// Squad returns the validated split table of a live session. It satisfies
// ledger.SquadSource.
func (c *Coordinator) Squad(ctx context.Context, streamID string) (domain.Squad, error) {
	var squad domain.Squad
	err := c.exec(ctx, func() {
		squad = c.squads.Squad(streamID)
	})
	return squad, err
}

// NotifyTip sends post-commit wallet and tip notices.
func (c *Coordinator) NotifyTip(ctx context.Context, r *ledger.Receipt) error {
	return c.exec(ctx, func() {
		c.squads.NotifyTip(r)
	})
}

func (c *Coordinator) hostSession(connID, streamID string) (*registry.Session, error) {
	s, ok := c.reg.Session(streamID)
	if !ok || !s.Has(connID) {
		return nil, fmt.Errorf("%s not in %q: %w", connID, streamID, domain.ErrUnauthorized)
	}
	if s.HostID != connID {
		return nil, fmt.Errorf("%s is not host of %s: %w", connID, streamID, domain.ErrUnauthorized)
	}
	return s, nil
}
