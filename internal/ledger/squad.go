package ledger

import (
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
)

// SquadManager is the coordinator-side half of the ledger: the per-session
// split tables and post-commit notifications.
type SquadManager struct {
	reg *registry.Registry
	out domain.Emitter
}

// NewSquadManager creates a manager over the registry's sessions.
func NewSquadManager(reg *registry.Registry, out domain.Emitter) *SquadManager {
	return &SquadManager{reg: reg, out: out}
}

// UpdateSquad replaces the split table of streamID. Only the verified host
// may do this, and a rejected table leaves the previous one in place.
func (m *SquadManager) UpdateSquad(connID, streamID string, entries []domain.SquadEntry) (domain.Squad, error) {
	c, ok := m.reg.Connection(connID)
	if !ok {
		return nil, fmt.Errorf("connection %s: %w", connID, domain.ErrNotFound)
	}
	s, ok := m.reg.Session(streamID)
	if !ok || !s.Has(connID) {
		return nil, fmt.Errorf("%s not in %q: %w", connID, streamID, domain.ErrUnauthorized)
	}
	if s.HostID != connID || c.Role != registry.RoleVerifiedHost {
		return nil, fmt.Errorf("squad update by non verified host %s: %w", connID, domain.ErrUnauthorized)
	}

	squad, err := ValidateSquad(entries)
	if err != nil {
		return nil, err
	}
	s.Squad = squad

	table := []domain.SquadEntry(squad.Clone())
	if table == nil {
		table = []domain.SquadEntry{}
	}
	domain.Broadcast(m.out, s.Members(), &domain.SquadUpdatedMessage{
		Type:     domain.MsgTypeSquadUpdated,
		StreamID: streamID,
		Squad:    table,
	})
	return squad.Clone(), nil
}

// Squad returns a copy of the table for streamID, nil for the default.
func (m *SquadManager) Squad(streamID string) domain.Squad {
	s, ok := m.reg.Session(streamID)
	if !ok {
		return nil
	}
	return s.Squad.Clone()
}

// NotifyTip pushes new balances to every connection authenticated as a
// credited account or as the tipper, and announces the tip to the session.
func (m *SquadManager) NotifyTip(r *Receipt) {
	names := make([]string, 0, len(r.Credits)+1)
	for _, credit := range r.Credits {
		names = append(names, credit.Name)
	}
	if _, credited := r.Balances[r.Tipper]; credited && !containsName(r.Credits, r.Tipper) {
		names = append(names, r.Tipper)
	}

	for _, name := range names {
		balance, ok := r.Balances[name]
		if !ok {
			continue
		}
		for _, connID := range m.reg.ConnectionsFor(name) {
			m.out.Send(connID, &domain.WalletUpdateMessage{
				Type:    domain.MsgTypeWalletUpdate,
				Balance: balance,
			})
		}
	}

	if s, ok := m.reg.Session(r.StreamID); ok {
		domain.Broadcast(m.out, s.Members(), &domain.TipMessage{
			Type:     domain.MsgTypeTip,
			StreamID: r.StreamID,
			From:     r.Tipper,
			Amount:   r.Amount,
		})
	}
}

func containsName(credits []domain.Credit, name string) bool {
	for _, c := range credits {
		if c.Name == name {
			return true
		}
	}
	return false
}
