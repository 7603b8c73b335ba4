package signaling

import (
	"encoding/json"
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
)

// Relay forwards opaque WebRTC negotiation payloads between co-members.
// Payloads are never inspected.
type Relay struct {
	reg *registry.Registry
	out domain.Emitter
}

// NewRelay creates a relay gated by registry membership.
func NewRelay(reg *registry.Registry, out domain.Emitter) *Relay {
	return &Relay{reg: reg, out: out}
}

// Signal forwards a generic signal as {from, payload}.
func (r *Relay) Signal(from, to string, payload json.RawMessage) error {
	if err := r.check(from, to, payload); err != nil {
		return err
	}
	r.out.Send(to, &domain.SignalMessageOut{
		Type:    domain.MsgTypeSignal,
		From:    from,
		Payload: payload,
	})
	return nil
}

// Forward relays an offer, answer or ice-candidate as {sender, payload}.
func (r *Relay) Forward(msgType, from, target string, payload json.RawMessage) error {
	switch msgType {
	case domain.MsgTypeOffer, domain.MsgTypeAnswer, domain.MsgTypeICECandidate:
	default:
		return fmt.Errorf("relay type %q: %w", msgType, domain.ErrValidation)
	}
	if err := r.check(from, target, payload); err != nil {
		return err
	}
	r.out.Send(target, &domain.RelayMessageOut{
		Type:    msgType,
		Sender:  from,
		Payload: payload,
	})
	return nil
}

func (r *Relay) check(from, to string, payload json.RawMessage) error {
	if to == "" || len(payload) == 0 || string(payload) == "null" {
		return fmt.Errorf("missing target or payload: %w", domain.ErrValidation)
	}
	if !r.reg.SameSession(from, to) {
		return fmt.Errorf("%s and %s not co-members: %w", from, to, domain.ErrUnauthorized)
	}
	return nil
}
