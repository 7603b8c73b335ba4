package poll

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
)

const (
	MinOptions = 2
	MaxOptions = 4
)

type option struct {
	text  string
	votes int
}

type poll struct {
	id       string
	question string
	options  []option
	voters   map[string]struct{}
	total    int
}

// Machine is the per-session poll state: idle or one active poll.
// The coordinator loop owns it.
type Machine struct {
	active *poll
	newID  func() string
}

// NewMachine returns an idle machine issuing uuid poll ids.
func NewMachine() *Machine {
	return &Machine{newID: uuid.NewString}
}

// Create opens a poll. It fails while another poll is active.
func (m *Machine) Create(question string, options []string) (domain.PollSnapshot, error) {
	if m.active != nil {
		return domain.PollSnapshot{}, fmt.Errorf("poll %s still active: %w", m.active.id, domain.ErrConflict)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.PollSnapshot{}, fmt.Errorf("empty question: %w", domain.ErrValidation)
	}
	if len(options) < MinOptions || len(options) > MaxOptions {
		return domain.PollSnapshot{}, fmt.Errorf("need %d-%d options, got %d: %w", MinOptions, MaxOptions, len(options), domain.ErrValidation)
	}

	opts := make([]option, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return domain.PollSnapshot{}, fmt.Errorf("empty option: %w", domain.ErrValidation)
		}
		opts = append(opts, option{text: o})
	}

	m.active = &poll{
		id:       m.newID(),
		question: question,
		options:  opts,
		voters:   make(map[string]struct{}),
	}
	return m.active.snapshot(true), nil
}

// Vote records one vote per voter on the active poll.
func (m *Machine) Vote(pollID, voterID string, optionIndex int) (domain.PollSnapshot, error) {
	p := m.active
	if p == nil {
		return domain.PollSnapshot{}, fmt.Errorf("no active poll: %w", domain.ErrConflict)
	}
	if p.id != pollID {
		return domain.PollSnapshot{}, fmt.Errorf("poll %s is not active: %w", pollID, domain.ErrConflict)
	}
	if optionIndex < 0 || optionIndex >= len(p.options) {
		return domain.PollSnapshot{}, fmt.Errorf("option %d out of range: %w", optionIndex, domain.ErrValidation)
	}
	if _, voted := p.voters[voterID]; voted {
		return domain.PollSnapshot{}, fmt.Errorf("%s already voted: %w", voterID, domain.ErrConflict)
	}

	p.voters[voterID] = struct{}{}
	p.options[optionIndex].votes++
	p.total++
	return p.snapshot(true), nil
}

// End closes the active poll and returns its final tallies.
func (m *Machine) End() (domain.PollSnapshot, error) {
	if m.active == nil {
		return domain.PollSnapshot{}, fmt.Errorf("no active poll: %w", domain.ErrConflict)
	}
	snap := m.active.snapshot(false)
	m.active = nil
	return snap, nil
}

// Clear drops the active poll without a result.
func (m *Machine) Clear() {
	m.active = nil
}

// Active returns the snapshot of the active poll, if any.
func (m *Machine) Active() (domain.PollSnapshot, bool) {
	if m.active == nil {
		return domain.PollSnapshot{}, false
	}
	return m.active.snapshot(true), true
}

func (p *poll) snapshot(active bool) domain.PollSnapshot {
	opts := make([]domain.PollOption, len(p.options))
	for i, o := range p.options {
		opts[i] = domain.PollOption{Text: o.text, Votes: o.votes}
	}
	return domain.PollSnapshot{
		ID:         p.id,
		Question:   p.question,
		Options:    opts,
		TotalVotes: p.total,
		Active:     active,
	}
}
