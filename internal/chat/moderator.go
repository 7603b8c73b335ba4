package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
)

const (
	DefaultRefillInterval = 500 * time.Millisecond
	DefaultMaxLength      = 500
	maxColorLength        = 32
)

// ErrRateLimited is returned when the sender has no chat token left.
var ErrRateLimited = errors.New("chat rate limited")

// Config tunes the moderator.
type Config struct {
	RefillInterval time.Duration
	MaxLength      int
	Censor         *Censor
}

// Moderator validates, rate limits and fans out chat lines.
type Moderator struct {
	reg       *registry.Registry
	out       domain.Emitter
	cfg       Config
	now       func() time.Time
	messageID func() string
}

// NewModerator creates a moderator bound to the registry.
func NewModerator(reg *registry.Registry, out domain.Emitter, cfg Config) *Moderator {
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = DefaultRefillInterval
	}
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = DefaultMaxLength
	}
	return &Moderator{
		reg:       reg,
		out:       out,
		cfg:       cfg,
		now:       time.Now,
		messageID: newMessageID,
	}
}

// Handle broadcasts msg to the sender's session when it passes every check.
// The author shown is always the username bound at join.
func (m *Moderator) Handle(connID string, msg *domain.ChatMessageIn) error {
	c, ok := m.reg.Connection(connID)
	if !ok {
		return fmt.Errorf("connection %s: %w", connID, domain.ErrNotFound)
	}
	if msg.StreamID == "" || c.SessionID != msg.StreamID {
		return fmt.Errorf("%s not in %q: %w", connID, msg.StreamID, domain.ErrUnauthorized)
	}
	s, ok := m.reg.Session(msg.StreamID)
	if !ok {
		return fmt.Errorf("session %s: %w", msg.StreamID, domain.ErrNotFound)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return fmt.Errorf("empty message: %w", domain.ErrValidation)
	}
	if utf8.RuneCountInString(msg.Text) > m.cfg.MaxLength {
		return fmt.Errorf("message longer than %d: %w", m.cfg.MaxLength, domain.ErrValidation)
	}
	if len(msg.Color) > maxColorLength {
		return fmt.Errorf("color longer than %d: %w", maxColorLength, domain.ErrValidation)
	}

	now := m.now()
	if c.ChatLimiter == nil {
		c.ChatLimiter = rate.NewLimiter(rate.Every(m.cfg.RefillInterval), 1)
	}
	if !c.ChatLimiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	domain.Broadcast(m.out, s.Members(), &domain.ChatMessageOut{
		Type:      domain.MsgTypeChat,
		ID:        m.messageID(),
		StreamID:  msg.StreamID,
		User:      c.Username,
		SenderID:  connID,
		Text:      m.cfg.Censor.Apply(msg.Text),
		Color:     msg.Color,
		Timestamp: now.UnixMilli(),
	})
	return nil
}

// newMessageID returns a ULID so chat ids sort by creation time.
func newMessageID() string {
	return ulid.Make().String()
}
