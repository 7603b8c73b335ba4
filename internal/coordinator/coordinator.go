package coordinator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/chat"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/kafka"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/mesh"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/registry"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/signaling"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// ErrStopped is returned once the loop has exited.
var ErrStopped = errors.New("coordinator stopped")

// Config tunes the coordinator and the components it owns.
type Config struct {
	QueueSize   int
	MaxChildren int
	Strategy    mesh.Strategy
	Chat        chat.Config
}

// Coordinator serialises every realtime event through one goroutine. The
// registry and everything hanging off it are touched only from Run.
type Coordinator struct {
	reg    *registry.Registry
	chat   *chat.Moderator
	relay  *signaling.Relay
	squads *ledger.SquadManager
	out    domain.Emitter
	events kafka.EventProducer

	inbox chan func()
	done  chan struct{}
}

// New wires the components. events may be nil.
func New(out domain.Emitter, events kafka.EventProducer, cfg Config) *Coordinator {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	reg := registry.New(out, cfg.MaxChildren, cfg.Strategy)
	return &Coordinator{
		reg:    reg,
		chat:   chat.NewModerator(reg, out, cfg.Chat),
		relay:  signaling.NewRelay(reg, out),
		squads: ledger.NewSquadManager(reg, out),
		out:    out,
		events: events,
		inbox:  make(chan func(), cfg.QueueSize),
		done:   make(chan struct{}),
	}
}

// Run processes events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	l := log.L()
	l.Info().Msg("coordinator started")
	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("coordinator stopped")
			return
		case task := <-c.inbox:
			c.safely(task)
		}
	}
}

// Done is closed when Run returns.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) safely(task func()) {
	defer func() {
		if r := recover(); r != nil {
			l := log.L()
			l.Error().
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("event handler panicked")
		}
	}()
	task()
}

// exec queues fn and waits for the loop to run it.
func (c *Coordinator) exec(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case c.inbox <- task:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrStopped
	}
}

// call runs fn on the loop and returns its error.
func (c *Coordinator) call(ctx context.Context, fn func() error) error {
	var err error
	if qerr := c.exec(ctx, func() { err = fn() }); qerr != nil {
		return qerr
	}
	return err
}
