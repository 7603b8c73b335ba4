package registry

import (
	"time"

	"golang.org/x/time/rate"
)

// Role is a connection's standing in its current session.
type Role int

const (
	RoleViewer Role = iota
	// RoleProvisionalHost is inferred from a claimed username equal to the
	// stream id. It grants host UI and poll control only.
	RoleProvisionalHost
	// RoleVerifiedHost is backed by a token whose identity owns the channel.
	RoleVerifiedHost
)

func (r Role) String() string {
	switch r {
	case RoleProvisionalHost:
		return "provisional_host"
	case RoleVerifiedHost:
		return "verified_host"
	default:
		return "viewer"
	}
}

// Connection is one live WebSocket connection.
type Connection struct {
	ID string
	// Identity is the verified token username, empty until auth succeeds.
	Identity string
	// Username is bound at join and kept for the lifetime of the session.
	Username  string
	SessionID string
	Role      Role
	// ChatLimiter is created lazily by the chat moderator.
	ChatLimiter *rate.Limiter
	CreatedAt   time.Time
}

// IsHost reports whether the connection holds the host slot of its session.
func (c *Connection) IsHost() bool {
	return c.Role != RoleViewer
}

func (c *Connection) resetSession() {
	c.SessionID = ""
	c.Username = ""
	c.Role = RoleViewer
}
