package registry

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/mesh"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// Registry owns every connection and session. It is not safe for concurrent
// use; the coordinator loop is its only caller.
type Registry struct {
	conns    map[string]*Connection
	sessions map[string]*Session
	out      domain.Emitter

	maxChildren int
	strategy    mesh.Strategy
	now         func() time.Time
	guestName   func() string
}

// New creates an empty registry emitting through out.
func New(out domain.Emitter, maxChildren int, strategy mesh.Strategy) *Registry {
	return &Registry{
		conns:       make(map[string]*Connection),
		sessions:    make(map[string]*Session),
		out:         out,
		maxChildren: maxChildren,
		strategy:    strategy,
		now:         time.Now,
		guestName: func() string {
			return "guest-" + uuid.NewString()[:8]
		},
	}
}

// JoinResult describes an accepted join.
type JoinResult struct {
	StreamID       string
	Username       string
	Role           Role
	SessionCreated bool
	// TookOverFrom is the provisional host demoted by a verified host.
	TookOverFrom string
}

// LeaveResult describes a teardown. Left is false when the connection was
// in no session.
type LeaveResult struct {
	StreamID      string
	Username      string
	Left          bool
	WasHost       bool
	SessionClosed bool
}

// Connect registers a new connection.
func (r *Registry) Connect(connID string) *Connection {
	c := &Connection{ID: connID, CreatedAt: r.now()}
	r.conns[connID] = c
	return c
}

// Authenticate binds a verified identity to a connection.
func (r *Registry) Authenticate(connID, identity string) error {
	c, ok := r.conns[connID]
	if !ok {
		return fmt.Errorf("connection %s: %w", connID, domain.ErrNotFound)
	}
	c.Identity = identity
	return nil
}

// Disconnect tears down membership and forgets the connection.
func (r *Registry) Disconnect(connID string) LeaveResult {
	res := r.Leave(connID)
	delete(r.conns, connID)
	return res
}

// Connection returns a registered connection.
func (r *Registry) Connection(connID string) (*Connection, bool) {
	c, ok := r.conns[connID]
	return c, ok
}

// Session returns a live session.
func (r *Registry) Session(streamID string) (*Session, bool) {
	s, ok := r.sessions[streamID]
	return s, ok
}

// SessionOf returns the session the connection is in.
func (r *Registry) SessionOf(connID string) (*Session, bool) {
	c, ok := r.conns[connID]
	if !ok || c.SessionID == "" {
		return nil, false
	}
	return r.Session(c.SessionID)
}

// MemberOf reports whether connID is a member of streamID.
func (r *Registry) MemberOf(connID, streamID string) bool {
	s, ok := r.sessions[streamID]
	return ok && s.Has(connID)
}

// SameSession reports whether both connections are in the same session.
func (r *Registry) SameSession(a, b string) bool {
	ca, ok := r.conns[a]
	if !ok || ca.SessionID == "" {
		return false
	}
	cb, ok := r.conns[b]
	return ok && cb.SessionID == ca.SessionID
}

// ConnectionsFor returns the ids of connections authenticated as identity.
func (r *Registry) ConnectionsFor(identity string) []string {
	var out []string
	for id, c := range r.conns {
		if c.Identity != "" && c.Identity == identity {
			out = append(out, id)
		}
	}
	return out
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int { return len(r.conns) }

// SessionCount returns the number of live sessions.
func (r *Registry) SessionCount() int { return len(r.sessions) }

// Join moves a connection into streamID. Any current membership is torn
// down first, even when the new join turns out to be invalid.
// verifiedHost must only be true when the connection's identity owns the
// channel.
func (r *Registry) Join(connID, streamID, claimed string, verifiedHost bool) (JoinResult, error) {
	c, ok := r.conns[connID]
	if !ok {
		return JoinResult{}, fmt.Errorf("connection %s: %w", connID, domain.ErrNotFound)
	}

	r.Leave(connID)

	if !ValidStreamID(streamID) {
		return JoinResult{}, fmt.Errorf("stream id %q: %w", streamID, domain.ErrValidation)
	}

	username := c.Identity
	if username == "" {
		username = claimed
	}
	if username == "" {
		username = r.guestName()
	}

	role := RoleViewer
	switch {
	case verifiedHost && c.Identity != "":
		role = RoleVerifiedHost
	case c.Identity == "" && claimed != "" && claimed == streamID:
		role = RoleProvisionalHost
	}

	s, exists := r.sessions[streamID]
	if !exists {
		s = newSession(streamID, mesh.NewTree(r.maxChildren, r.strategy), r.now())
		r.sessions[streamID] = s
	}

	res := JoinResult{StreamID: streamID, Username: username, SessionCreated: !exists}

	var directives []mesh.Directive
	var err error
	switch {
	case role != RoleViewer && s.HostID == "":
		s.HostID = connID
		directives, err = s.Tree.SetRoot(connID)
	case role == RoleVerifiedHost && r.conns[s.HostID] != nil && r.conns[s.HostID].Role == RoleProvisionalHost:
		old := r.conns[s.HostID]
		old.Role = RoleViewer
		res.TookOverFrom = old.ID
		s.HostID = connID
		directives, err = s.Tree.Reroot(connID)
	default:
		role = RoleViewer
		directives, err = s.Tree.Add(connID)
	}
	if err != nil {
		if !exists {
			delete(r.sessions, streamID)
		}
		return JoinResult{}, fmt.Errorf("mesh attach: %w", err)
	}

	s.add(connID)
	c.SessionID = streamID
	c.Username = username
	c.Role = role
	res.Role = role

	members := s.Members()
	domain.Broadcast(r.out, members, &domain.MemberCountMessage{
		Type:     domain.MsgTypeMemberCount,
		StreamID: streamID,
		Count:    s.Count(),
	})
	domain.Broadcast(r.out, s.others(connID), &domain.PeerMessage{
		Type:         domain.MsgTypePeerJoined,
		ConnectionID: connID,
		Username:     username,
	})
	r.out.Send(connID, &domain.JoinedMessage{
		Type:         domain.MsgTypeJoined,
		StreamID:     streamID,
		ConnectionID: connID,
		Username:     username,
		IsHost:       role != RoleViewer,
		MemberCount:  s.Count(),
	})
	r.sendDirectives(directives)
	if snap, active := s.Poll.Active(); active {
		r.out.Send(connID, &domain.PollMessage{Type: domain.MsgTypePollStarted, Poll: snap})
	}

	l := log.L()
	l.Debug().
		Str(log.FieldConnectionID, connID).
		Str(log.FieldStreamID, streamID).
		Str("role", role.String()).
		Int("members", s.Count()).
		Msg("joined session")

	return res, nil
}

// Leave removes a connection from its session. It is idempotent.
func (r *Registry) Leave(connID string) LeaveResult {
	c, ok := r.conns[connID]
	if !ok || c.SessionID == "" {
		return LeaveResult{}
	}

	streamID := c.SessionID
	res := LeaveResult{StreamID: streamID, Username: c.Username, Left: true}
	s, ok := r.sessions[streamID]
	c.resetSession()
	if !ok {
		return res
	}

	s.remove(connID)
	peerLeft := &domain.PeerMessage{
		Type:         domain.MsgTypePeerLeft,
		ConnectionID: connID,
		Username:     res.Username,
	}

	if s.HostID == connID {
		res.WasHost = true
		res.SessionClosed = true
		s.Poll.Clear()
		ended := &domain.StreamEndedMessage{Type: domain.MsgTypeStreamEnded, StreamID: streamID}
		for _, id := range s.Members() {
			r.out.Send(id, peerLeft)
			r.out.Send(id, ended)
			if m, ok := r.conns[id]; ok {
				m.resetSession()
			}
		}
		delete(r.sessions, streamID)
		l := log.L()
		l.Info().Str(log.FieldStreamID, streamID).Msg("host left, session closed")
		return res
	}

	directives, err := s.Tree.Remove(connID)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Str(log.FieldConnectionID, connID).Msg("mesh detach failed")
	}

	if s.Count() == 0 {
		res.SessionClosed = true
		delete(r.sessions, streamID)
		return res
	}

	members := s.Members()
	domain.Broadcast(r.out, members, &domain.MemberCountMessage{
		Type:     domain.MsgTypeMemberCount,
		StreamID: streamID,
		Count:    s.Count(),
	})
	domain.Broadcast(r.out, members, peerLeft)
	r.sendDirectives(directives)
	return res
}

// ReportMetrics stores a link sample for a member's mesh node.
func (r *Registry) ReportMetrics(connID, streamID string, m mesh.Metrics) error {
	s, ok := r.sessions[streamID]
	if !ok || !s.Has(connID) {
		return fmt.Errorf("%s not in %s: %w", connID, streamID, domain.ErrNotFound)
	}
	if err := s.Tree.ReportMetrics(connID, m); err != nil {
		return fmt.Errorf("metrics: %w", domain.ErrValidation)
	}
	return nil
}

func (r *Registry) sendDirectives(directives []mesh.Directive) {
	for _, d := range directives {
		r.out.Send(d.Parent, &domain.ConnectToChildMessage{
			Type:    domain.MsgTypeConnectToChild,
			ChildID: d.Child,
		})
	}
}
