package registry

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/mesh"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/poll"
)

const MaxStreamIDLength = 128

// Session is one live broadcast.
type Session struct {
	StreamID  string
	HostID    string
	Tree      *mesh.Tree
	Poll      *poll.Machine
	Squad     domain.Squad
	CreatedAt time.Time

	members []string
	index   map[string]struct{}
}

func newSession(streamID string, tree *mesh.Tree, now time.Time) *Session {
	return &Session{
		StreamID:  streamID,
		Tree:      tree,
		Poll:      poll.NewMachine(),
		CreatedAt: now,
		index:     make(map[string]struct{}),
	}
}

// Members returns member connection ids in join order.
func (s *Session) Members() []string {
	out := make([]string, len(s.members))
	copy(out, s.members)
	return out
}

// Count returns the member set size.
func (s *Session) Count() int { return len(s.members) }

// Has reports membership.
func (s *Session) Has(connID string) bool {
	_, ok := s.index[connID]
	return ok
}

func (s *Session) add(connID string) {
	if s.Has(connID) {
		return
	}
	s.index[connID] = struct{}{}
	s.members = append(s.members, connID)
}

func (s *Session) remove(connID string) {
	if !s.Has(connID) {
		return
	}
	delete(s.index, connID)
	for i, id := range s.members {
		if id == connID {
			s.members = append(s.members[:i], s.members[i+1:]...)
			break
		}
	}
}

func (s *Session) others(connID string) []string {
	out := make([]string, 0, len(s.members))
	for _, id := range s.members {
		if id != connID {
			out = append(out, id)
		}
	}
	return out
}

// ValidStreamID reports whether id is usable as a session key.
func ValidStreamID(id string) bool {
	if id == "" || utf8.RuneCountInString(id) > MaxStreamIDLength {
		return false
	}
	return strings.IndexFunc(id, unicode.IsSpace) < 0
}
