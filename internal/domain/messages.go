package domain

import "encoding/json"

// WebSocket message types from client.
const (
	MsgTypeAuth          = "auth"
	MsgTypeJoin          = "join"
	MsgTypeLeave         = "leave"
	MsgTypeChat          = "chat"
	MsgTypeSignal        = "signal"
	MsgTypeOffer         = "offer"
	MsgTypeAnswer        = "answer"
	MsgTypeICECandidate  = "ice-candidate"
	MsgTypeMetricsReport = "metrics-report"
	MsgTypeCreatePoll    = "create-poll"
	MsgTypeVotePoll      = "vote-poll"
	MsgTypeEndPoll       = "end-poll"
	MsgTypeUpdateSquad   = "update-squad"
	MsgTypePing          = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeAuthResult     = "auth-result"
	MsgTypeJoined         = "joined"
	MsgTypeMemberCount    = "member-count"
	MsgTypePeerJoined     = "peer-joined"
	MsgTypePeerLeft       = "peer-left"
	MsgTypeConnectToChild = "connect-to-child"
	MsgTypePollStarted    = "poll-started"
	MsgTypePollUpdate     = "poll-update"
	MsgTypePollEnded      = "poll-ended"
	MsgTypeSquadUpdated   = "squad-updated"
	MsgTypeWalletUpdate   = "wallet-update"
	MsgTypeTip            = "tip"
	MsgTypeStreamEnded    = "stream-ended"
	MsgTypePong           = "pong"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

// AuthMessage carries a bearer token issued by the identity service.
type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// JoinMessage asks to join the session of a stream.
type JoinMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	Username string `json:"username,omitempty"`
}

// ChatMessageIn is a chat line as sent by a client. User is informational
// only and never used as the displayed author.
type ChatMessageIn struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	User     string `json:"user,omitempty"`
	Text     string `json:"text"`
	Color    string `json:"color,omitempty"`
}

// SignalMessageIn is the generic relay shape.
type SignalMessageIn struct {
	Type    string          `json:"type"`
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// RelayMessageIn is the typed offer/answer/ice-candidate relay shape.
type RelayMessageIn struct {
	Type    string          `json:"type"`
	Target  string          `json:"target"`
	Payload json.RawMessage `json:"payload"`
}

// MetricsReportMessage is a periodic link quality sample from a relay node.
type MetricsReportMessage struct {
	Type       string  `json:"type"`
	StreamID   string  `json:"streamId"`
	LatencyMs  float64 `json:"latencyMs"`
	UploadMbps float64 `json:"uploadMbps"`
}

// CreatePollMessage opens a poll in the host's session.
type CreatePollMessage struct {
	Type     string   `json:"type"`
	StreamID string   `json:"streamId"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// VotePollMessage casts one vote. OptionIndex is a pointer so that a missing
// index is not mistaken for option 0.
type VotePollMessage struct {
	Type        string `json:"type"`
	StreamID    string `json:"streamId"`
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex"`
}

// EndPollMessage closes the active poll.
type EndPollMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
}

// UpdateSquadMessage replaces the session's revenue split table.
type UpdateSquadMessage struct {
	Type     string       `json:"type"`
	StreamID string       `json:"streamId"`
	Squad    []SquadEntry `json:"squad"`
}

// Server -> Client messages

// AuthResultMessage is sent to client after authentication.
type AuthResultMessage struct {
	Type     string `json:"type"`
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// JoinedMessage acknowledges a successful join to the joiner.
type JoinedMessage struct {
	Type         string `json:"type"`
	StreamID     string `json:"streamId"`
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username"`
	IsHost       bool   `json:"isHost"`
	MemberCount  int    `json:"memberCount"`
}

// MemberCountMessage is broadcast whenever membership changes.
type MemberCountMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	Count    int    `json:"count"`
}

// PeerMessage announces a peer joining or leaving.
type PeerMessage struct {
	Type         string `json:"type"`
	ConnectionID string `json:"connectionId"`
	Username     string `json:"username,omitempty"`
}

// ChatMessageOut is the confirmed chat line broadcast to the session.
type ChatMessageOut struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	StreamID  string `json:"streamId"`
	User      string `json:"user"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Color     string `json:"color,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// SignalMessageOut is a relayed generic signal.
type SignalMessageOut struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

// RelayMessageOut is a relayed offer/answer/ice-candidate.
type RelayMessageOut struct {
	Type    string          `json:"type"`
	Sender  string          `json:"sender"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectToChildMessage instructs a parent to open a relay link to a child.
type ConnectToChildMessage struct {
	Type    string `json:"type"`
	ChildID string `json:"childId"`
}

// PollMessage carries a poll snapshot (poll-started, poll-update, poll-ended).
type PollMessage struct {
	Type string       `json:"type"`
	Poll PollSnapshot `json:"poll"`
}

// SquadUpdatedMessage announces the accepted split table.
type SquadUpdatedMessage struct {
	Type     string       `json:"type"`
	StreamID string       `json:"streamId"`
	Squad    []SquadEntry `json:"squad"`
}

// WalletUpdateMessage is sent to a credited member after a tip commits.
type WalletUpdateMessage struct {
	Type    string `json:"type"`
	Balance int64  `json:"balance"`
}

// TipMessage tells a session that a tip came in.
type TipMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
	From     string `json:"from"`
	Amount   int64  `json:"amount"`
}

// StreamEndedMessage is sent when the host leaves.
type StreamEndedMessage struct {
	Type     string `json:"type"`
	StreamID string `json:"streamId"`
}
