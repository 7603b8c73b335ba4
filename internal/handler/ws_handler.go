package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/coordinator"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/hub"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/service"
	pkglog "github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSHandler handles WebSocket connections.
type WSHandler struct {
	hub    *hub.Hub
	coord  *coordinator.Coordinator
	tokens middleware.TokenValidator
	owners service.OwnerDirectory
}

// NewWSHandler creates a new WebSocket handler.
func NewWSHandler(h *hub.Hub, coord *coordinator.Coordinator, tokens middleware.TokenValidator, owners service.OwnerDirectory) *WSHandler {
	return &WSHandler{
		hub:    h,
		coord:  coord,
		tokens: tokens,
		owners: owners,
	}
}

// HandleWebSocket handles WebSocket upgrade and message routing.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := pkglog.Ctx(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn)

	client.SetDisconnectHandler(func(c *hub.Client) {
		if err := h.coord.Disconnect(context.Background(), c.ID); err != nil {
			l.Error().Err(err).Str(pkglog.FieldConnectionID, c.ID).Msg("disconnect handler error")
		}
	})

	h.hub.Register(client)
	if err := h.coord.Connect(r.Context(), client.ID); err != nil {
		l.Error().Err(err).Str(pkglog.FieldConnectionID, client.ID).Msg("failed to register connection")
		h.hub.Unregister(client)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(h.handleMessage)
}

// handleMessage decodes one frame and hands it to the coordinator.
// Malformed or rejected messages are dropped without a reply.
func (h *WSHandler) handleMessage(client *hub.Client, message []byte) {
	l := pkglog.L().With().Str(pkglog.FieldConnectionID, client.ID).Logger()
	ctx := pkglog.WithLogger(context.Background(), l)

	var base domain.BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		l.Debug().Err(err).Msg("invalid message format")
		return
	}

	var err error
	switch base.Type {
	case domain.MsgTypeAuth:
		var msg domain.AuthMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.handleAuth(ctx, client, msg.Token)
		}

	case domain.MsgTypeJoin:
		var msg domain.JoinMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.Join(ctx, client.ID, &msg, h.verifyHost(ctx, client, &msg))
		}

	case domain.MsgTypeLeave:
		err = h.coord.Leave(ctx, client.ID)

	case domain.MsgTypeChat:
		var msg domain.ChatMessageIn
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.Chat(ctx, client.ID, &msg)
		}

	case domain.MsgTypeSignal:
		var msg domain.SignalMessageIn
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.Signal(ctx, client.ID, &msg)
		}

	case domain.MsgTypeOffer, domain.MsgTypeAnswer, domain.MsgTypeICECandidate:
		var msg domain.RelayMessageIn
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.Relay(ctx, client.ID, &msg)
		}

	case domain.MsgTypeMetricsReport:
		var msg domain.MetricsReportMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.ReportMetrics(ctx, client.ID, &msg)
		}

	case domain.MsgTypeCreatePoll:
		var msg domain.CreatePollMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.CreatePoll(ctx, client.ID, &msg)
		}

	case domain.MsgTypeVotePoll:
		var msg domain.VotePollMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.VotePoll(ctx, client.ID, &msg)
		}

	case domain.MsgTypeEndPoll:
		var msg domain.EndPollMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.EndPoll(ctx, client.ID, &msg)
		}

	case domain.MsgTypeUpdateSquad:
		var msg domain.UpdateSquadMessage
		if err = json.Unmarshal(message, &msg); err == nil {
			err = h.coord.UpdateSquad(ctx, client.ID, &msg)
		}

	case domain.MsgTypePing:
		h.hub.Send(client.ID, &domain.BaseMessage{Type: domain.MsgTypePong})

	default:
		err = errors.New("unknown message type")
	}

	if err != nil {
		l.Debug().Err(err).Str(pkglog.FieldEventType, base.Type).Msg("event dropped")
	}
}

func (h *WSHandler) handleAuth(ctx context.Context, client *hub.Client, token string) error {
	claims, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.hub.Send(client.ID, &domain.AuthResultMessage{
			Type:    domain.MsgTypeAuthResult,
			Success: false,
			Message: "invalid token",
		})
		return err
	}

	if err := h.coord.Authenticate(ctx, client.ID, claims.Username); err != nil {
		return err
	}
	client.Identity = claims.Username

	h.hub.Send(client.ID, &domain.AuthResultMessage{
		Type:     domain.MsgTypeAuthResult,
		Success:  true,
		Username: claims.Username,
	})
	return nil
}

// verifyHost resolves the host claim of an authenticated joiner. Rejections
// are audited only for connections that present themselves as the host.
func (h *WSHandler) verifyHost(ctx context.Context, client *hub.Client, msg *domain.JoinMessage) bool {
	if client.Identity == "" {
		return false
	}
	if h.owners.IsChannelOwner(ctx, msg.StreamID, client.Identity) {
		return true
	}
	if client.Identity == msg.StreamID || msg.Username == msg.StreamID {
		audit.Log(ctx, audit.ActionHostRejected, client.Identity, msg.StreamID, "host claim rejected")
	}
	return false
}

// RegisterRoutes registers the WebSocket route.
func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleWebSocket)
}
