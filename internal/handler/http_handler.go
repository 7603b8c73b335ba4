package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/coordinator"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/domain"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/service"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/middleware"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/response"
)

// TipRequest is the body of POST /tip.
type TipRequest struct {
	StreamID string `json:"streamId" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}

// TipResponse carries post-commit balances of every account involved.
type TipResponse struct {
	Balances map[string]int64 `json:"balances"`
}

// Handler handles HTTP requests.
type Handler struct {
	tipService     service.TipService
	coord          *coordinator.Coordinator
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(tipService service.TipService, coord *coordinator.Coordinator, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		tipService:     tipService,
		coord:          coord,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.POST("/tip", h.authMiddleware.RequireAuth(), h.Tip)

	api := r.Group("/api/v1")
	{
		api.GET("/sessions/:streamId", h.GetSession)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// Tip handles a tip from the authenticated user.
func (h *Handler) Tip(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid tip request")
		response.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.tipService.Tip(ctx, middleware.GetUsername(c), req.StreamID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			response.BadRequest(c, err.Error())
		case errors.Is(err, domain.ErrUnauthorized):
			response.Unauthorized(c, "not allowed to tip")
		case errors.Is(err, domain.ErrInsufficientFunds):
			response.PaymentRequired(c, "insufficient funds")
		case errors.Is(err, domain.ErrNotFound):
			response.NotFound(c, "account not found")
		case errors.Is(err, domain.ErrConflict):
			response.Conflict(c, err.Error())
		default:
			l.Error().Err(err).Str(log.FieldStreamID, req.StreamID).Msg("tip failed")
			response.InternalError(c, "failed to process tip")
		}
		return
	}

	response.Success(c, TipResponse{Balances: receipt.Balances})
}

// GetSession returns a read-only summary of a live session.
func (h *Handler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	streamID := c.Param("streamId")

	summary, ok, err := h.coord.Summary(ctx, streamID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str(log.FieldStreamID, streamID).Msg("session summary failed")
		response.InternalError(c, "failed to read session")
		return
	}
	if !ok {
		response.NotFound(c, "session not found")
		return
	}
	response.Success(c, summary)
}
