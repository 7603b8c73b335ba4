package audit

import (
	"context"

	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

// Audit actions.
const (
	ActionHostVerified = "host.verified"
	ActionHostRejected = "host.rejected"
	ActionHostTakeover = "host.takeover"
	ActionSquadUpdated = "squad.updated"
	ActionTipSent      = "tip.sent"
	ActionTipFailed    = "tip.failed"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, username string, streamID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Str(log.FieldStreamID, streamID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, username string, streamID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Str(log.FieldStreamID, streamID).
		Str(FieldDetail, detail).
		Msg(msg)
}
