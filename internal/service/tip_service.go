package service

import (
	"context"
	"fmt"

	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/audit"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/kafka"
	"github.com/vaultkeeperirl-design/Beacon-sub000/internal/ledger"
	"github.com/vaultkeeperirl-design/Beacon-sub000/pkg/log"
)

type tipService struct {
	ledger   *ledger.Ledger
	notifier TipNotifier
	events   kafka.EventProducer
}

// NewTipService creates a tip service. events may be nil.
func NewTipService(l *ledger.Ledger, notifier TipNotifier, events kafka.EventProducer) TipService {
	return &tipService{ledger: l, notifier: notifier, events: events}
}

// Tip commits the transfer first; notices are best effort afterwards.
func (s *tipService) Tip(ctx context.Context, tipper, streamID string, amount int64) (*ledger.Receipt, error) {
	l := log.Ctx(ctx)

	receipt, err := s.ledger.Distribute(ctx, streamID, amount, tipper)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionTipFailed, tipper, streamID, err.Error(), "tip rejected")
		return nil, err
	}
	audit.LogWithDetail(ctx, audit.ActionTipSent, tipper, streamID, fmt.Sprintf("amount=%d shares=%d", amount, len(receipt.Credits)), "tip distributed")

	if err := s.notifier.NotifyTip(ctx, receipt); err != nil {
		l.Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to notify tip")
	}
	if s.events != nil {
		if err := s.events.ProduceTipDistributed(ctx, streamID, tipper, amount, receipt.Credits); err != nil {
			l.Warn().Err(err).Str(log.FieldStreamID, streamID).Msg("failed to produce tip_distributed")
		}
	}
	return receipt, nil
}
