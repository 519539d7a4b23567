package services

import (
	"context"

	"github.com/danishnav/team-catalog/internal/metrics"
	"github.com/danishnav/team-catalog/internal/models"
	"go.uber.org/zap"
)

// Bootstrap points every uninitialized cursor at the newest audit entry so a
// first deployment never replays history.
type Bootstrap struct {
	audits AuditLog
	states CursorStore
	log    *zap.Logger
}

func NewBootstrap(audits AuditLog, states CursorStore, log *zap.Logger) *Bootstrap {
	return &Bootstrap{audits: audits, states: states, log: log}
}

func (b *Bootstrap) Run(ctx context.Context) error {
	latest, err := b.audits.Latest(ctx)
	if err != nil {
		return err
	}
	if latest == nil {
		b.log.Info("audit log empty, cursors stay unset")
		return nil
	}

	for _, cadence := range models.AllCadences {
		state, err := b.states.Get(ctx, cadence)
		if err != nil {
			return err
		}
		if state.LastAuditNotified != nil {
			continue
		}
		if err := b.states.Advance(ctx, cadence, latest.ID); err != nil {
			return err
		}
		metrics.CursorPosition.WithLabelValues(cadence).Set(float64(latest.ID))
		b.log.Info("cursor initialized", zap.String("cadence", cadence), zap.Int64("audit_id", latest.ID))
	}
	return nil
}
