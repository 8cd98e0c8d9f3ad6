// Package notify alerts rangers about new sightings over email and SMS.
// Every channel is best-effort: failures are logged and swallowed so a
// report never fails to persist because a notification did.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/models"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
)

// Channel delivers one kind of ranger alert.
type Channel interface {
	Name() string
	Send(ctx context.Context, r *models.Report) error
}

// Fanout sends a new-report alert down every configured channel.
type Fanout struct {
	channels []Channel
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
}

// NewFanout builds a notifier over the given channels.
func NewFanout(logger *zap.Logger, metrics observability.MetricsRegistry, channels ...Channel) *Fanout {
	return &Fanout{channels: channels, logger: logger, metrics: metrics}
}

// ReportCreated fans the alert out. Errors never propagate.
func (f *Fanout) ReportCreated(ctx context.Context, r *models.Report) {
	for _, ch := range f.channels {
		if err := ch.Send(ctx, r); err != nil {
			f.metrics.IncrementNotifications(ch.Name(), "error")
			f.logger.Error("send notification",
				zap.String("channel", ch.Name()),
				zap.String("report_id", r.ID),
				zap.Error(err))
			continue
		}
		f.metrics.IncrementNotifications(ch.Name(), "sent")
	}
}
