package nats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/docbot/docbot/internal/model"
	"github.com/docbot/docbot/pkg/logger"
)

// Publisher publishes job events without ever failing the caller.
type Publisher struct {
	streams *StreamManager
	log     *logger.Logger
	timeout time.Duration
}

// NewPublisher creates a best-effort publisher over a stream manager.
func NewPublisher(streams *StreamManager, log *logger.Logger) *Publisher {
	return &Publisher{streams: streams, log: log, timeout: 3 * time.Second}
}

// PublishJob publishes event. Failures are logged and dropped.
func (p *Publisher) PublishJob(ctx context.Context, event *model.JobEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	seq, err := p.streams.PublishJob(ctx, event)
	if err != nil {
		p.log.Warn("Failed to publish job event",
			zap.Error(err),
			zap.String("job_id", event.ID),
			zap.String("kind", string(event.Kind)),
		)
		return
	}

	p.log.Debug("Job event published", zap.String("job_id", event.ID), zap.Uint64("sequence", seq))
}
