package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sghealthtrack/healthtrack-api/pkg/metrics"
)

// Publisher sends change events on a best-effort basis. Failures are logged
// and counted, never returned to the caller.
type Publisher struct {
	broker  Broker
	channel string
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewPublisher(broker Broker, channel string, m *metrics.Metrics, logger zerolog.Logger) *Publisher {
	if channel == "" {
		channel = ChannelChanges
	}
	return &Publisher{
		broker:  broker,
		channel: channel,
		metrics: m,
		logger:  logger,
	}
}

func (p *Publisher) PublishChange(ctx context.Context, evt ChangeEvent) {
	if p == nil || p.broker == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	status := "ok"
	if err := p.broker.Publish(ctx, p.channel, evt); err != nil {
		status = "error"
		p.logger.Warn().Err(err).
			Str("table", evt.Table).
			Str("action", evt.Action).
			Msg("failed to publish change event")
	}
	if p.metrics != nil {
		p.metrics.BrokerPublishes.WithLabelValues(status).Inc()
	}
}

// Channel returns the channel events are published on.
func (p *Publisher) Channel() string {
	return p.channel
}

// Subscribe proxies to the underlying broker on the publisher's channel.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan []byte, error) {
	return p.broker.Subscribe(ctx, p.channel)
}
