package worker

import (
	"context"
	"encoding/json"

	"storefront/internal/broker"
	"storefront/internal/models"
	"storefront/internal/redisclient"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatsInvalidator consumes order lifecycle events and drops the cached
// sales rollup so the next stats request recomputes it
type StatsInvalidator struct {
	consumer *broker.Consumer
	cache    *redisclient.Client
	logger   *zap.Logger
}

// NewStatsInvalidator creates a new stats invalidation worker
func NewStatsInvalidator(consumer *broker.Consumer, cache *redisclient.Client) *StatsInvalidator {
	return &StatsInvalidator{
		consumer: consumer,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// Start consumes until the context is cancelled
func (w *StatsInvalidator) Start(ctx context.Context) error {
	w.logger.Info("Starting stats invalidation worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop closes the underlying consumer
func (w *StatsInvalidator) Stop() error {
	w.logger.Info("Stopping stats invalidation worker")
	return w.consumer.Close()
}

func (w *StatsInvalidator) handleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.BaseEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("Skipping undecodable event", zap.Error(err))
		return nil
	}

	switch event.EventType {
	case models.EventTypeOrderCreated,
		models.EventTypeOrderStatusChanged,
		models.EventTypeOrderDeleted:
		if err := w.cache.Delete(ctx, redisclient.SalesStatsKey); err != nil {
			return err
		}
		w.logger.Debug("Sales rollup cache invalidated",
			zap.String("event_type", event.EventType),
			zap.String("event_id", event.EventID))
	default:
		w.logger.Debug("Ignoring event", zap.String("event_type", event.EventType))
	}
	return nil
}
