package events

import (
	"context"

	"go.uber.org/zap"
)

// Counter is satisfied by the metrics service.
type Counter interface {
	RecordDomainEvent(eventType string)
}

// RunAudit logs and counts every event until ctx is cancelled or the bus closes.
func RunAudit(ctx context.Context, bus *Bus, counter Counter, logger *zap.Logger) error {
	stream, err := bus.Subscribe(ctx)
	if err != nil {
		return err
	}
	go func() {
		for event := range stream {
			logger.Info("domain event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("user_id", event.UserID))
			if counter != nil {
				counter.RecordDomainEvent(string(event.Type))
			}
		}
	}()
	return nil
}
