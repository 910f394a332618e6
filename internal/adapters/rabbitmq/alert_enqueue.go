package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Bonaventura-EW/olx-monitor/internal/constants"
	"github.com/Bonaventura-EW/olx-monitor/internal/contextkeys"
	"github.com/Bonaventura-EW/olx-monitor/internal/contracts"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/domain"
	"github.com/Bonaventura-EW/olx-monitor/internal/core/port"
	"github.com/Bonaventura-EW/olx-monitor/pkg/rabbitmq/rabbitmq_producer"
)

// AlertQueueAdapter publishes anomaly alerts into the monitor exchange.
// Every message is validated against its schema before it leaves the
// process; an alert that fails its own contract is a bug, not traffic.
type AlertQueueAdapter struct {
	producer *rabbitmq_producer.Publisher
}

// NewAlertQueueAdapter creates a new instance.
func NewAlertQueueAdapter(producer *rabbitmq_producer.Publisher) (*AlertQueueAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &AlertQueueAdapter{producer: producer}, nil
}

// PublishZeroRatioAlert publishes one zero-ratio alert.
func (a *AlertQueueAdapter) PublishZeroRatioAlert(ctx context.Context, alert domain.ZeroRatioAlert) error {
	return a.publish(ctx, constants.EventZeroRatioAlert, constants.RoutingKeyZeroRatioAlerts, toZeroRatioAlertDTO(alert))
}

// PublishPriceChange publishes one price-change event.
func (a *AlertQueueAdapter) PublishPriceChange(ctx context.Context, event domain.PriceChangeEvent) error {
	return a.publish(ctx, constants.EventPriceChange, constants.RoutingKeyPriceChanges, toPriceChangeEventDTO(event))
}

func (a *AlertQueueAdapter) publish(ctx context.Context, eventType, routingKey string, dto interface{}) error {
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "AlertQueueAdapter",
		"routing_key": routingKey,
		"event_type":  eventType,
	})

	body, err := json.Marshal(dto)
	if err != nil {
		adapterLogger.Error("Failed to marshal alert to JSON", err, nil)
		return fmt.Errorf("failed to marshal %s to JSON: %w", eventType, err)
	}

	if err := contracts.ValidateEvent(eventType, constants.EventVersion, body); err != nil {
		adapterLogger.Error("Alert does not match its schema", err, nil)
		return fmt.Errorf("%s failed contract validation: %w", eventType, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			"event-type":    eventType,
			"event-version": constants.EventVersion,
		},
	}

	traceID := contextkeys.TraceIDFromContext(ctx)
	if traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish alert", err, nil)
		return err
	}

	adapterLogger.Info("Alert published", nil)
	return nil
}

// NoopAlertPublisher satisfies AlertPublisherPort when the queue is disabled.
// Alerts still reach the run report and the logs; only the transport is off.
type NoopAlertPublisher struct{}

func (NoopAlertPublisher) PublishZeroRatioAlert(ctx context.Context, alert domain.ZeroRatioAlert) error {
	return nil
}

func (NoopAlertPublisher) PublishPriceChange(ctx context.Context, event domain.PriceChangeEvent) error {
	return nil
}
