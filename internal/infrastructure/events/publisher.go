package events

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/contracts"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/messaging"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// Broker is the publishing half of the message bus.
type Broker interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// EventPublisher sends domain events to the broker. Publishing stops for a
// while after repeated failures so a broker outage does not slow requests.
type EventPublisher struct {
	broker  Broker
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

func NewEventPublisher(broker Broker, logger *zap.Logger) *EventPublisher {
	p := &EventPublisher{broker: broker, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "rabbitmq-publisher",
		MaxRequests: 1,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return p
}

func (p *EventPublisher) PublishSessionCreated(ctx context.Context, session *domain.Session) error {
	return p.publish(ctx, contracts.EventSessionCreated, session.CreatedBy, messaging.NewSessionEventData(session))
}

func (p *EventPublisher) PublishSessionDeleted(ctx context.Context, session *domain.Session) error {
	return p.publish(ctx, contracts.EventSessionDeleted, session.CreatedBy, messaging.NewSessionEventData(session))
}

func (p *EventPublisher) PublishChatReport(ctx context.Context, report *domain.ChatReport) error {
	return p.publish(ctx, contracts.EventChatAutomodded, report.UserID, messaging.ReportEventData{Report: *report})
}

func (p *EventPublisher) publish(ctx context.Context, routingKey, ownerID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", routingKey, err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.broker.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
			OwnerID: ownerID,
			Data:    data,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// State reports the breaker state for health checks.
func (p *EventPublisher) State() string {
	return p.breaker.State().String()
}
