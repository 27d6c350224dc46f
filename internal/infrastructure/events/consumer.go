package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/contracts"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/messaging"
	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ReportConsumer files automod reports published on the bus.
type ReportConsumer struct {
	rabbitmq *messaging.RabbitMQ
	reports  ReportFiler
	logger   *zap.Logger
}

func NewReportConsumer(rabbitmq *messaging.RabbitMQ, reports ReportFiler, logger *zap.Logger) *ReportConsumer {
	return &ReportConsumer{rabbitmq: rabbitmq, reports: reports, logger: logger}
}

func (c *ReportConsumer) Serve(ctx context.Context) error {
	err := c.rabbitmq.ConsumeMessages(ctx, messaging.ReportsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		return c.handle(ctx, msg.Body)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *ReportConsumer) handle(ctx context.Context, body []byte) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	var payload messaging.ReportEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal report: %w", err)
	}

	if err := c.reports.File(ctx, &payload.Report); err != nil {
		return err
	}

	c.logger.Debug("Chat report received", zap.String("messageID", payload.Report.MessageID))
	return nil
}
