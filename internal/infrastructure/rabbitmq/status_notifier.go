// Package rabbitmq publishes order-status transitions to the host
// platform's event exchange. Publishing is fire-and-forget: the
// dispatcher logs a failure and moves on.
package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	domain "github.com/openstudio/payflow/internal/domain/order"
	"github.com/openstudio/payflow/internal/observability"
)

const routingKeyStatusChanged = "order.status_changed"

type StatusNotifier struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      observability.Logger
}

func NewStatusNotifier(url, exchange string, logger observability.Logger) (*StatusNotifier, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &StatusNotifier{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		log:      logger.With(observability.F("component", "status_notifier")),
	}, nil
}

type statusChangedEvent struct {
	OrderID    string `json:"order_id"`
	OrderRef   string `json:"order_ref"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
	OccurredAt string `json:"occurred_at"`
}

func (n *StatusNotifier) NotifyStatus(ctx context.Context, o *domain.Order, status domain.Status) error {
	body, err := json.Marshal(statusChangedEvent{
		OrderID:    o.ID,
		OrderRef:   o.Ref,
		CustomerID: o.CustomerID,
		Status:     string(status),
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	err = n.ch.PublishWithContext(ctx, n.exchange, routingKeyStatusChanged, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		n.log.Warn("publish_failed",
			observability.F("order_id", o.ID),
			observability.F("error", err.Error()),
		)
		return err
	}
	n.log.Info("status_published",
		observability.F("order_id", o.ID),
		observability.F("status", string(status)),
	)
	return nil
}

func (n *StatusNotifier) Close() {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		_ = n.conn.Close()
	}
}
