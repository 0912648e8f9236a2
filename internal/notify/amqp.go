package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	pushExchange       = "notifications"
	pushRoutingKey     = "push"
	receiptQueue       = "push.receipts"
	statusUnregistered = "unregistered"
	statusInvalid      = "invalid"
)

// pushMessage is what the out-of-process delivery worker consumes, one per
// device token.
type pushMessage struct {
	Token        string       `json:"token"`
	Notification Notification `json:"notification"`
}

// deliveryReceipt is the worker's report back. Tokens the push provider
// rejects as dead are pruned from the registry.
type deliveryReceipt struct {
	Token  string `json:"token"`
	Status string `json:"status"` // delivered, unregistered, invalid, failed
	Detail string `json:"detail,omitempty"`
}

// AMQPPusher publishes push payloads to the notifications exchange.
type AMQPPusher struct {
	ch *amqp091.Channel
}

func NewAMQPPusher(conn *amqp091.Connection) (*AMQPPusher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(pushExchange, "direct", true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", pushExchange, err)
	}

	return &AMQPPusher{ch: ch}, nil
}

func (p *AMQPPusher) Push(ctx context.Context, token string, n Notification) error {
	body, err := json.Marshal(pushMessage{Token: token, Notification: n})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, pushExchange, pushRoutingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish push message: %w", err)
	}

	return nil
}

func (p *AMQPPusher) Close() error {
	return p.ch.Close()
}

// ReceiptConsumer reads delivery receipts from the worker and asks the gateway
// to prune tokens reported dead.
type ReceiptConsumer struct {
	ch      *amqp091.Channel
	gateway *Gateway
	log     *zap.Logger
}

func NewReceiptConsumer(conn *amqp091.Connection, gateway *Gateway, log *zap.Logger) (*ReceiptConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(receiptQueue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", receiptQueue, err)
	}

	return &ReceiptConsumer{ch: ch, gateway: gateway, log: log}, nil
}

// Run consumes receipts until the context is cancelled or the channel closes.
func (c *ReceiptConsumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(receiptQueue, "", true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", receiptQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("receipt channel closed")
			}
			c.handle(ctx, d.Body)
		}
	}
}

func (c *ReceiptConsumer) handle(ctx context.Context, body []byte) {
	var receipt deliveryReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		c.log.Error("decode delivery receipt", zap.Error(err))
		return
	}

	switch receipt.Status {
	case statusUnregistered, statusInvalid:
		c.gateway.PruneToken(ctx, receipt.Token)
	default:
		c.log.Debug("delivery receipt",
			zap.String("status", receipt.Status),
			zap.String("detail", receipt.Detail))
	}
}

func (c *ReceiptConsumer) Close() error {
	return c.ch.Close()
}
