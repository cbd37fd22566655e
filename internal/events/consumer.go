package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/dinehub/assignment-api/internal/assignment"
	"github.com/dinehub/assignment-api/internal/enum"
)

const (
	exchangeName = "order_events"
	queueName    = "assignment.order_events"

	routingPaymentCompleted = "order.payment_completed"
	routingOrderCompleted   = "order.completed"
	routingOrderCancelled   = "order.cancelled"

	maxDialRetries = 10
	dialRetryDelay = 2 * time.Second
	prefetchCount  = 8
)

// Dial connects to the broker, retrying while it boots alongside us.
func Dial(url string, log zerolog.Logger) (*amqp.Connection, error) {
	var lastErr error
	for attempt := 1; attempt <= maxDialRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("rabbitmq not ready, retrying")
		time.Sleep(dialRetryDelay)
	}
	return nil, fmt.Errorf("dial rabbitmq after %d attempts: %w", maxDialRetries, lastErr)
}

// Dispatcher is the slice of the assignment engine the consumer drives.
type Dispatcher interface {
	AutomaticAssign(ctx context.Context, orderID assignment.OrderID, branchID assignment.BranchID, hotelID assignment.HotelID, opts assignment.AssignOptions) (*assignment.Outcome, error)
	ReleaseOnTerminal(ctx context.Context, orderID assignment.OrderID, terminalStatus string) error
}

// Consumer bridges the ordering system's broker events into the assignment
// engine: a completed payment triggers dispatch, a finished lifecycle frees
// the waiter's slot.
type Consumer struct {
	conn   *amqp.Connection
	engine Dispatcher
	log    zerolog.Logger
}

func NewConsumer(conn *amqp.Connection, engine Dispatcher, log zerolog.Logger) *Consumer {
	return &Consumer{conn: conn, engine: engine, log: log}
}

// paymentCompletedMessage is published by the payment service once a charge
// settles.
type paymentCompletedMessage struct {
	OrderID  string `json:"orderId"`
	BranchID string `json:"branchId"`
	HotelID  string `json:"hotelId"`
	Method   string `json:"assignmentMethod,omitempty"`
	Priority string `json:"priority,omitempty"`
}

// lifecycleMessage is published when an order reaches a terminal status.
type lifecycleMessage struct {
	OrderID string `json:"orderId"`
}

// Run declares the topology and consumes until ctx is cancelled or the
// channel dies.
func (c *Consumer) Run(ctx context.Context) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareTopology(ch); err != nil {
		return err
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "assignment-api", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	c.log.Info().Str("queue", queueName).Msg("order event consumer started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return fmt.Errorf("channel closed: %w", amqpErr)
			}
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			c.handle(ctx, d)
		}
	}
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range []string{routingPaymentCompleted, routingOrderCompleted, routingOrderCancelled} {
		if err := ch.QueueBind(queueName, key, exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var err error
	switch d.RoutingKey {
	case routingPaymentCompleted:
		err = c.handlePaymentCompleted(ctx, d.Body)
	case routingOrderCompleted:
		err = c.handleLifecycle(ctx, d.Body, enum.OrderStatusCompleted)
	case routingOrderCancelled:
		err = c.handleLifecycle(ctx, d.Body, enum.OrderStatusCancelled)
	default:
		c.log.Warn().Str("routing_key", d.RoutingKey).Msg("unexpected routing key, dropping")
		_ = d.Ack(false)
		return
	}

	if err == nil {
		_ = d.Ack(false)
		return
	}

	// Bad or stale messages never become processable; requeueing them would
	// loop forever. Only infrastructure failures are worth a retry.
	if permanent(err) {
		c.log.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("dropping unprocessable event")
		_ = d.Nack(false, false)
		return
	}
	c.log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("event handling failed, requeueing")
	_ = d.Nack(false, true)
}

func (c *Consumer) handlePaymentCompleted(ctx context.Context, body []byte) error {
	var msg paymentCompletedMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode payment message: %w: %w", errMalformed, err)
	}

	orderID, err := assignment.ParseOrderID(msg.OrderID)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	branchID, err := assignment.ParseBranchID(msg.BranchID)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	hotelID, err := assignment.ParseHotelID(msg.HotelID)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}

	outcome, err := c.engine.AutomaticAssign(ctx, orderID, branchID, hotelID, assignment.AssignOptions{
		Method:   msg.Method,
		Priority: msg.Priority,
		Reason:   "payment completed",
	})
	if err != nil {
		// Redelivered events land here once the order is already handled.
		if errors.Is(err, assignment.ErrAlreadyAssigned) || errors.Is(err, assignment.ErrOrderTerminal) {
			c.log.Debug().Str("order_id", msg.OrderID).Msg("order already handled, ignoring redelivery")
			return nil
		}
		return err
	}

	evt := c.log.Info().Str("order_id", msg.OrderID).Bool("assigned", outcome.Assigned)
	if outcome.Assigned {
		evt.Str("waiter_id", outcome.Waiter.ID.String())
	} else {
		evt.Int("queue_position", outcome.QueuePosition)
	}
	evt.Msg("paid order dispatched")
	return nil
}

func (c *Consumer) handleLifecycle(ctx context.Context, body []byte, terminalStatus string) error {
	var msg lifecycleMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("decode lifecycle message: %w: %w", errMalformed, err)
	}
	orderID, err := assignment.ParseOrderID(msg.OrderID)
	if err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}

	if err := c.engine.ReleaseOnTerminal(ctx, orderID, terminalStatus); err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			c.log.Warn().Str("order_id", msg.OrderID).Msg("lifecycle event for unknown order")
			return nil
		}
		return err
	}
	c.log.Info().Str("order_id", msg.OrderID).Str("status", terminalStatus).Msg("order released")
	return nil
}

var errMalformed = errors.New("malformed event")

// permanent reports whether retrying the event can never succeed.
func permanent(err error) bool {
	return errors.Is(err, errMalformed) ||
		errors.Is(err, assignment.ErrNotFound) ||
		errors.Is(err, assignment.ErrInvalidHierarchy) ||
		errors.Is(err, assignment.ErrOrderNotPaid) ||
		errors.Is(err, assignment.ErrInvalidMethod) ||
		errors.Is(err, assignment.ErrInvalidPriority)
}
