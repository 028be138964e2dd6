package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	publishTimeout = 5 * time.Second
)

var errConnectionClosed = errors.New("amqp: connection closed")

// Handler receives decoded messages from the queue.
// Returning an error requeues the delivery.
type Handler interface {
	HandleModification(ctx context.Context, msg *ModificationMessage) error
	HandleExpense(ctx context.Context, msg *ExpenseMessage) error
}

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.connectLocked(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key equals the queue name on the direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel reconnects when the broker dropped the connection.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c.channel, nil
}

// PublishModification publishes a recurring.modified message
func (c *Client) PublishModification(ctx context.Context, recurringID, effectiveDate, amountCents int64) error {
	body, err := NewModificationMessage(recurringID, effectiveDate, amountCents).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeRecurringModified, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published recurring modification message",
		"recurring_id", recurringID,
		"effective_date", effectiveDate,
		"exchange", c.exchangeName)
	return nil
}

// PublishExpenseCreated publishes an expense.created message
func (c *Client) PublishExpenseCreated(ctx context.Context, expenseID, date, amountCents int64) error {
	body, err := NewExpenseMessage(expenseID, date, amountCents).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := c.publish(ctx, TypeExpenseCreated, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published expense created message",
		"expense_id", expenseID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: circuit breaker is open", msgType)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	channel, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Type:         msgType,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()
	return nil
}

// Consume dispatches deliveries to handler until ctx ends or the channel closes.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	return c.consume(ctx, handler, func() {})
}

// consume calls started once the broker accepted the consumer.
func (c *Client) consume(ctx context.Context, handler Handler, started func()) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	started()
	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errConnectionClosed
			}
			c.dispatch(ctx, handler, delivery)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, handler Handler, delivery amqp091.Delivery) {
	logger := slog.With("message_id", delivery.MessageId, "type", delivery.Type)

	var handleErr error
	switch delivery.Type {
	case TypeRecurringModified:
		msg, err := ModificationMessageFromJSON(delivery.Body)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
			delivery.Nack(false, false)
			return
		}
		handleErr = handler.HandleModification(ctx, msg)
	case TypeExpenseCreated:
		msg, err := ExpenseMessageFromJSON(delivery.Body)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
			delivery.Nack(false, false)
			return
		}
		handleErr = handler.HandleExpense(ctx, msg)
	default:
		logger.WarnContext(ctx, "Dropping message of unknown type")
		delivery.Nack(false, false)
		return
	}

	if handleErr != nil {
		logger.ErrorContext(ctx, "Failed to handle message", "error", handleErr)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
	logger.InfoContext(ctx, "Successfully processed message")
}

// ConsumeWithRetry keeps consuming across broker disconnects, backing off between attempts.
// The backoff restarts from one second after every session that got as far as consuming.
func (c *Client) ConsumeWithRetry(ctx context.Context, handler Handler) error {
	session := func(ctx context.Context, started func()) error {
		return c.consume(ctx, handler, started)
	}
	return retryConsume(ctx, session, sleepContext)
}

func retryConsume(ctx context.Context, session func(context.Context, func()) error, sleep func(context.Context, time.Duration) error) error {
	attempt := 0
	for {
		started := false
		err := session(ctx, func() { started = true })
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		if started {
			attempt = 0
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "AMQP connection lost, retrying", "error", err, "attempt", attempt+1, "backoff", wait)
		if err := sleep(ctx, wait); err != nil {
			return err
		}
		attempt++
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, errConnectionClosed) || errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "closed network connection", "dial AMQP"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
