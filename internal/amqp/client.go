package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"spendwise/internal/core"
	"spendwise/internal/log"
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

// Sink receives views invalidated by other instances.
type Sink interface {
	Invalidate(ctx context.Context, views ...core.View) error
}

// Client publishes and consumes view invalidations on a fanout
// exchange. Each instance consumes through its own exclusive queue.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	instanceID   string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time
}

// NewClient dials the broker and declares the exchange. instanceID
// marks this process's own messages so the consumer can skip them.
func NewClient(url, exchangeName, instanceID string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    exchangeName + "." + instanceID,
		instanceID:   instanceID,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if _, err := c.ensureChannel(); err != nil {
		return nil, err
	}
	return c, nil
}

// InstanceID identifies this process on the exchange.
func (c *Client) InstanceID() string { return c.instanceID }

func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	if c.conn == nil || c.conn.IsClosed() {
		conn, err := amqp091.Dial(c.url)
		if err != nil {
			return nil, fmt.Errorf("dial AMQP: %w", err)
		}
		c.conn = conn
	}

	channel, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"fanout",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	c.channel = channel
	return channel, nil
}

func (c *Client) dropChannel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

// Invalidate broadcasts the views to every other instance.
func (c *Client) Invalidate(ctx context.Context, views ...core.View) error {
	if len(views) == 0 {
		return nil
	}
	if c.isCircuitOpen() {
		return errors.New("publish invalidation: circuit breaker is open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := NewInvalidationMessage(c.instanceID, views).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
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
		"",             // routing key, ignored by fanout
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Transient,
			Timestamp:    time.Now(),
			AppId:        c.instanceID,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.dropChannel()
		}
		return fmt.Errorf("publish invalidation: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published invalidation",
		log.FieldOperation, log.OpInvalidate,
		"views", len(views),
		"exchange", c.exchangeName)
	return nil
}

// Consume applies views broadcast by other instances to sink until ctx
// is cancelled, reconnecting with exponential backoff when the broker
// goes away.
func (c *Client) Consume(ctx context.Context, sink Sink) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, sink, func() { attempt = 0 })
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping invalidation consumer", "reason", ctx.Err())
			return ctx.Err()
		}
		c.dropChannel()

		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Invalidation consumer interrupted, reconnecting",
			log.FieldError, err,
			"connection_error", isConnectionError(err),
			"retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, sink Sink, connected func()) error {
	channel, err := c.ensureChannel()
	if err != nil {
		return err
	}

	q, err := channel.QueueDeclare(
		c.queueName, // name
		false,       // durable
		true,        // delete when unused
		true,        // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := channel.QueueBind(q.Name, "", c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	msgs, err := channel.Consume(
		q.Name, // queue
		"",     // consumer
		false,  // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	c.logger.InfoContext(ctx, "Started consuming invalidations", "queue", q.Name)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handle(ctx, sink, delivery)
		}
	}
}

func (c *Client) handle(ctx context.Context, sink Sink, delivery amqp091.Delivery) {
	msg, err := InvalidationMessageFromJSON(delivery.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode invalidation", log.FieldError, err)
		delivery.Nack(false, false)
		return
	}
	if msg.Origin == c.instanceID {
		delivery.Ack(false)
		return
	}

	// Requeueing on an exclusive queue would spin on the same message.
	if err := sink.Invalidate(ctx, msg.Views...); err != nil {
		c.logger.ErrorContext(ctx, "Failed to apply invalidation",
			log.FieldError, err,
			"origin", msg.Origin)
		delivery.Nack(false, false)
		return
	}
	delivery.Ack(false)
	c.logger.DebugContext(ctx, "Applied remote invalidation",
		"origin", msg.Origin,
		"views", len(msg.Views))
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()

	// A failed probe in half-open reopens immediately.
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures ||
		atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
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
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
