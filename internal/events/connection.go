// Package events publishes upload notifications to RabbitMQ.
package events

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is a RabbitMQ connection that redials when its channel is lost.
type Connection struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	url     string
	mu      sync.Mutex
}

// NewConnection dials url and opens a channel.
func NewConnection(url string) (*Connection, error) {
	if url == "" {
		return nil, errors.New("amqp url cannot be empty")
	}

	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}

	slog.Info("connected to amqp broker")
	return c, nil
}

// Channel returns the open channel, reconnecting first if it was closed.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.conn == nil || !usable(c.conn, c.channel) {
		slog.Warn("amqp channel closed, reconnecting")
		c.closeLocked()
		if err := c.connect(); err != nil {
			return nil, fmt.Errorf("reconnect: %w", err)
		}
	}

	return c.channel, nil
}

// closable is the liveness check shared by amqp connections and channels.
type closable interface {
	IsClosed() bool
}

// usable reports whether both the connection and its channel are still open.
// A channel can be closed by the broker while the connection stays up.
func usable(conn, channel closable) bool {
	return !conn.IsClosed() && !channel.IsClosed()
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open amqp channel: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// closeLocked releases the channel and connection. Errors are ignored since
// the handles are already unusable.
func (c *Connection) closeLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close closes the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		c.channel = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
		c.conn = nil
	}

	return errors.Join(errs...)
}
