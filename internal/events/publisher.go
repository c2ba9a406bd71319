package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/custload/internal/core"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "customer.uploads"

// UploadCommitted is the message body sent after an upload commits.
type UploadCommitted struct {
	UploadID         string    `json:"upload_id"`
	FileName         string    `json:"file_name"`
	Format           string    `json:"format"`
	Customers        int       `json:"customers"`
	AddressesCreated int       `json:"addresses_created"`
	AddressesReused  int       `json:"addresses_reused"`
	CommittedAt      time.Time `json:"committed_at"`
}

// NewUploadCommitted builds the message for a committed upload.
func NewUploadCommitted(res core.UploadResult, at time.Time) UploadCommitted {
	return UploadCommitted{
		UploadID:         res.UploadID,
		FileName:         res.FileName,
		Format:           string(res.Stats.Format),
		Customers:        res.Stats.Customers,
		AddressesCreated: res.Stats.AddressesCreated,
		AddressesReused:  res.Stats.AddressesReused,
		CommittedAt:      at.UTC(),
	}
}

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends upload events to a durable queue.
// It implements core.UploadNotifier.
type Publisher struct {
	channel   func() (channel, error)
	queueName string
	now       func() time.Time
}

// NewPublisher declares queueName on conn and returns a publisher for it.
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	return newPublisher(func() (channel, error) { return conn.Channel() }, queueName)
}

func newPublisher(ch func() (channel, error), queueName string) (*Publisher, error) {
	if queueName == "" {
		queueName = DefaultQueue
	}

	c, err := ch()
	if err != nil {
		return nil, fmt.Errorf("get channel: %w", err)
	}

	_, err = c.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	return &Publisher{channel: ch, queueName: queueName, now: time.Now}, nil
}

// UploadCommitted publishes a notification for a committed upload.
func (p *Publisher) UploadCommitted(ctx context.Context, res core.UploadResult) error {
	body, err := json.Marshal(NewUploadCommitted(res, p.now()))
	if err != nil {
		return fmt.Errorf("marshal upload event: %w", err)
	}

	c, err := p.channel()
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}

	err = c.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    res.UploadID,
			Type:         "upload.committed",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish upload event: %w", err)
	}
	return nil
}
