package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to RabbitMQ.  It dials per publish; todo creation
// is low volume and a broken connection never outlives one request.
type Publisher struct {
	URL    string
	Logger *log.Logger
}

func NewPublisher(url string, logger *log.Logger) *Publisher {
	return &Publisher{URL: url, Logger: logger}
}

// PublishTodoCreated publishes a persistent message to the todo.created
// queue.  Errors are logged and returned; callers may ignore them.
func (p *Publisher) PublishTodoCreated(ctx context.Context, ev TodoCreatedEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return p.fail("marshal event", err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return p.fail("dial", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return p.fail("channel open", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(TodoCreatedQueue, true, false, false, false, nil); err != nil {
		return p.fail("queue declare", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", TodoCreatedQueue, false, false, pub); err != nil {
		return p.fail("publish", err)
	}
	return nil
}

func (p *Publisher) fail(op string, err error) error {
	if p.Logger != nil {
		p.Logger.Warn("rabbitmq publish failed", "op", op, "err", err)
	}
	return fmt.Errorf("rabbitmq: %s: %w", op, err)
}
