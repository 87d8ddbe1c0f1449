package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// TypeCertificateIssued is the type of the event published after a
// certificate was persisted
const TypeCertificateIssued = "certificate.issued"

// CertificateIssued is the payload of a certificate.issued event
type CertificateIssued struct {
	CertificateID  string `json:"certificateId"`
	InstitutionID  string `json:"institutionId"`
	LedgerAddress  string `json:"ledgerAddress"`
	ProofReference string `json:"proofReference"`
	IssuedAt       int64  `json:"issuedAt"`
}

// Event is the envelope of all published events
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher publishes domain events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop is a Publisher that drops all events
type Nop struct{}

// Publish implements the Publisher interface
func (Nop) Publish(context.Context, Event) error { return nil }

// Close implements the Publisher interface
func (Nop) Close() error { return nil }

// RabbitConfig holds the configuration of the RabbitMQ publisher
type RabbitConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
}

type channel interface {
	PublishWithContext(
		ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
	) error
	Close() error
}

// RabbitPublisher publishes events as persistent JSON messages to a
// RabbitMQ exchange
type RabbitPublisher struct {
	conn       *amqp.Connection
	ch         channel
	exchange   string
	routingKey string
	mu         sync.Mutex
}

// NewRabbitPublisher connects to RabbitMQ and declares the configured
// direct exchange
func NewRabbitPublisher(conf RabbitConfig) (*RabbitPublisher, error) {
	if conf.Exchange == "" {
		conf.Exchange = "certledger"
	}
	if conf.RoutingKey == "" {
		conf.RoutingKey = TypeCertificateIssued
	}
	conn, err := amqp.Dial(conf.URL)
	if err != nil {
		return nil, errors.Wrap(err, "events: could not connect to rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "events: could not open channel")
	}
	if err = ch.ExchangeDeclare(conf.Exchange, "direct", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "events: could not declare exchange %s", conf.Exchange)
	}
	return &RabbitPublisher{
		conn:       conn,
		ch:         ch,
		exchange:   conf.Exchange,
		routingKey: conf.RoutingKey,
	}, nil
}

// Publish implements the Publisher interface
func (p *RabbitPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}
	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(
		ctx, p.exchange, p.routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type,
			Body:         body,
			Timestamp:    event.OccurredAt,
			DeliveryMode: amqp.Persistent,
		},
	)
	return errors.Wrapf(err, "events: could not publish %s", event.Type)
}

// Close implements the Publisher interface
func (p *RabbitPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		log.WithError(err).Debug("events: closing channel failed")
	}
	if p.conn == nil {
		return nil
	}
	return errors.WithStack(p.conn.Close())
}

// PublishBestEffort publishes event and only logs failures
func PublishBestEffort(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		log.WithError(err).WithField("type", event.Type).Warn("failed to publish event")
	}
}
