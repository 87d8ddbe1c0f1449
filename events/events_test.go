package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (c *recordingChannel) PublishWithContext(
	_ context.Context, _, key string, _, _ bool, msg amqp.Publishing,
) error {
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *recordingChannel) Close() error {
	c.closed = true
	return nil
}

func TestRabbitPublisherPublish(t *testing.T) {
	ch := &recordingChannel{}
	p := &RabbitPublisher{
		ch:         ch,
		exchange:   "certledger",
		routingKey: TypeCertificateIssued,
	}
	err := p.Publish(
		context.Background(), Event{
			Type: TypeCertificateIssued,
			Data: CertificateIssued{
				CertificateID: "c1",
				LedgerAddress: "addr",
			},
		},
	)
	require.NoError(t, err)
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, TypeCertificateIssued, msg.Type)
	assert.Equal(t, TypeCertificateIssued, ch.keys[0])

	var decoded struct {
		Type string            `json:"type"`
		Data CertificateIssued `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "c1", decoded.Data.CertificateID)
	assert.Equal(t, "addr", decoded.Data.LedgerAddress)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitPublisherError(t *testing.T) {
	p := &RabbitPublisher{ch: &recordingChannel{err: errors.New("channel closed")}}
	err := p.Publish(context.Background(), Event{Type: TypeCertificateIssued})
	assert.Error(t, err)

	// must not panic or return anything
	PublishBestEffort(context.Background(), p, Event{Type: TypeCertificateIssued})
	PublishBestEffort(context.Background(), nil, Event{})
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
