// Package messaging provides messaging infrastructure for the trainee
// notification orchestrator.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hee-tis/trainee-notifications/internal/trainee/domain"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
)

const (
	// BroadcastExchange is the topic exchange every lifecycle event is
	// published to; routing key is the event type tag.
	BroadcastExchange = "trainee.notifications.broadcast"

	fifoSuffixMarker = ".fifo"
)

// RabbitMQConfig holds the broadcast publisher's connection configuration.
type RabbitMQConfig struct {
	URL               string
	TopicARN          string
	EventAttribute    string
	Exchange          string
	ExchangeType      string
	Durable           bool
	AutoDelete        bool
	DeliveryMode      uint8
	ContentType       string
	ReconnectDelay    time.Duration
	MaxReconnectTries int
}

// DefaultRabbitMQConfig returns sensible defaults, overridden by the
// orchestrator's Trainee config section.
func DefaultRabbitMQConfig() RabbitMQConfig {
	return RabbitMQConfig{
		Exchange:          BroadcastExchange,
		ExchangeType:      "topic",
		Durable:           true,
		AutoDelete:        false,
		DeliveryMode:      amqp.Persistent,
		ContentType:       "application/json",
		ReconnectDelay:    5 * time.Second,
		MaxReconnectTries: 10,
	}
}

// referencePayload mirrors the outbound broadcast's tisReference shape.
type referencePayload struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// recipientPayload mirrors the outbound broadcast's recipient shape.
type recipientPayload struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Contact string `json:"contact"`
}

// templatePayload mirrors the outbound broadcast's template shape.
type templatePayload struct {
	Name      string                 `json:"name"`
	Version   string                 `json:"version"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// broadcastEvent is the JSON wire shape of the outbound broadcast topic.
type broadcastEvent struct {
	ID           string            `json:"id"`
	TisReference *referencePayload `json:"tisReference,omitempty"`
	Type         string            `json:"type,omitempty"`
	Recipient    *recipientPayload `json:"recipient,omitempty"`
	Template     *templatePayload  `json:"template,omitempty"`
	SentAt       *time.Time        `json:"sentAt,omitempty"`
	ReadAt       *time.Time        `json:"readAt,omitempty"`
	Status       string            `json:"status"`
	StatusDetail string            `json:"statusDetail,omitempty"`
	LastRetry    *time.Time        `json:"lastRetry,omitempty"`
}

// RabbitMQPublisher implements ports.BroadcastPublisher using RabbitMQ,
// grounded on the CRM's customer-events publisher: a persistent topic
// exchange, a NotifyClose-driven reconnect loop, and a PublishWithContext
// call per message. Per spec.md §4.2, transport failures are logged and
// swallowed rather than surfaced to the caller, since a broadcast is a
// best-effort side channel and must never block or fail the write it
// describes.
type RabbitMQPublisher struct {
	config      RabbitMQConfig
	log         *logger.Logger
	conn        *amqp.Connection
	channel     *amqp.Channel
	mu          sync.RWMutex
	closed      bool
	notifyClose chan *amqp.Error
}

// NewRabbitMQPublisher creates a new RabbitMQPublisher and connects.
func NewRabbitMQPublisher(config RabbitMQConfig, log *logger.Logger) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{config: config, log: log}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := amqp.Dial(p.config.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		p.config.Exchange,
		p.config.ExchangeType,
		p.config.Durable,
		p.config.AutoDelete,
		false,
		false,
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare broadcast exchange: %w", err)
	}

	p.conn = conn
	p.channel = ch
	p.notifyClose = make(chan *amqp.Error, 1)
	p.channel.NotifyClose(p.notifyClose)

	go p.handleReconnect()

	return nil
}

func (p *RabbitMQPublisher) handleReconnect() {
	err, ok := <-p.notifyClose
	if !ok || err == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return
	}

	for i := 0; i < p.config.MaxReconnectTries; i++ {
		time.Sleep(p.config.ReconnectDelay)
		if connErr := p.connect(); connErr == nil {
			return
		}
	}
	if p.log != nil {
		p.log.Error().Msg("broadcast publisher exhausted reconnect attempts")
	}
}

// PublishChanged publishes the current state of h as a lifecycle event.
func (p *RabbitMQPublisher) PublishChanged(ctx context.Context, h *domain.History) error {
	evt := broadcastEvent{
		ID:   h.ID.String(),
		Type: string(h.Type),
		TisReference: &referencePayload{
			Type: string(h.Reference.Kind),
			ID:   h.Reference.ID,
		},
		Recipient: &recipientPayload{
			ID:      h.Recipient.TraineeID,
			Type:    string(h.Recipient.MessageKind),
			Contact: h.Recipient.Contact,
		},
		Template: &templatePayload{
			Name:      h.Template.Name,
			Version:   h.Template.Version,
			Variables: h.Template.Variables,
		},
		SentAt:       h.SentAt,
		ReadAt:       h.ReadAt,
		Status:       string(h.Status),
		StatusDetail: h.FailureReason,
	}
	return p.publish(ctx, h.ID.String(), evt)
}

// PublishDeleted publishes a deletion broadcast: every field is nil except
// id, status and sentAt (set to the publish time), per spec.md §6.
func (p *RabbitMQPublisher) PublishDeleted(ctx context.Context, historyID string) error {
	now := time.Now().UTC()
	evt := broadcastEvent{
		ID:     historyID,
		Status: "DELETED",
		SentAt: &now,
	}
	return p.publish(ctx, historyID, evt)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, historyID string, evt broadcastEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || p.channel == nil {
		p.logSwallowed(historyID, fmt.Errorf("broadcast publisher is not connected"))
		return nil
	}

	body, err := json.Marshal(evt)
	if err != nil {
		p.logSwallowed(historyID, err)
		return nil
	}

	headers := amqp.Table{}
	if p.config.EventAttribute != "" {
		headers["event_type"] = p.config.EventAttribute
	}
	if strings.HasSuffix(p.config.TopicARN, fifoSuffixMarker) {
		headers["x-message-group-id"] = "notification_event_" + historyID
	}

	msg := amqp.Publishing{
		DeliveryMode: p.config.DeliveryMode,
		ContentType:  p.config.ContentType,
		Body:         body,
		Timestamp:    time.Now().UTC(),
		MessageId:    historyID,
		Headers:      headers,
	}

	routingKey := strings.ToLower(evt.Status)
	if err := p.channel.PublishWithContext(ctx, p.config.Exchange, routingKey, false, false, msg); err != nil {
		p.logSwallowed(historyID, err)
	}
	return nil
}

func (p *RabbitMQPublisher) logSwallowed(historyID string, err error) {
	if p.log == nil {
		return
	}
	p.log.Error().Str("history_id", historyID).Err(err).Msg("broadcast publish failed, swallowing per best-effort contract")
}

// Close closes the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// IsConnected reports whether the publisher currently holds a live
// connection.
func (p *RabbitMQPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.conn != nil && !p.conn.IsClosed()
}
