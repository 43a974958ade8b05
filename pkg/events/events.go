package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lawlink/lawlink-api/pkg/logger"
	"github.com/nats-io/nats.go"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus stands in when no broker is configured. Publishing is a
// silent success so the booking flow never depends on NATS being up.
type NoopEventBus struct{}

func NewNoopEventBus() *NoopEventBus { return &NoopEventBus{} }

func (n *NoopEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	logger.DebugContext(ctx, "event bus disabled, dropping event", "subject", subject)
	return nil
}

func (n *NoopEventBus) Subscribe(subject string, handler func(msg *Message)) error { return nil }

func (n *NoopEventBus) Close() error { return nil }

// Subjects
const (
	ConsultationCreated       = "consultation.created"
	ConsultationStatusChanged = "consultation.status_changed"
	UserRegistered            = "user.registered"
)

type ConsultationCreatedEvent struct {
	ConsultationID int64     `json:"consultation_id"`
	FirmID         int64     `json:"firm_id"`
	FirmName       string    `json:"firm_name"`
	ServiceID      int64     `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	ContactName    string    `json:"contact_name"`
	ContactEmail   string    `json:"contact_email"`
	PreferredAt    time.Time `json:"preferred_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConsultationStatusChangedEvent struct {
	ConsultationID int64     `json:"consultation_id"`
	Status         string    `json:"status"`
	ChangedBy      int64     `json:"changed_by"`
	ChangedAt      time.Time `json:"changed_at"`
}

type UserRegisteredEvent struct {
	UserID   int64     `json:"user_id"`
	Provider string    `json:"provider"`
	Role     string    `json:"role"`
	At       time.Time `json:"at"`
}
