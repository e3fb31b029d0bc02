package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/unionhall/pit-reservations/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
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
	ID        string
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

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// NoopEventBus is used when no NATS_URL is configured.
type NoopEventBus struct{}

func (NoopEventBus) Publish(context.Context, string, interface{}) error       { return nil }
func (NoopEventBus) Subscribe(string, func(msg *Message)) error               { return nil }
func (NoopEventBus) QueueSubscribe(string, string, func(msg *Message)) error  { return nil }
func (NoopEventBus) Close() error                                             { return nil }

// Event subjects
const (
	ReservationCreated  = "reservation.created"
	ReservationCanceled = "reservation.canceled"

	FeeIssued   = "fee.issued"
	FeePaid     = "fee.paid"
	FeeExpired  = "fee.expired"
	FeeCanceled = "fee.canceled"
)

// Event payloads
type ReservationCreatedEvent struct {
	ReservationID int64     `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	HolderName    string    `json:"holder_name"`
	Date          string    `json:"date"`
	Start         string    `json:"start"`
	End           string    `json:"end"`
	Guests        int       `json:"guests"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationCanceledEvent struct {
	ReservationID int64     `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	Reason        string    `json:"reason"`
	CanceledAt    time.Time `json:"canceled_at"`
}

type FeeIssuedEvent struct {
	FeeID         int64     `json:"fee_id"`
	ReservationID int64     `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	AmountCents   int64     `json:"amount_cents"`
	PaymentCode   string    `json:"payment_code"`
	DueDate       string    `json:"due_date"`
	IssuedAt      time.Time `json:"issued_at"`
}

type FeePaidEvent struct {
	FeeID       int64     `json:"fee_id"`
	MemberID    string    `json:"member_id"`
	AmountCents int64     `json:"amount_cents"`
	PaidAt      time.Time `json:"paid_at"`
}

type FeeExpiredEvent struct {
	FeeID         int64     `json:"fee_id"`
	ReservationID int64     `json:"reservation_id"`
	MemberID      string    `json:"member_id"`
	ExpiredAt     time.Time `json:"expired_at"`
}

type FeeCanceledEvent struct {
	FeeID      int64     `json:"fee_id"`
	Reason     string    `json:"reason"`
	CanceledAt time.Time `json:"canceled_at"`
}
