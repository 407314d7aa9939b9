package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"incassi/internal/core"
)

// EventType names what happened to a receipt.
type EventType string

const (
	ReceiptCreated EventType = "receipt.created"
	ReceiptDeleted EventType = "receipt.deleted"
)

// ReceiptEvent carries enough of the receipt for the worker to mirror it
// without reading the database.
type ReceiptEvent struct {
	Type        EventType `json:"type"`
	ReceiptID   string    `json:"receipt_id"`
	OwnerID     string    `json:"owner_id"`
	Day         string    `json:"day,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	PaymentType string    `json:"payment_type,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewCreatedEvent builds the event published after a receipt is stored.
func NewCreatedEvent(r core.Receipt) *ReceiptEvent {
	return &ReceiptEvent{
		Type:        ReceiptCreated,
		ReceiptID:   r.ID,
		OwnerID:     r.OwnerID,
		Day:         r.Date.ISO(),
		AmountCents: r.Amount.Cents,
		PaymentType: string(r.PaymentType),
		Timestamp:   time.Now(),
	}
}

// NewDeletedEvent builds the event published after a receipt is removed.
func NewDeletedEvent(ownerID, receiptID string) *ReceiptEvent {
	return &ReceiptEvent{
		Type:      ReceiptDeleted,
		ReceiptID: receiptID,
		OwnerID:   ownerID,
		Timestamp: time.Now(),
	}
}

// Receipt converts a created event back to the domain type.
func (e *ReceiptEvent) Receipt() (core.Receipt, error) {
	day, err := core.ParseDate(e.Day)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("event %s: %w", e.ReceiptID, err)
	}
	return core.Receipt{
		ID:          e.ReceiptID,
		OwnerID:     e.OwnerID,
		Date:        day,
		Amount:      core.Money{Cents: e.AmountCents},
		PaymentType: core.PaymentType(e.PaymentType),
	}, nil
}

func (e *ReceiptEvent) Validate() error {
	if e.ReceiptID == "" {
		return fmt.Errorf("missing receipt id")
	}
	switch e.Type {
	case ReceiptCreated, ReceiptDeleted:
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}

func (e *ReceiptEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ReceiptEventFromJSON(data []byte) (*ReceiptEvent, error) {
	var ev ReceiptEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	return &ev, nil
}
