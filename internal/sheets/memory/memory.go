package memory

import (
	"context"
	"fmt"
	"sync"

	"incassi/internal/core"
	ports "incassi/internal/sheets"
)

// Mirror keeps mirrored receipts in process memory. The worker uses it
// when no spreadsheet is configured.
type Mirror struct {
	mu    sync.Mutex
	rows  []core.Receipt
	calls int
}

var _ ports.ReceiptMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{}
}

// Append stores the receipt and returns a synthetic row reference.
func (m *Mirror) Append(_ context.Context, r core.Receipt) (string, error) {
	if r.ID == "" {
		return "", fmt.Errorf("receipt without id")
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i, existing := range m.rows {
		if existing.ID == r.ID {
			m.rows[i] = r
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	m.rows = append(m.rows, r)
	return fmt.Sprintf("mem:%d", len(m.rows)), nil
}

// Delete drops the receipt if present.
func (m *Mirror) Delete(_ context.Context, receiptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for i, r := range m.rows {
		if r.ID == receiptID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored receipts in insertion order.
func (m *Mirror) Rows() []core.Receipt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Receipt(nil), m.rows...)
}

// Calls counts Append and Delete invocations.
func (m *Mirror) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
