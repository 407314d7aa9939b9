package sheets

import (
	"context"

	"incassi/internal/core"
)

// ReceiptMirror keeps a copy of the ledger outside the database.
// Implementations must treat a Delete of an unknown receipt as done.
type ReceiptMirror interface {
	// Append adds one row for r and returns a reference to it.
	Append(ctx context.Context, r core.Receipt) (rowRef string, err error)
	Delete(ctx context.Context, receiptID string) error
}
