package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"incassi/internal/amqp"
	"incassi/internal/cache"
	"incassi/internal/core"
	"incassi/internal/log"
	"incassi/internal/storage"
)

//go:generate mockgen -source=ledger_service.go -destination=ledger_mock.go -package=services

// RecordStore persists receipts. Every call is scoped to one owner.
type RecordStore interface {
	FetchAll(ctx context.Context, ownerID string) ([]core.Receipt, error)
	Insert(ctx context.Context, r core.Receipt) (core.Receipt, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// EventPublisher announces stored changes to the sync worker.
type EventPublisher interface {
	PublishReceiptEvent(ctx context.Context, ev *amqp.ReceiptEvent) error
}

// ValidationError wraps input problems the user can fix.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err came from rejected user input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Criteria is the ledger view selection as read from the request.
type Criteria struct {
	Period core.Period
	From   core.Date
	To     core.Date
	Type   core.TypeFilter
	Sort   core.SortSpec
}

// DefaultCriteria matches the first page load: today, all types, newest first.
func DefaultCriteria() Criteria {
	return Criteria{Period: core.PeriodToday, Type: core.AllTypes, Sort: core.DefaultSort}
}

// LedgerView is the processed ledger plus the filter that produced it.
type LedgerView struct {
	core.Result
	Criteria Criteria
	Filter   core.DateFilter
}

// NewReceipt is the raw entry form input.
type NewReceipt struct {
	Date        string
	Amount      string
	PaymentType string
}

// LedgerService reads, records and deletes receipts for one owner at a time.
// The owner's record set is cached and dropped after every write.
type LedgerService struct {
	store     RecordStore
	publisher EventPublisher
	records   cache.Cache[[]core.Receipt]
	logger    *log.Logger

	// generations counts writes per owner; a read started before a write
	// must not repopulate the cache after it.
	mu          sync.Mutex
	generations map[string]uint64
}

// NewLedgerService wires the service. publisher and records may be nil.
func NewLedgerService(store RecordStore, publisher EventPublisher, records cache.Cache[[]core.Receipt], logger *log.Logger) *LedgerService {
	return &LedgerService{
		store:       store,
		publisher:   publisher,
		records:     records,
		logger:      logger.WithComponent(log.ComponentLedger),
		generations: make(map[string]uint64),
	}
}

// Records returns all receipts of ownerID. The slice must not be modified.
func (s *LedgerService) Records(ctx context.Context, ownerID string) ([]core.Receipt, error) {
	if s.records == nil {
		rs, err := s.store.FetchAll(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("fetch receipts: %w", err)
		}
		return rs, nil
	}

	if rs, ok := s.records.Get(ownerID); ok {
		return rs, nil
	}
	gen := s.generation(ownerID)
	rs, err := s.store.FetchAll(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("fetch receipts: %w", err)
	}

	s.mu.Lock()
	if s.generations[ownerID] == gen {
		s.records.Set(ownerID, rs)
	}
	s.mu.Unlock()
	return rs, nil
}

func (s *LedgerService) generation(ownerID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[ownerID]
}

// View resolves the period against now and runs the ledger engine.
func (s *LedgerService) View(ctx context.Context, ownerID string, c Criteria, now time.Time) (LedgerView, error) {
	rs, err := s.Records(ctx, ownerID)
	if err != nil {
		return LedgerView{}, err
	}
	df := core.ResolvePeriod(c.Period, c.From, c.To, now)
	return LedgerView{
		Result:   core.Process(rs, df, c.Type, c.Sort),
		Criteria: c,
		Filter:   df,
	}, nil
}

// Create validates the form input and stores a receipt for ownerID.
// Input errors are returned as *ValidationError and never reach the store.
func (s *LedgerService) Create(ctx context.Context, ownerID string, in NewReceipt) (core.Receipt, error) {
	rec, err := parseNewReceipt(ownerID, in)
	if err != nil {
		s.logger.WarnContext(ctx, "Rejected receipt input",
			log.NewFields().WithOwner(ownerID).WithError(err).WithOperation(log.OpValidate).ToSlice()...)
		return core.Receipt{}, err
	}

	stored, err := s.store.Insert(ctx, rec)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}
	s.invalidate(ownerID)

	s.publish(ctx, amqp.NewCreatedEvent(stored))
	return stored, nil
}

// Delete removes one receipt of ownerID. On error nothing is changed.
func (s *LedgerService) Delete(ctx context.Context, ownerID, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Err: errors.New("missing receipt id")}
	}
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// the cached set still shows it
			s.invalidate(ownerID)
		}
		return fmt.Errorf("delete receipt: %w", err)
	}
	s.invalidate(ownerID)

	s.publish(ctx, amqp.NewDeletedEvent(ownerID, id))
	return nil
}

func (s *LedgerService) invalidate(ownerID string) {
	if s.records == nil {
		return
	}
	s.mu.Lock()
	s.generations[ownerID]++
	s.records.Delete(ownerID)
	s.mu.Unlock()
}

// publish is best effort: the receipt is already stored.
func (s *LedgerService) publish(ctx context.Context, ev *amqp.ReceiptEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReceiptEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish receipt event",
			log.FieldEvent, ev.Type,
			log.FieldReceiptID, ev.ReceiptID,
			log.FieldError, err)
	}
}

func parseNewReceipt(ownerID string, in NewReceipt) (core.Receipt, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Receipt{}, &ValidationError{Field: "date", Err: err}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Receipt{}, &ValidationError{Field: "amount", Err: err}
	}
	pt, err := core.ParsePaymentType(in.PaymentType)
	if err != nil {
		return core.Receipt{}, &ValidationError{Field: "payment_type", Err: err}
	}
	rec := core.Receipt{OwnerID: ownerID, Date: date, Amount: amount, PaymentType: pt}
	if err := rec.Validate(); err != nil {
		return core.Receipt{}, &ValidationError{Field: "receipt", Err: err}
	}
	return rec, nil
}
