package worker

import (
	"context"
	"fmt"
	"time"

	"incassi/internal/amqp"
	"incassi/internal/log"
	"incassi/internal/sheets"

	"github.com/avast/retry-go"
)

// Options tunes how hard the worker tries before giving a message back
// to the broker.
type Options struct {
	Attempts uint
	Delay    time.Duration
	// Retryable filters errors worth repeating. Nil retries everything.
	Retryable func(error) bool
}

// SyncWorker applies receipt events to a mirror.
type SyncWorker struct {
	mirror sheets.ReceiptMirror
	opts   Options
	logger *log.Logger
}

func NewSyncWorker(mirror sheets.ReceiptMirror, opts Options, logger *log.Logger) *SyncWorker {
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	return &SyncWorker{
		mirror: mirror,
		opts:   opts,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an amqp.Handler. Events that can never be applied are
// logged and acknowledged; an error means the mirror kept failing and the
// delivery should be retried later.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.ReceiptEvent) error {
	w.logger.InfoContext(ctx, "Processing receipt event",
		log.FieldEvent, ev.Type,
		log.FieldReceiptID, ev.ReceiptID)

	switch ev.Type {
	case amqp.ReceiptCreated:
		return w.syncCreated(ctx, ev)
	case amqp.ReceiptDeleted:
		return w.syncDeleted(ctx, ev)
	default:
		w.logger.WarnContext(ctx, "Ignoring unknown event type", log.FieldEvent, ev.Type)
		return nil
	}
}

func (w *SyncWorker) syncCreated(ctx context.Context, ev *amqp.ReceiptEvent) error {
	r, err := ev.Receipt()
	if err == nil {
		err = r.Validate()
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Dropping unusable receipt event",
			log.FieldReceiptID, ev.ReceiptID,
			log.FieldError, err)
		return nil
	}

	var ref string
	err = w.do(ctx, ev, func() error {
		var err error
		ref, err = w.mirror.Append(ctx, r)
		return err
	})
	if err != nil {
		return fmt.Errorf("append receipt %s: %w", r.ID, err)
	}

	w.logger.InfoContext(ctx, "Receipt mirrored", log.NewFields().
		WithOperation(log.OpSync).
		WithReceipt(r.ID, r.Date.ISO(), r.Amount.Cents, string(r.PaymentType)).
		ToSlice()...)
	w.logger.DebugContext(ctx, "Mirror row", "row_ref", ref)
	return nil
}

func (w *SyncWorker) syncDeleted(ctx context.Context, ev *amqp.ReceiptEvent) error {
	err := w.do(ctx, ev, func() error {
		return w.mirror.Delete(ctx, ev.ReceiptID)
	})
	if err != nil {
		return fmt.Errorf("delete receipt %s: %w", ev.ReceiptID, err)
	}
	w.logger.InfoContext(ctx, "Receipt removed from mirror",
		log.FieldOperation, log.OpSync,
		log.FieldReceiptID, ev.ReceiptID)
	return nil
}

func (w *SyncWorker) do(ctx context.Context, ev *amqp.ReceiptEvent, fn func() error) error {
	return retry.Do(
		fn,
		retry.RetryIf(func(err error) bool {
			if w.opts.Retryable == nil {
				return true
			}
			return w.opts.Retryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			w.logger.WarnContext(ctx, "Mirror call failed, retrying",
				log.FieldEvent, ev.Type,
				log.FieldReceiptID, ev.ReceiptID,
				log.FieldAttempt, n+1,
				log.FieldError, err)
		}),
		retry.Attempts(w.opts.Attempts),
		retry.Delay(w.opts.Delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}
