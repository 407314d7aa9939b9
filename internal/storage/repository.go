package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"incassi/internal/core"
	"incassi/internal/log"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// dsn enables foreign keys and a busy timeout on every pooled connection.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn(dbPath)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FetchAll returns every receipt owned by ownerID. Rows whose day cannot be
// parsed are skipped and logged.
func (r *SQLiteRepository) FetchAll(ctx context.Context, ownerID string) ([]core.Receipt, error) {
	rows, err := r.queries.ListReceiptsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}

	out := make([]core.Receipt, 0, len(rows))
	for _, row := range rows {
		rec, err := toCore(row)
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping malformed receipt row",
				log.FieldReceiptID, row.ID,
				log.FieldOwnerID, ownerID,
				log.FieldError, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Insert stores rec under a fresh ID and returns the stored record.
func (r *SQLiteRepository) Insert(ctx context.Context, rec core.Receipt) (core.Receipt, error) {
	row, err := r.queries.CreateReceipt(ctx, CreateReceiptParams{
		ID:          uuid.NewString(),
		OwnerID:     rec.OwnerID,
		Day:         rec.Date.ISO(),
		AmountCents: rec.Amount.Cents,
		PaymentType: string(rec.PaymentType),
		CreatedAt:   r.now().UTC(),
	})
	if err != nil {
		return core.Receipt{}, fmt.Errorf("create receipt: %w", err)
	}

	r.logger.InfoContext(ctx, "Receipt saved to SQLite", log.NewFields().
		WithOwner(row.OwnerID).
		WithReceipt(row.ID, row.Day, row.AmountCents, row.PaymentType).
		ToSlice()...)

	return toCore(row)
}

// Get returns one receipt of ownerID.
func (r *SQLiteRepository) Get(ctx context.Context, ownerID, id string) (core.Receipt, error) {
	row, err := r.queries.GetReceipt(ctx, ownerID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return toCore(row)
}

// Delete removes one receipt of ownerID. Receipts of other owners are
// reported as not found.
func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteReceipt(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	r.logger.InfoContext(ctx, "Receipt deleted", log.FieldOwnerID, ownerID, log.FieldReceiptID, id)
	return nil
}

// CreateUser stores a new account. Emails are unique regardless of case.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	u, err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    r.now().UTC(),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	u, err := r.queries.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func toCore(row Receipt) (core.Receipt, error) {
	day, err := core.ParseDate(row.Day)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("receipt %s: day %q: %w", row.ID, row.Day, err)
	}
	// unknown types stay raw and are counted as uncategorized
	pt := core.PaymentType(row.PaymentType)
	if known, err := core.ParsePaymentType(row.PaymentType); err == nil {
		pt = known
	}
	return core.Receipt{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Date:        day,
		Amount:      core.Money{Cents: row.AmountCents},
		PaymentType: pt,
		CreatedAt:   row.CreatedAt,
	}, nil
}
