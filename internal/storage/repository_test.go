package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"incassi/internal/core"
	"incassi/internal/log"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	logger := log.New(log.Config{Output: io.Discard})
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "incassi.db"), logger)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, email string) User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func TestRepository_InsertAndFetchAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	stored, err := repo.Insert(ctx, core.Receipt{
		OwnerID:     alice.ID,
		Date:        core.NewDate(2024, 6, 15),
		Amount:      core.Money{Cents: 1250},
		PaymentType: core.Card,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if stored.ID == "" {
		t.Fatalf("expected store-assigned id")
	}
	if stored.Date.ISO() != "2024-06-15" || stored.Amount.Cents != 1250 || stored.PaymentType != core.Card {
		t.Fatalf("unexpected stored receipt: %+v", stored)
	}

	if _, err := repo.Insert(ctx, core.Receipt{OwnerID: bob.ID, Date: core.NewDate(2024, 6, 14), Amount: core.Money{Cents: 1}, PaymentType: core.Cash}); err != nil {
		t.Fatalf("Insert bob: %v", err)
	}

	got, err := repo.FetchAll(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != stored.ID {
		t.Fatalf("FetchAll returned %+v, want only alice's receipt", got)
	}
}

func TestRepository_DeleteIsOwnerScoped(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")
	bob := newTestUser(t, repo, "bob@example.com")

	rec, err := repo.Insert(ctx, core.Receipt{OwnerID: alice.ID, Date: core.NewDate(2024, 1, 1), Amount: core.Money{Cents: 100}, PaymentType: core.Cash})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := repo.Delete(ctx, bob.ID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: got %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(ctx, alice.ID, rec.ID); err != nil {
		t.Fatalf("receipt should survive a foreign delete: %v", err)
	}

	if err := repo.Delete(ctx, alice.ID, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, alice.ID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: got %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, alice.ID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestRepository_TolerateMalformedRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO receipts (id, owner_id, day, amount_cents, payment_type) VALUES
		 ('legacy', ?, '2024-03-01', 700, 'bonifico'),
		 ('broken', ?, 'not-a-day', 100, 'cash')`, alice.ID, alice.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := repo.FetchAll(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(got) != 1 || got[0].ID != "legacy" {
		t.Fatalf("FetchAll = %+v, want only the legacy row", got)
	}
	if got[0].PaymentType.Known() {
		t.Fatalf("legacy payment type should be unknown")
	}
}

func TestRepository_NormalizesStoredLabels(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := newTestUser(t, repo, "alice@example.com")

	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO receipts (id, owner_id, day, amount_cents, payment_type) VALUES
		 ('r1', ?, '2024-03-01', 100, 'contanti'),
		 ('r2', ?, '2024-03-02', 200, 'POS'),
		 ('r3', ?, '2024-03-03', 300, 'APP'),
		 ('r4', ?, '2024-03-04', 400, 'bonifico')`, alice.ID, alice.ID, alice.ID, alice.ID)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	got, err := repo.FetchAll(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	want := map[string]core.PaymentType{
		"r1": core.Cash,
		"r2": core.Card,
		"r3": core.App,
		"r4": core.PaymentType("bonifico"),
	}
	if len(got) != len(want) {
		t.Fatalf("FetchAll returned %d rows, want %d", len(got), len(want))
	}
	for _, r := range got {
		if r.PaymentType != want[r.ID] {
			t.Errorf("%s: payment type %q, want %q", r.ID, r.PaymentType, want[r.ID])
		}
	}
}

func TestRepository_Users(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u := newTestUser(t, repo, "Alice@Example.com")
	if _, err := repo.CreateUser(ctx, "alice@example.com", "other"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate email: got %v, want ErrDuplicate", err)
	}

	byEmail, err := repo.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail id = %s, want %s", byEmail.ID, u.ID)
	}
	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUserByID missing: got %v, want ErrNotFound", err)
	}
	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
