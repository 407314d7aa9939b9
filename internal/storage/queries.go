package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Receipt is a receipts row as stored.
type Receipt struct {
	ID          string
	OwnerID     string
	Day         string
	AmountCents int64
	PaymentType string
	CreatedAt   time.Time
}

// User is a users row as stored.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

const createReceipt = `
INSERT INTO receipts (id, owner_id, day, amount_cents, payment_type, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, owner_id, day, amount_cents, payment_type, created_at
`

type CreateReceiptParams struct {
	ID          string
	OwnerID     string
	Day         string
	AmountCents int64
	PaymentType string
	CreatedAt   time.Time
}

func (q *Queries) CreateReceipt(ctx context.Context, arg CreateReceiptParams) (Receipt, error) {
	row := q.db.QueryRowContext(ctx, createReceipt,
		arg.ID, arg.OwnerID, arg.Day, arg.AmountCents, arg.PaymentType, arg.CreatedAt)
	var r Receipt
	err := row.Scan(&r.ID, &r.OwnerID, &r.Day, &r.AmountCents, &r.PaymentType, &r.CreatedAt)
	return r, err
}

const listReceiptsByOwner = `
SELECT id, owner_id, day, amount_cents, payment_type, created_at
FROM receipts
WHERE owner_id = ?
ORDER BY day DESC, created_at DESC
`

func (q *Queries) ListReceiptsByOwner(ctx context.Context, ownerID string) ([]Receipt, error) {
	rows, err := q.db.QueryContext(ctx, listReceiptsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Day, &r.AmountCents, &r.PaymentType, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const getReceipt = `
SELECT id, owner_id, day, amount_cents, payment_type, created_at
FROM receipts
WHERE owner_id = ? AND id = ?
`

func (q *Queries) GetReceipt(ctx context.Context, ownerID, id string) (Receipt, error) {
	row := q.db.QueryRowContext(ctx, getReceipt, ownerID, id)
	var r Receipt
	err := row.Scan(&r.ID, &r.OwnerID, &r.Day, &r.AmountCents, &r.PaymentType, &r.CreatedAt)
	return r, err
}

const deleteReceipt = `
DELETE FROM receipts WHERE owner_id = ? AND id = ?
`

func (q *Queries) DeleteReceipt(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteReceipt, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createUser = `
INSERT INTO users (id, email, password_hash, created_at)
VALUES (?, ?, ?, ?)
RETURNING id, email, password_hash, created_at
`

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.ID, arg.Email, arg.PasswordHash, arg.CreatedAt)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByEmail = `
SELECT id, email, password_hash, created_at FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

const getUserByID = `
SELECT id, email, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}
