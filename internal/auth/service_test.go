package auth

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"incassi/internal/log"
	"incassi/internal/storage"
)

type fakeUsers struct {
	byEmail map[string]storage.User
	err     error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]storage.User{}}
}

func (f *fakeUsers) CreateUser(_ context.Context, email, hash string) (storage.User, error) {
	if f.err != nil {
		return storage.User{}, f.err
	}
	if _, ok := f.byEmail[email]; ok {
		return storage.User{}, storage.ErrDuplicate
	}
	u := storage.User{ID: "id-" + email, Email: email, PasswordHash: hash, CreatedAt: time.Now()}
	f.byEmail[email] = u
	return u, nil
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (storage.User, error) {
	if f.err != nil {
		return storage.User{}, f.err
	}
	u, ok := f.byEmail[email]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return u, nil
}

func newTestService(users UserStore) *Service {
	return NewService(users, log.New(log.Config{Output: io.Discard}))
}

func TestService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeUsers())

	u, err := svc.Register(ctx, "  Driver@Example.com ", "segreto1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "driver@example.com" {
		t.Fatalf("email should be normalized, got %q", u.Email)
	}

	if _, err := svc.Register(ctx, "driver@example.com", "another1"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate register: got %v, want ErrUserExists", err)
	}

	got, err := svc.Login(ctx, "DRIVER@example.com", "segreto1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("Login id = %q, want %q", got.ID, u.ID)
	}
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeUsers())
	if _, err := svc.Register(ctx, "driver@example.com", "segreto1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct{ email, password string }{
		{"driver@example.com", "wrong-password"},
		{"nobody@example.com", "segreto1"},
		{"not-an-email", "segreto1"},
	}
	for _, c := range cases {
		if _, err := svc.Login(ctx, c.email, c.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q): got %v, want ErrInvalidCredentials", c.email, err)
		}
	}
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newTestService(newFakeUsers())
	if _, err := svc.Register(context.Background(), "bad email", "segreto1"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("got %v, want ErrInvalidEmail", err)
	}
	if _, err := svc.Register(context.Background(), "a@example.com", "123"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("got %v, want ErrWeakPassword", err)
	}
}

func TestService_StoreFailure(t *testing.T) {
	users := newFakeUsers()
	users.err = errors.New("database is locked")
	svc := newTestService(users)

	_, err := svc.Login(context.Background(), "a@example.com", "segreto1")
	if err == nil || errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("store failures must not look like bad credentials, got %v", err)
	}
	if !strings.Contains(err.Error(), "database is locked") {
		t.Fatalf("error should wrap the cause, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	h, err := HashPassword("segreto1")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPasswordHash("segreto1", h) || CheckPasswordHash("segreto2", h) {
		t.Fatalf("CheckPasswordHash mismatch")
	}
}
