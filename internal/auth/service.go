package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"incassi/internal/log"
	"incassi/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
)

const minPasswordLength = 6

// User is the public part of an account.
type User struct {
	ID    string
	Email string
}

// UserStore is implemented by storage.SQLiteRepository.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (storage.User, error)
}

type Service struct {
	users     UserStore
	logger    *log.Logger
	dummyHash string
}

func NewService(users UserStore, logger *log.Logger) *Service {
	// compared against when the email is unknown, so both paths cost one bcrypt run
	dummy, _ := HashPassword("incassi-dummy-password")
	return &Service{users: users, logger: logger.WithComponent(log.ComponentAuth), dummyHash: dummy}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, email, hash)
	if errors.Is(err, storage.ErrDuplicate) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", log.FieldOwnerID, u.ID, log.FieldOperation, log.OpSignup)
	return User{ID: u.ID, Email: u.Email}, nil
}

// Login checks the credentials. Unknown emails and wrong passwords both
// return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		CheckPasswordHash(password, s.dummyHash)
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}

	if !CheckPasswordHash(password, u.PasswordHash) {
		s.logger.WarnContext(ctx, "Wrong password", log.FieldOwnerID, u.ID, log.FieldOperation, log.OpLogin)
		return User{}, ErrInvalidCredentials
	}
	return User{ID: u.ID, Email: u.Email}, nil
}
