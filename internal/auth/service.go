package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/store"
)

// Account constraints.
const (
	MaxNameLength     = 50
	MinPasswordLength = 6
)

// User is the public view of an account. The password hash never leaves
// this package.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func userFromRecord(r *store.UserRecord) *User {
	return &User{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// UserStore is the persistence subset the Service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *store.UserRecord) error
	GetUser(ctx context.Context, id string) (*store.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*store.UserRecord, error)
	UpdateUser(ctx context.Context, u *store.UserRecord) error
	ListUsers(ctx context.Context) ([]store.UserRecord, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)
}

// Session is returned by Register and Login.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Service manages accounts and access tokens.
type Service struct {
	users  UserStore
	hasher *BcryptHasher
	tokens *Tokens
	now    func() time.Time
}

// NewService creates an account service.
func NewService(users UserStore, hasher *BcryptHasher, tokens *Tokens) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, now: time.Now}
}

// Tokens returns the token codec used by the service.
func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Register creates an account and signs the user in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}

	exists, err := s.users.UserExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	now := s.now().UTC()
	rec := &store.UserRecord{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// The UNIQUE index still catches a concurrent registration.
	if err := s.users.CreateUser(ctx, rec); err != nil {
		return nil, err
	}

	slog.Info("user registered", "user_id", rec.ID)
	return s.session(rec)
}

// Login verifies credentials. Unknown email and wrong password fail the
// same way.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	rec, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.hasher.Compare(rec.PasswordHash, password); err != nil {
		slog.Debug("login rejected", "user_id", rec.ID)
		return nil, errInvalidCredentials
	}
	return s.session(rec)
}

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)

// Authenticate resolves a token to the acting user id.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	// Tokens for deleted accounts are rejected.
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", fmt.Errorf("%w: unknown user", apperr.ErrUnauthorized)
		}
		return "", err
	}
	return userID, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	rec, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// UpdateProfile changes the display name.
func (s *Service) UpdateProfile(ctx context.Context, id, name string) (*User, error) {
	name, err := normalizeName(name)
	if err != nil {
		return nil, err
	}
	rec, err := s.users.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Name = name
	rec.UpdatedAt = s.now().UTC()
	if err := s.users.UpdateUser(ctx, rec); err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

// ListUsers returns every account, for assignment pickers.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	recs, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(recs))
	for i := range recs {
		out = append(out, *userFromRecord(&recs[i]))
	}
	return out, nil
}

func (s *Service) session(rec *store.UserRecord) (*Session, error) {
	token, err := s.tokens.Issue(rec.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: userFromRecord(rec), Token: token}, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", apperr.Validation("name cannot exceed %d characters", MaxNameLength)
	}
	return name, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("invalid email address")
	}
	return email, nil
}
