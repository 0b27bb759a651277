// Package service verifies login credentials and registers password accounts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"journal-identity/internal/security"
	"journal-identity/internal/telemetry"
	telemetrydomain "journal-identity/internal/telemetry/domain"
	userdomain "journal-identity/internal/user/domain"
	userrepo "journal-identity/internal/user/repository"
)

// Sentinel errors; the HTTP transport maps ErrInvalidCredentials to 401 and
// ErrUserStoreUnavailable to 503.
var (
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserStoreUnavailable   = errors.New("user store unavailable")
)

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserRepo is the minimal user repository needed by the authenticator.
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// PasswordAuthenticator checks email/password pairs against stored bcrypt hashes.
type PasswordAuthenticator struct {
	users  UserRepo
	hasher *security.Hasher
	clock  clockwork.Clock
	logger *slog.Logger
	events telemetry.EventEmitter
}

// NewPasswordAuthenticator returns a PasswordAuthenticator. logger and events may be nil.
func NewPasswordAuthenticator(users UserRepo, hasher *security.Hasher, logger *slog.Logger, events telemetry.EventEmitter) *PasswordAuthenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if events == nil {
		events = telemetry.NopEmitter{}
	}
	return &PasswordAuthenticator{
		users:  users,
		hasher: hasher,
		clock:  clockwork.NewRealClock(),
		logger: logger,
		events: events,
	}
}

// Authenticate returns the user for a valid email/password pair. Unknown
// accounts, disabled accounts and wrong passwords all yield
// ErrInvalidCredentials after one bcrypt comparison. Store failures wrap
// ErrUserStoreUnavailable.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%w: load user: %w", ErrUserStoreUnavailable, err)
	}
	if u == nil || !u.CanLogin() {
		_ = a.hasher.CompareDummy([]byte(password))
		a.fail(ctx, "", "unknown_or_disabled")
		return nil, ErrInvalidCredentials
	}
	if err := a.hasher.Compare(u.PasswordHash, []byte(password)); err != nil {
		a.fail(ctx, u.ID, "password_mismatch")
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *PasswordAuthenticator) fail(ctx context.Context, userID, reason string) {
	a.logger.InfoContext(ctx, "login rejected", "user_id", userID, "reason", reason)
	telemetry.EmitAsync(a.events, &telemetrydomain.Event{
		Type:      telemetrydomain.EventLoginFailed,
		UserID:    userID,
		Source:    "identity",
		Reason:    reason,
		CreatedAt: a.clock.Now().UTC(),
	})
}

// Register creates an active password account. Used by the seed command; there is
// no public registration route.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, password, name string) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	hashed, err := a.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := a.clock.Now().UTC()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := a.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	a.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !simpleEmail.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	switch {
	case !hasUpper:
		return errors.New("password must contain at least one uppercase letter")
	case !hasLower:
		return errors.New("password must contain at least one lowercase letter")
	case !hasNumber:
		return errors.New("password must contain at least one number")
	case !hasSymbol:
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
