package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftwise/shiftwise/internal/shared"
)

const (
	// DefaultLockoutThreshold locks an account after this many failures.
	DefaultLockoutThreshold = 5
	// DefaultLockoutWindow is the trailing window failures are counted in.
	DefaultLockoutWindow = 15 * time.Minute

	minPasswordLength = 8

	uniqueViolationCode = "23505"
)

// ErrSignupDisabled is returned when registration is switched off.
var ErrSignupDisabled = errors.New("signup disabled")

// ErrWeakPassword is returned for passwords below the minimum length.
var ErrWeakPassword = errors.New("weak password")

// ServiceConfig tunes authentication behaviour.
type ServiceConfig struct {
	LockoutThreshold    int
	LockoutWindow       time.Duration
	SignupEnabled       bool
	RequireConfirmation bool
}

// Service implements the credential exchange: password verification,
// registration, lockout accounting and password maintenance.
type Service struct {
	repo   Repository
	mailer ResetMailer
	logger *slog.Logger
	cfg    ServiceConfig
	now    func() time.Time
}

// ResetMailer delivers password reset mail. Implementations are expected to
// enqueue rather than block.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NewService constructs a Service.
func NewService(repo Repository, mailer ResetMailer, logger *slog.Logger, cfg ServiceConfig) *Service {
	if cfg.LockoutThreshold <= 0 {
		cfg.LockoutThreshold = DefaultLockoutThreshold
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = DefaultLockoutWindow
	}
	return &Service{repo: repo, mailer: mailer, logger: logger, cfg: cfg, now: time.Now}
}

// IsLocked reports whether the email has accumulated enough recent failures
// to be denied authentication. A recorded success does not clear prior
// failures; they simply age out of the window.
func (s *Service) IsLocked(ctx context.Context, email string) (bool, error) {
	since := s.now().Add(-s.cfg.LockoutWindow)
	count, err := s.repo.CountFailedAttempts(ctx, email, since)
	if err != nil {
		return false, err
	}
	return count >= s.cfg.LockoutThreshold, nil
}

// SignIn validates credentials for an unlocked account. The lockout check
// runs before any credential work so a locked account is rejected even with
// the correct password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*User, error) {
	locked, err := s.IsLocked(ctx, email)
	if err != nil {
		// An unreadable attempt log should not lock every account out.
		s.warn("lockout check", email, err)
	} else if locked {
		return nil, shared.ErrAccountLocked
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		s.recordAttempt(ctx, email, false)
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordAttempt(ctx, email, false)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordAttempt(ctx, email, false)
		return nil, shared.ErrInvalidCredentials
	}

	s.recordAttempt(ctx, email, true)
	return user, nil
}

// SignUp registers a new account. The second return value reports whether
// email confirmation is still pending, in which case the caller stays
// unauthenticated with a "check your email" signal rather than an error.
func (s *Service) SignUp(ctx context.Context, email, name, password string) (*User, bool, error) {
	if !s.cfg.SignupEnabled {
		return nil, false, ErrSignupDisabled
	}
	if len(password) < minPasswordLength {
		return nil, false, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	active := !s.cfg.RequireConfirmation
	user, err := s.repo.CreateUser(ctx, email, name, string(hash), active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, false, errors.New("email already registered")
		}
		return nil, false, err
	}
	return user, s.cfg.RequireConfirmation, nil
}

// RegisterSession persists session metadata for auditing.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// RequestPasswordReset issues a reset token and mails it. The outcome is
// identical whether or not the account exists, to avoid enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, tokens *ResetTokens, email string) {
	if _, err := s.repo.FindByEmail(ctx, email); err != nil {
		return
	}
	token, err := tokens.Issue(ctx, email)
	if err != nil {
		s.warn("issue reset token", email, err)
		return
	}
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendPasswordReset(ctx, email, token); err != nil {
		s.warn("send reset mail", email, err)
	}
}

// UpdatePassword replaces the password for an authenticated user.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, string(hash))
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, tokens *ResetTokens, token, password string) error {
	email, err := tokens.Consume(ctx, token)
	if err != nil {
		return err
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return shared.ErrNotFound
	}
	return s.UpdatePassword(ctx, user.ID, password)
}

// recordAttempt appends to the lockout log. Failures to write the log are
// logged and swallowed so they never block the sign-in result.
func (s *Service) recordAttempt(ctx context.Context, email string, success bool) {
	attempt := LoginAttempt{Email: email, At: s.now(), Success: success}
	if err := s.repo.RecordAttempt(ctx, attempt); err != nil {
		s.warn("record login attempt", email, err)
	}
}

func (s *Service) warn(msg, email string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.String("email", email), slog.Any("error", err))
	}
}
