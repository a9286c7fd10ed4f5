package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shiftwise/shiftwise/internal/shared"
)

type memoryRepo struct {
	users    map[string]*User
	attempts []LoginAttempt
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[string]*User)}
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if user, ok := r.users[email]; ok {
		return user, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) CreateUser(ctx context.Context, email, name, passwordHash string, active bool) (*User, error) {
	user := &User{ID: int64(len(r.users) + 1), Email: email, Name: name, PasswordHash: passwordHash, IsActive: active}
	r.users[email] = user
	return user, nil
}

func (r *memoryRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	for _, user := range r.users {
		if user.ID == userID {
			user.PasswordHash = passwordHash
		}
	}
	return nil
}

func (r *memoryRepo) RecordAttempt(ctx context.Context, attempt LoginAttempt) error {
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *memoryRepo) CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	count := 0
	for _, attempt := range r.attempts {
		if attempt.Email == email && !attempt.Success && !attempt.At.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *memoryRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (r *memoryRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

func seedUser(t *testing.T, repo *memoryRepo, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.users[email] = &User{ID: 1, Email: email, PasswordHash: string(hash), IsActive: true}
}

func TestSignInSuccess(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	user, err := svc.SignIn(context.Background(), "user@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), user.ID)
	require.Len(t, repo.attempts, 1)
	require.True(t, repo.attempts[0].Success)
}

func TestSignInWrongPassword(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	_, err := svc.SignIn(context.Background(), "user@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	require.Len(t, repo.attempts, 1)
	require.False(t, repo.attempts[0].Success)
}

func TestLockoutAfterFiveFailures(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	for i := 0; i < 5; i++ {
		_, err := svc.SignIn(context.Background(), "user@example.com", "wrong")
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}

	locked, err := svc.IsLocked(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.True(t, locked)

	// Even the correct password is rejected while locked, and the error is
	// distinguishable from bad credentials.
	_, err = svc.SignIn(context.Background(), "user@example.com", "correct-horse")
	require.ErrorIs(t, err, shared.ErrAccountLocked)
	require.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestLockoutExcludesOldFailures(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		_, _ = svc.SignIn(context.Background(), "user@example.com", "wrong")
	}
	locked, err := svc.IsLocked(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.True(t, locked)

	// Sixteen minutes later the failures have aged out.
	now = now.Add(16 * time.Minute)
	locked, err = svc.IsLocked(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.False(t, locked)

	user, err := svc.SignIn(context.Background(), "user@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, user)
}

func TestSuccessDoesNotClearFailures(t *testing.T) {
	repo := newMemoryRepo()
	seedUser(t, repo, "user@example.com", "correct-horse")
	svc := NewService(repo, nil, nil, ServiceConfig{})

	for i := 0; i < 4; i++ {
		_, _ = svc.SignIn(context.Background(), "user@example.com", "wrong")
	}
	_, err := svc.SignIn(context.Background(), "user@example.com", "correct-horse")
	require.NoError(t, err)

	// One more failure reaches the threshold; the earlier success did not
	// reset the counter.
	_, _ = svc.SignIn(context.Background(), "user@example.com", "wrong")
	locked, err := svc.IsLocked(context.Background(), "user@example.com")
	require.NoError(t, err)
	require.True(t, locked)
}

func TestSignUpDisabled(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{SignupEnabled: false})
	_, _, err := svc.SignUp(context.Background(), "new@example.com", "New User", "password1")
	require.ErrorIs(t, err, ErrSignupDisabled)
	require.Equal(t, MsgSignupDisabled, UserMessage(err))
}

func TestSignUpConfirmationPending(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{SignupEnabled: true, RequireConfirmation: true})
	user, pending, err := svc.SignUp(context.Background(), "new@example.com", "New User", "password1")
	require.NoError(t, err)
	require.True(t, pending)
	require.False(t, user.IsActive)
}

func TestUpdatePasswordRejectsWeak(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, ServiceConfig{})
	err := svc.UpdatePassword(context.Background(), 1, "short")
	require.ErrorIs(t, err, ErrWeakPassword)
	require.Equal(t, MsgWeakPassword, UserMessage(err))
}

func TestUserMessageMapping(t *testing.T) {
	cases := map[string]string{
		"Invalid login credentials":        MsgInvalidCredentials,
		"Email not confirmed":              MsgEmailNotConfirmed,
		"Signups not allowed for this app": MsgSignupDisabled,
		"User already registered":          MsgDuplicateAccount,
		"Password should be at least 6":    MsgWeakPassword,
		"network timeout on fetch":         MsgNetworkError,
		"Rate limit exceeded":              MsgRateLimited,
		"something entirely novel":         "something entirely novel",
	}
	for raw, want := range cases {
		require.Equal(t, want, UserMessage(errors.New(raw)), "raw=%q", raw)
	}
}
