package auth

import (
	"strings"

	"github.com/shiftwise/shiftwise/internal/shared"
)

// User-facing messages for the fixed authentication error taxonomy. Raw
// provider errors are matched by substring; anything unmatched falls
// through to the raw message.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgEmailNotConfirmed  = "Please confirm your email address before signing in"
	MsgSignupDisabled     = "New registrations are currently disabled"
	MsgDuplicateAccount   = "An account with this email already exists"
	MsgWeakPassword       = "Password must be at least 8 characters"
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgNetworkError       = "Network error, please try again"
	MsgRateLimited        = "Too many attempts, please try again later"
	MsgAccountLocked      = "Too many failed attempts, please try again later"
	MsgCheckYourEmail     = "Check your email to confirm your account"
)

var messageTable = []struct {
	substr  string
	message string
}{
	{"invalid login credentials", MsgInvalidCredentials},
	{"invalid credentials", MsgInvalidCredentials},
	{"email not confirmed", MsgEmailNotConfirmed},
	{"signup disabled", MsgSignupDisabled},
	{"signups not allowed", MsgSignupDisabled},
	{"already registered", MsgDuplicateAccount},
	{"duplicate", MsgDuplicateAccount},
	{"weak password", MsgWeakPassword},
	{"password should be", MsgWeakPassword},
	{"invalid email", MsgInvalidEmail},
	{"network", MsgNetworkError},
	{"connection refused", MsgNetworkError},
	{"rate limit", MsgRateLimited},
	{"too many requests", MsgRateLimited},
	{"locked", MsgAccountLocked},
}

// UserMessage maps an authentication error to one of the fixed user-facing
// messages. Lockout is reported distinctly from bad credentials so the UI
// can say "try again later" without enabling account enumeration.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if err == shared.ErrInvalidCredentials {
		return MsgInvalidCredentials
	}
	if err == shared.ErrAccountLocked {
		return MsgAccountLocked
	}
	raw := strings.ToLower(err.Error())
	for _, entry := range messageTable {
		if strings.Contains(raw, entry.substr) {
			return entry.message
		}
	}
	return err.Error()
}
