package jobs

import (
	"context"
	"fmt"
)

// Mailer enqueues transactional mail instead of sending inline.
type Mailer struct {
	client  *Client
	baseURL string
}

// NewMailer constructs a Mailer. baseURL is the public address used in links.
func NewMailer(client *Client, baseURL string) *Mailer {
	return &Mailer{client: client, baseURL: baseURL}
}

// SendPasswordReset enqueues the reset email for a user.
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	_, err := m.client.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      email,
		Subject: "Reset your password",
		Body: fmt.Sprintf("Follow this link to choose a new password: %s/reset-password/confirm?token=%s",
			m.baseURL, token),
	})
	return err
}
