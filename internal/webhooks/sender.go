package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// Sender performs the outbound POST for a delivery. Delivery is
// at-most-once: no retry and no confirmation is recorded anywhere.
type Sender struct {
	client *http.Client
}

// NewSender constructs a Sender.
func NewSender(timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{client: &http.Client{Timeout: timeout}}
}

// Send posts the payload to the delivery URL.
func (s *Sender) Send(ctx context.Context, d Delivery) error {
	body, err := BuildPayload(d)
	if err != nil {
		return fmt.Errorf("webhooks: build payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhooks: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhooks: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhooks: post: unexpected status %d", resp.StatusCode)
	}
	return nil
}
