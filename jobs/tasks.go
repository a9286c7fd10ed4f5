package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shiftwise/shiftwise/internal/webhooks"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWebhookDeliver is the task type for outbound webhook posts.
	TaskTypeWebhookDeliver = "webhook:deliver"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// NewWebhookDeliverTask constructs an Asynq task from a delivery.
func NewWebhookDeliverTask(d webhooks.Delivery) (*asynq.Task, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWebhookDeliver, data), nil
}

// WebhookDeliverer handles webhook delivery tasks. Failures are terminal:
// delivery is at-most-once, so the handler never requests a retry.
type WebhookDeliverer struct {
	sender *webhooks.Sender
	logger *slog.Logger
}

// NewWebhookDeliverer constructs a WebhookDeliverer.
func NewWebhookDeliverer(sender *webhooks.Sender, logger *slog.Logger) *WebhookDeliverer {
	return &WebhookDeliverer{sender: sender, logger: logger}
}

// Handle processes one TaskTypeWebhookDeliver task.
func (w *WebhookDeliverer) Handle(ctx context.Context, t *asynq.Task) error {
	var d webhooks.Delivery
	if err := json.Unmarshal(t.Payload(), &d); err != nil {
		return asynq.SkipRetry
	}
	if err := w.sender.Send(ctx, d); err != nil {
		w.logger.Warn("webhook delivery failed",
			slog.String("target_type", d.TargetType), slog.Any("error", err))
	}
	return nil
}

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// TODO: wire SMTP delivery once the mail relay is provisioned.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}
