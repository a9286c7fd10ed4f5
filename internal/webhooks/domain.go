package webhooks

import "time"

// Channel types supported for outbound delivery.
const (
	// ChannelChat formats payloads for chat-style webhook consumers.
	ChannelChat = "chat"
	// ChannelWebhook posts a generic JSON document.
	ChannelWebhook = "webhook"
)

// Notification topics a user can toggle independently.
const (
	TopicShiftSwaps   = "shift-swaps"
	TopicAvailability = "availability"
	TopicLeave        = "leave"
	TopicAttendance   = "attendance"
)

// Setting is the per-user webhook configuration. One row per user; absence
// means no external delivery.
type Setting struct {
	UserID             int64     `json:"user_id"`
	ChannelType        string    `json:"channel_type"`
	TargetURL          string    `json:"target_url"`
	NotifyShiftSwaps   bool      `json:"notify_shift_swaps"`
	NotifyAvailability bool      `json:"notify_availability"`
	NotifyLeave        bool      `json:"notify_leave"`
	NotifyAttendance   bool      `json:"notify_attendance"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Enabled reports whether delivery is configured for the given topic.
func (s Setting) Enabled(topic string) bool {
	if s.TargetURL == "" {
		return false
	}
	switch topic {
	case TopicShiftSwaps:
		return s.NotifyShiftSwaps
	case TopicAvailability:
		return s.NotifyAvailability
	case TopicLeave:
		return s.NotifyLeave
	case TopicAttendance:
		return s.NotifyAttendance
	default:
		return false
	}
}

// Delivery is one outbound webhook call.
type Delivery struct {
	TargetType string         `json:"targetType"`
	URL        string         `json:"url"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
}
