package notify

import (
	"encoding/json"
	"time"

	"github.com/shiftwise/shiftwise/internal/webhooks"
)

// Entity streams observed by the listener. Channel names on the wire are
// the table names prefixed with "changes_".
const (
	StreamLeave        = "leave_requests"
	StreamShiftSwaps   = "shift_swaps"
	StreamAvailability = "availability_requests"
	StreamAttendance   = "attendance"
)

// Streams lists every observed entity stream.
var Streams = []string{StreamLeave, StreamShiftSwaps, StreamAvailability, StreamAttendance}

// Change kinds delivered by the feed.
const (
	KindInsert = "INSERT"
	KindUpdate = "UPDATE"
)

// Request statuses that trigger counterpart notifications.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ChangeEvent is one change-feed delivery. Old and New carry the raw row
// JSON; the dispatcher decodes only the columns it needs.
type ChangeEvent struct {
	Table string          `json:"table"`
	Kind  string          `json:"kind"`
	Old   json.RawMessage `json:"old"`
	New   json.RawMessage `json:"new"`
}

// requestRow is the common column shape shared by the four request tables.
type requestRow struct {
	ID         int64  `json:"id"`
	EmployeeID int64  `json:"employee_id"`
	ActorID    int64  `json:"actor_id"`
	Status     string `json:"status"`
}

// Notification is one in-app inbox record. The dispatcher creates it; only
// the recipient mutates it afterwards (the read flag).
type Notification struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Severity   string    `json:"severity"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// topicFor maps an entity stream to its webhook topic toggle.
func topicFor(table string) string {
	switch table {
	case StreamLeave:
		return webhooks.TopicLeave
	case StreamShiftSwaps:
		return webhooks.TopicShiftSwaps
	case StreamAvailability:
		return webhooks.TopicAvailability
	case StreamAttendance:
		return webhooks.TopicAttendance
	default:
		return ""
	}
}

// labelFor is the human noun used in titles and messages per stream.
func labelFor(table string) string {
	switch table {
	case StreamLeave:
		return "leave request"
	case StreamShiftSwaps:
		return "shift swap request"
	case StreamAvailability:
		return "availability request"
	case StreamAttendance:
		return "attendance record"
	default:
		return "request"
	}
}
