package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/shiftwise/shiftwise/internal/roles"
	"github.com/shiftwise/shiftwise/internal/webhooks"
)

// fanoutLimit bounds concurrent audience members in flight. Each member is
// an independent unit of work; one member's failure never blocks another.
const fanoutLimit = 4

// NotificationWriter persists in-app notification records.
type NotificationWriter interface {
	Insert(ctx context.Context, n Notification) error
}

// ManagerDirectory resolves the manager audience for new requests.
type ManagerDirectory interface {
	UsersWithRoles(ctx context.Context, roleNames ...string) ([]int64, error)
}

// SettingsSource looks up per-user webhook settings.
type SettingsSource interface {
	ForUser(ctx context.Context, userID int64) (*webhooks.Setting, error)
}

// DeliveryQueue hands an eligible webhook delivery off for sending.
type DeliveryQueue interface {
	Enqueue(ctx context.Context, d webhooks.Delivery) error
}

// Dispatcher turns change-feed events into in-app notifications and
// optional webhook deliveries. Everything here is advisory: failures are
// logged and swallowed, never propagated to the triggering mutation. The
// feed is at-least-once and no deduplication is attempted, so redelivered
// events produce duplicate notifications.
type Dispatcher struct {
	notifications NotificationWriter
	managers      ManagerDirectory
	settings      SettingsSource
	queue         DeliveryQueue
	logger        *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(notifications NotificationWriter, managers ManagerDirectory, settings SettingsSource, queue DeliveryQueue, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		managers:      managers,
		settings:      settings,
		queue:         queue,
		logger:        logger,
	}
}

// HandleChange consumes one change event.
func (d *Dispatcher) HandleChange(ctx context.Context, evt ChangeEvent) {
	topic := topicFor(evt.Table)
	if topic == "" {
		return
	}
	var row requestRow
	if err := json.Unmarshal(evt.New, &row); err != nil {
		d.logger.Warn("decode change row", slog.String("table", evt.Table), slog.Any("error", err))
		return
	}

	var audience []int64
	var title, message, severity string
	label := labelFor(evt.Table)

	switch evt.Kind {
	case KindInsert:
		managerIDs, err := d.managers.UsersWithRoles(ctx, roles.RoleEmployer, roles.RoleManager)
		if err != nil {
			d.logger.Error("resolve manager audience", slog.String("table", evt.Table), slog.Any("error", err))
			return
		}
		audience = exclude(managerIDs, row.ActorID)
		title = "New " + label
		message = "A new " + label + " is awaiting review"
		severity = "info"

	case KindUpdate:
		newStatus := strings.ToLower(row.Status)
		if newStatus != StatusApproved && newStatus != StatusRejected {
			return
		}
		var old requestRow
		if len(evt.Old) > 0 {
			if err := json.Unmarshal(evt.Old, &old); err != nil {
				d.logger.Warn("decode old row", slog.String("table", evt.Table), slog.Any("error", err))
				return
			}
		}
		if strings.ToLower(old.Status) == newStatus {
			return
		}
		// The counterpart is notified; the approver acting on their own
		// request would be both actor and recipient, so they are skipped.
		if row.EmployeeID == 0 || row.EmployeeID == row.ActorID {
			return
		}
		audience = []int64{row.EmployeeID}
		title = capitalize(label) + " " + newStatus
		message = "Your " + label + " was " + newStatus
		if newStatus == StatusApproved {
			severity = "success"
		} else {
			severity = "warning"
		}

	default:
		return
	}

	if len(audience) == 0 {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(fanoutLimit)
	for _, recipient := range audience {
		group.Go(func() error {
			d.notifyOne(groupCtx, recipient, topic, title, message, severity, evt.Table, row.ID)
			return nil
		})
	}
	_ = group.Wait()
}

// notifyOne handles a single audience member: the inbox write, then the
// optional webhook. Both steps are best-effort.
func (d *Dispatcher) notifyOne(ctx context.Context, recipient int64, topic, title, message, severity, entityType string, entityID int64) {
	err := d.notifications.Insert(ctx, Notification{
		UserID:     recipient,
		Title:      title,
		Message:    message,
		Severity:   severity,
		EntityType: entityType,
		EntityID:   entityID,
	})
	if err != nil {
		d.logger.Error("write notification",
			slog.Int64("recipient", recipient), slog.String("entity_type", entityType), slog.Any("error", err))
	}

	setting, err := d.settings.ForUser(ctx, recipient)
	if err != nil {
		d.logger.Error("load webhook setting", slog.Int64("recipient", recipient), slog.Any("error", err))
		return
	}
	if setting == nil || !setting.Enabled(topic) {
		return
	}

	delivery := webhooks.Delivery{
		TargetType: setting.ChannelType,
		URL:        setting.TargetURL,
		Title:      title,
		Message:    message,
		Data: map[string]any{
			"entity_type": entityType,
			"entity_id":   entityID,
		},
	}
	if err := d.queue.Enqueue(ctx, delivery); err != nil {
		d.logger.Error("enqueue webhook", slog.Int64("recipient", recipient), slog.Any("error", err))
	}
}

func exclude(ids []int64, skip int64) []int64 {
	out := ids[:0:0]
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
