package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shiftwise/shiftwise/internal/webhooks"
)

type memoryInbox struct {
	mu      sync.Mutex
	records []Notification
	failFor int64
}

func (m *memoryInbox) Insert(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor != 0 && n.UserID == m.failFor {
		return errors.New("insert failed")
	}
	m.records = append(m.records, n)
	return nil
}

func (m *memoryInbox) forUser(userID int64) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Notification
	for _, n := range m.records {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type stubDirectory struct {
	managers []int64
}

func (s *stubDirectory) UsersWithRoles(context.Context, ...string) ([]int64, error) {
	return s.managers, nil
}

type stubSettings struct {
	byUser map[int64]*webhooks.Setting
}

func (s *stubSettings) ForUser(_ context.Context, userID int64) (*webhooks.Setting, error) {
	return s.byUser[userID], nil
}

type memoryQueue struct {
	mu         sync.Mutex
	deliveries []webhooks.Delivery
}

func (m *memoryQueue) Enqueue(_ context.Context, d webhooks.Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *memoryQueue) all() []webhooks.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]webhooks.Delivery(nil), m.deliveries...)
}

func newTestDispatcher(inbox *memoryInbox, dir *stubDirectory, settings *stubSettings, queue *memoryQueue) *Dispatcher {
	if settings == nil {
		settings = &stubSettings{}
	}
	return NewDispatcher(inbox, dir, settings, queue, slog.New(slog.DiscardHandler))
}

func rowJSON(t *testing.T, id, employeeID, actorID int64, status string) json.RawMessage {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id": id, "employee_id": employeeID, "actor_id": actorID, "status": status,
	})
	require.NoError(t, err)
	return body
}

func TestDispatchApprovalNotifiesRequesterOnly(t *testing.T) {
	inbox := &memoryInbox{}
	queue := &memoryQueue{}
	d := newTestDispatcher(inbox, &stubDirectory{}, nil, queue)

	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamLeave,
		Kind:  KindUpdate,
		Old:   rowJSON(t, 7, 11, 22, StatusPending),
		New:   rowJSON(t, 7, 11, 22, StatusApproved),
	})

	require.Len(t, inbox.forUser(11), 1)
	require.Empty(t, inbox.forUser(22), "approver must not be notified")

	n := inbox.forUser(11)[0]
	require.Equal(t, "Leave request approved", n.Title)
	require.Equal(t, "success", n.Severity)
	require.Equal(t, StreamLeave, n.EntityType)
	require.Equal(t, int64(7), n.EntityID)
}

func TestDispatchApprovalWebhookFollowsTopicToggle(t *testing.T) {
	cases := []struct {
		name    string
		setting *webhooks.Setting
		want    int
	}{
		{"toggle on with url", &webhooks.Setting{
			UserID: 11, ChannelType: webhooks.ChannelChat,
			TargetURL: "https://hooks.example.com/x", NotifyLeave: true,
		}, 1},
		{"toggle off", &webhooks.Setting{
			UserID: 11, ChannelType: webhooks.ChannelChat,
			TargetURL: "https://hooks.example.com/x", NotifyLeave: false,
		}, 0},
		{"no url", &webhooks.Setting{
			UserID: 11, ChannelType: webhooks.ChannelChat, NotifyLeave: true,
		}, 0},
		{"no settings row", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inbox := &memoryInbox{}
			queue := &memoryQueue{}
			settings := &stubSettings{byUser: map[int64]*webhooks.Setting{}}
			if tc.setting != nil {
				settings.byUser[11] = tc.setting
			}
			d := newTestDispatcher(inbox, &stubDirectory{}, settings, queue)

			d.HandleChange(context.Background(), ChangeEvent{
				Table: StreamLeave,
				Kind:  KindUpdate,
				Old:   rowJSON(t, 7, 11, 22, StatusPending),
				New:   rowJSON(t, 7, 11, 22, StatusApproved),
			})

			// The inbox record is written regardless of webhook settings.
			require.Len(t, inbox.forUser(11), 1)
			require.Len(t, queue.all(), tc.want)
			if tc.want == 1 {
				got := queue.all()[0]
				require.Equal(t, webhooks.ChannelChat, got.TargetType)
				require.Equal(t, "https://hooks.example.com/x", got.URL)
				require.Equal(t, StreamLeave, got.Data["entity_type"])
			}
		})
	}
}

func TestDispatchInsertFansOutToManagersExcludingActor(t *testing.T) {
	inbox := &memoryInbox{}
	queue := &memoryQueue{}
	d := newTestDispatcher(inbox, &stubDirectory{managers: []int64{31, 32, 22}}, nil, queue)

	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamShiftSwaps,
		Kind:  KindInsert,
		New:   rowJSON(t, 3, 22, 22, StatusPending),
	})

	require.Len(t, inbox.forUser(31), 1)
	require.Len(t, inbox.forUser(32), 1)
	require.Empty(t, inbox.forUser(22), "the filer must not be notified of their own request")
	require.Equal(t, "New shift swap request", inbox.forUser(31)[0].Title)
	require.Equal(t, "info", inbox.forUser(31)[0].Severity)
}

func TestDispatchUpdateWithoutStatusTransitionIsIgnored(t *testing.T) {
	inbox := &memoryInbox{}
	queue := &memoryQueue{}
	d := newTestDispatcher(inbox, &stubDirectory{}, nil, queue)

	// Same status on both sides: an edit, not a decision.
	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamLeave,
		Kind:  KindUpdate,
		Old:   rowJSON(t, 7, 11, 22, StatusApproved),
		New:   rowJSON(t, 7, 11, 22, StatusApproved),
	})
	// Still pending: not yet decided.
	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamLeave,
		Kind:  KindUpdate,
		Old:   rowJSON(t, 8, 11, 22, StatusPending),
		New:   rowJSON(t, 8, 11, 22, StatusPending),
	})

	require.Empty(t, inbox.records)
	require.Empty(t, queue.all())
}

func TestDispatchRejectionUsesWarningSeverity(t *testing.T) {
	inbox := &memoryInbox{}
	d := newTestDispatcher(inbox, &stubDirectory{}, nil, &memoryQueue{})

	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamAvailability,
		Kind:  KindUpdate,
		Old:   rowJSON(t, 4, 11, 22, StatusPending),
		New:   rowJSON(t, 4, 11, 22, StatusRejected),
	})

	require.Len(t, inbox.forUser(11), 1)
	require.Equal(t, "warning", inbox.forUser(11)[0].Severity)
	require.Equal(t, "Availability request rejected", inbox.forUser(11)[0].Title)
}

func TestDispatchContinuesPastFailedInsert(t *testing.T) {
	inbox := &memoryInbox{failFor: 31}
	queue := &memoryQueue{}
	settings := &stubSettings{byUser: map[int64]*webhooks.Setting{
		31: {UserID: 31, ChannelType: webhooks.ChannelWebhook,
			TargetURL: "https://hooks.example.com/a", NotifyShiftSwaps: true},
	}}
	d := newTestDispatcher(inbox, &stubDirectory{managers: []int64{31, 32}}, settings, queue)

	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamShiftSwaps,
		Kind:  KindInsert,
		New:   rowJSON(t, 3, 22, 22, StatusPending),
	})

	// The failing member's webhook and the other member's inbox both proceed.
	require.Empty(t, inbox.forUser(31))
	require.Len(t, inbox.forUser(32), 1)
	require.Len(t, queue.all(), 1)
}

func TestDispatchIgnoresUnknownTablesAndKinds(t *testing.T) {
	inbox := &memoryInbox{}
	d := newTestDispatcher(inbox, &stubDirectory{managers: []int64{31}}, nil, &memoryQueue{})

	d.HandleChange(context.Background(), ChangeEvent{
		Table: "payroll_runs",
		Kind:  KindInsert,
		New:   rowJSON(t, 1, 2, 2, StatusPending),
	})
	d.HandleChange(context.Background(), ChangeEvent{
		Table: StreamLeave,
		Kind:  "DELETE",
		New:   rowJSON(t, 1, 2, 2, StatusPending),
	})

	require.Empty(t, inbox.records)
}
