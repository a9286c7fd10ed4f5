package webhooks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPayloadChat(t *testing.T) {
	body, err := BuildPayload(Delivery{
		TargetType: ChannelChat,
		Title:      "Leave approved",
		Message:    "Your leave request was approved",
	})
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "*Leave approved*\nYour leave request was approved", decoded["text"])
}

func TestBuildPayloadGeneric(t *testing.T) {
	body, err := BuildPayload(Delivery{
		TargetType: ChannelWebhook,
		Title:      "New shift swap",
		Message:    "A new shift swap request was filed",
		Data:       map[string]any{"entity_type": "shift_swaps", "entity_id": float64(9)},
	})
	require.NoError(t, err)

	var decoded genericPayload
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "New shift swap", decoded.Title)
	require.Equal(t, float64(9), decoded.Data["entity_id"])
}

func TestSettingEnabled(t *testing.T) {
	s := Setting{TargetURL: "https://hooks.example.com/x", NotifyLeave: true}
	require.True(t, s.Enabled(TopicLeave))
	require.False(t, s.Enabled(TopicAttendance))
	require.False(t, s.Enabled("unknown"))

	// No URL means no delivery regardless of toggles.
	s.TargetURL = ""
	require.False(t, s.Enabled(TopicLeave))
}
