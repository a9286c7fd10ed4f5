package webhooks

import "encoding/json"

type chatPayload struct {
	Text string `json:"text"`
}

type genericPayload struct {
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// BuildPayload renders the channel-appropriate request body for a delivery.
func BuildPayload(d Delivery) ([]byte, error) {
	if d.TargetType == ChannelChat {
		return json.Marshal(chatPayload{Text: "*" + d.Title + "*\n" + d.Message})
	}
	return json.Marshal(genericPayload{Title: d.Title, Message: d.Message, Data: d.Data})
}
