// Package webhook parses and verifies platform webhook deliveries and runs
// their processing in the background after the HTTP acknowledgement.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload is returned for bodies that are not a recognizable
// notification.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Notification is the routing information carried by a delivery.
type Notification struct {
	Topic      string `json:"topic"`
	AccountID  string `json:"accountId"`
	ItemID     string `json:"itemId"`
	AppID      string `json:"appId,omitempty"`
	OccurredAt string `json:"occurredAt,omitempty"`
}

type envelope struct {
	Data *struct {
		WebHookEvent *Notification `json:"webHookEvent"`
	} `json:"data"`
	Notification
}

// ParseNotification decodes either the nested
// {"data":{"webHookEvent":{...}}} envelope or a flat {"itemId","accountId"}
// body. A non-empty topicHeader takes precedence over the payload's topic.
func ParseNotification(topicHeader string, body []byte) (*Notification, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	n := env.Notification
	if env.Data != nil && env.Data.WebHookEvent != nil {
		n = *env.Data.WebHookEvent
	}

	if topic := strings.TrimSpace(topicHeader); topic != "" {
		n.Topic = topic
	}
	n.Topic = strings.ToUpper(strings.TrimSpace(n.Topic))

	if n.ItemID == "" && n.AccountID == "" {
		return nil, fmt.Errorf("%w: no itemId or accountId", ErrMalformedPayload)
	}
	return &n, nil
}
