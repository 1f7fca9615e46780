package model

import (
	"encoding/json"
	"time"
)

// Webhook topics delivered by the platform.
const (
	TopicPropertyCreate = "PROPERTY_CREATE"
	TopicAppDisconnect  = "APP_DISCONNECT"
)

// WebhookHeaders keeps the delivery headers worth showing alongside an event.
type WebhookHeaders struct {
	ContentType string `json:"content-type,omitempty"`
	Topic       string `json:"x-jobber-topic,omitempty"`
	Signature   string `json:"x-jobber-hmac-sha256,omitempty"`
}

// WebhookEvent is one processed webhook delivery kept in the event log.
type WebhookEvent struct {
	ReceivedAt      time.Time        `json:"receivedAt"`
	PropertyDetails *PropertyDetails `json:"propertyDetails,omitempty"`
	Lookup          *LookupResult    `json:"attomData,omitempty"`
	Headers         WebhookHeaders   `json:"headers"`
	DeliveryID      string           `json:"deliveryId"`
	Topic           string           `json:"topic"`
	AccountID       string           `json:"accountId,omitempty"`
	Payload         json.RawMessage  `json:"webhookPayload,omitempty"`
	ID              int64            `json:"id"`
	FieldsWritten   int              `json:"fieldsWritten"`
}
