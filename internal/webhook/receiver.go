package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/enrich"
	"github.com/Veraticus/fieldwise/internal/eventlog"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/service"
)

// DefaultProcessingTimeout bounds the background work for one delivery.
const DefaultProcessingTimeout = 60 * time.Second

// Processor enriches a newly created property.
type Processor interface {
	Process(ctx context.Context, accountID, propertyID string) enrich.Result
}

// Delivery is one received webhook request.
type Delivery struct {
	Headers model.WebhookHeaders
	// DefaultTopic applies when neither the header nor the payload names one.
	DefaultTopic string
	Body         []byte
	// ReceivedAt is stamped by Accept when unset.
	ReceivedAt time.Time
}

// Receiver processes deliveries after they have been acknowledged.
type Receiver struct {
	processor Processor
	store     service.AccountStore
	events    *eventlog.Log
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewReceiver creates a Receiver. A non-positive timeout uses
// DefaultProcessingTimeout.
func NewReceiver(processor Processor, store service.AccountStore, events *eventlog.Log, timeout time.Duration) *Receiver {
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}
	return &Receiver{
		processor: processor,
		store:     store,
		events:    events,
		timeout:   timeout,
	}
}

// Accept starts processing d in the background and returns its delivery id
// immediately. Processing runs under its own deadline, detached from the
// request that carried it.
func (r *Receiver) Accept(d Delivery) string {
	deliveryID := uuid.NewString()
	if d.ReceivedAt.IsZero() {
		d.ReceivedAt = time.Now().UTC()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Webhook processing panicked",
					"delivery_id", deliveryID,
					"panic", rec,
					"stack", string(debug.Stack()))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		r.process(ctx, deliveryID, d)
	}()

	return deliveryID
}

// Wait blocks until every accepted delivery has been processed.
func (r *Receiver) Wait() {
	r.wg.Wait()
}

func (r *Receiver) process(ctx context.Context, deliveryID string, d Delivery) {
	event := model.WebhookEvent{
		DeliveryID: deliveryID,
		Headers:    d.Headers,
		Topic:      d.Headers.Topic,
		ReceivedAt: d.ReceivedAt,
	}
	if json.Valid(d.Body) {
		event.Payload = json.RawMessage(d.Body)
	}

	n, err := ParseNotification(d.Headers.Topic, d.Body)
	if err != nil {
		common.LogError(err, "Discarding webhook", common.Fields{"delivery_id": deliveryID})
		r.record(event)
		return
	}
	if n.Topic == "" {
		n.Topic = d.DefaultTopic
	}
	event.Topic = n.Topic
	event.AccountID = n.AccountID

	log := slog.With("delivery_id", deliveryID, "topic", n.Topic, "account_id", n.AccountID)
	log.Info("Processing webhook", "item_id", n.ItemID)

	switch n.Topic {
	case model.TopicPropertyCreate:
		if n.ItemID == "" {
			log.Warn("Property webhook without itemId")
			break
		}
		result := r.processor.Process(ctx, n.AccountID, n.ItemID)
		event.PropertyDetails = result.Property
		event.Lookup = result.Lookup
		event.FieldsWritten = result.Written

	case model.TopicAppDisconnect:
		r.disconnect(ctx, n.AccountID)

	default:
		log.Info("Ignoring webhook topic")
	}

	r.record(event)
}

// disconnect clears the stored credential. The field mapping is kept so a
// later reconnect does not recreate fields.
func (r *Receiver) disconnect(ctx context.Context, accountID string) {
	_, err := r.store.UpdateAccount(ctx, accountID, model.ClearCredential())
	switch {
	case errors.Is(err, common.ErrNotFound):
		return
	case err != nil:
		common.LogError(err, "Failed to clear credential on disconnect", common.Fields{"account_id": accountID})
		return
	}
	slog.Info("Account disconnected", "account_id", accountID)
}

func (r *Receiver) record(event model.WebhookEvent) {
	if r.events == nil {
		return
	}
	r.events.Append(event)
}
