package server

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/webhook"
)

// maxWebhookBody caps the bytes read from a delivery.
const maxWebhookBody = 1 << 20

// webhookHandler acknowledges a delivery and hands it to the receiver.
// defaultTopic applies when neither header nor payload carries one.
func (s *Server) webhookHandler(defaultTopic string) gin.HandlerFunc {
	return func(c *gin.Context) {
		receivedAt := time.Now().UTC()
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			errorJSON(c, http.StatusBadRequest, "unreadable body")
			return
		}

		headers := model.WebhookHeaders{
			ContentType: c.GetHeader("Content-Type"),
			Topic:       c.GetHeader(webhook.TopicHeader),
			Signature:   c.GetHeader(webhook.SignatureHeader),
		}

		if s.opts.VerifySignatures {
			if err := webhook.VerifySignature(s.opts.WebhookSecret, body, headers.Signature); err != nil {
				common.LogWarn("Rejected webhook", common.Fields{"error": err.Error(), "topic": headers.Topic})
				errorJSON(c, http.StatusUnauthorized, "invalid signature")
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"received": true})

		deliveryID := s.opts.Receiver.Accept(webhook.Delivery{
			Headers:      headers,
			DefaultTopic: defaultTopic,
			Body:         body,
			ReceivedAt:   receivedAt,
		})
		common.LogDebug("Webhook accepted", common.Fields{"delivery_id": deliveryID, "topic": headers.Topic})
	}
}

func (s *Server) handleListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"events": s.opts.Events.List()})
}

func (s *Server) handleClearEvents(c *gin.Context) {
	s.opts.Events.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type mappedField struct {
	Key     model.FieldKey `json:"key"`
	Label   string         `json:"label"`
	FieldID string         `json:"fieldId"`
}

type accountResponse struct {
	ID        string                  `json:"id"`
	Category  model.Category          `json:"category"`
	State     model.ProvisioningState `json:"state"`
	Fields    []mappedField           `json:"fields"`
	Connected bool                    `json:"connected"`
}

// handleAccount reports the signed-in account's provisioning state.
func (s *Server) handleAccount(c *gin.Context) {
	id := c.Param("id")
	if sessionString(sessions.Default(c), sessionAccountID) != id {
		errorJSON(c, http.StatusForbidden, "forbidden")
		return
	}

	ctx := c.Request.Context()
	account, err := s.opts.Store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			errorJSON(c, http.StatusNotFound, "account not found")
			return
		}
		common.LogError(err, "Failed to load account", common.Fields{"account_id": id})
		errorJSON(c, http.StatusInternalServerError, "internal error")
		return
	}

	resp := accountResponse{
		ID:        account.ID,
		Category:  account.Category,
		State:     s.opts.Provisioner.State(ctx, id),
		Connected: account.Connected(),
		Fields:    make([]mappedField, 0, len(account.FieldMapping)),
	}
	for key, fieldID := range account.FieldMapping {
		resp.Fields = append(resp.Fields, mappedField{Key: key, Label: fields.Label(key), FieldID: fieldID})
	}
	sort.Slice(resp.Fields, func(i, j int) bool {
		return fields.Order(resp.Fields[i].Key) < fields.Order(resp.Fields[j].Key)
	})

	c.JSON(http.StatusOK, resp)
}
