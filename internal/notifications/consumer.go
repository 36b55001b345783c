package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/outbox"
	"github.com/storefront-labs/storefront-backend/pkg/outbox/idempotency"
	"github.com/storefront-labs/storefront-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches order lifecycle events and turns them into in-app
// notifications for the order's owner.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != enums.EventOrderPlaced && eventType != enums.EventOrderStatusChanged {
		c.logg.Info(logCtx, "skipping non-order event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var handleErr error
	switch eventType {
	case enums.EventOrderPlaced:
		handleErr = c.handlePlaced(ctx, envelope.Data, logCtx)
	case enums.EventOrderStatusChanged:
		handleErr = c.handleStatusChanged(ctx, envelope.Data, logCtx)
	}
	if handleErr != nil {
		c.logg.Error(logCtx, "notification handling failed", handleErr)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handlePlaced(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderPlacedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing order_placed payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    enums.NotificationOrderPlaced,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order %s has been placed.", payload.OrderNumber),
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "user notified of placed order")
	return nil
}

func (c *Consumer) handleStatusChanged(ctx context.Context, data json.RawMessage, logCtx context.Context) error {
	var payload payloads.OrderStatusChangedEvent
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parsing order_status_changed payload: %w", err)
	}
	if payload.UserID == uuid.Nil {
		return fmt.Errorf("user id missing")
	}

	notificationType, title, message, ok := statusNotification(payload)
	if !ok {
		c.logg.Info(logCtx, "status not notified")
		return nil
	}

	link := fmt.Sprintf("/orders/%s", payload.OrderID)
	notification := &models.Notification{
		UserID:  payload.UserID,
		Type:    notificationType,
		Title:   title,
		Message: message,
		Link:    stringPtr(link),
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "user notified of status change")
	return nil
}

// statusNotification maps a lifecycle transition to its notification
// copy. Intermediate shipping statuses stay silent.
func statusNotification(payload payloads.OrderStatusChangedEvent) (enums.NotificationType, string, string, bool) {
	switch payload.ToStatus {
	case enums.OrderStatusConfirmed:
		return enums.NotificationOrderConfirmed, "Order confirmed",
			"Your order has been confirmed and is being prepared.", true
	case enums.OrderStatusDelivered:
		return enums.NotificationOrderDelivered, "Order delivered",
			"Your order has been delivered. Enjoy!", true
	case enums.OrderStatusCancelled:
		message := "Your order has been cancelled."
		if payload.Note != "" {
			message = fmt.Sprintf("Your order has been cancelled: %s", payload.Note)
		}
		return enums.NotificationOrderCancelled, "Order cancelled", message, true
	case enums.OrderStatusReturned:
		return enums.NotificationOrderReturned, "Order returned",
			"Your return has been processed and stock restored.", true
	default:
		return "", "", "", false
	}
}

func stringPtr(value string) *string {
	return &value
}
