package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/mykafka"
	"github.com/kerem-sirin/streamerstash-api/internal/service/payments"
)

const paymentCurrency = "gbp"

type PaymentHandler struct {
	DB            *gorm.DB
	Intents       payments.IntentClient
	WebhookSecret string
	Producer      *mykafka.Producer
}

func (h *PaymentHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

// CreateIntent creates a payment intent sized to the order total, or fetches
// the already-attached one so a client retry never produces a duplicate
// intent.
func (h *PaymentHandler) CreateIntent(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_create_intent")
	user := authmw.CurrentUser(c)

	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := c.Bind(&req); err != nil || req.OrderID == "" {
		l.Warn("create_intent_failed", "status", 400, "reason", "missing_order_id")
		return echo.NewHTTPError(http.StatusBadRequest, "orderId is required")
	}

	var order models.Order
	if err := h.DB.Where("id = ?", req.OrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("create_intent_failed", "status", 404, "reason", "order_not_found")
			return echo.NewHTTPError(http.StatusNotFound, "order not found or you do not have permission")
		}
		l.Error("create_intent_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	// Another user's order looks exactly like a missing one.
	if order.UserID != user.ID {
		l.Warn("create_intent_failed", "status", 404, "reason", "wrong_owner")
		return echo.NewHTTPError(http.StatusNotFound, "order not found or you do not have permission")
	}
	if order.Status != models.OrderPendingPayment {
		l.Warn("create_intent_failed", "status", 400, "reason", "already_processed", "order_status", order.Status)
		return echo.NewHTTPError(http.StatusBadRequest, "order has already been processed")
	}

	if order.PaymentIntentID != "" {
		intent, err := h.Intents.GetIntent(ctx, order.PaymentIntentID)
		if err != nil {
			l.Error("create_intent_failed", "status", 500, "reason", "stripe_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		l.Info("create_intent_reused", "order_id", order.ID, "intent_id", intent.ID)
		return c.JSON(http.StatusOK, echo.Map{"clientSecret": intent.ClientSecret})
	}

	intent, err := h.Intents.CreateIntent(ctx, order.TotalAmount, paymentCurrency, map[string]string{
		"orderId": order.ID,
		"userId":  order.UserID,
	})
	if err != nil {
		l.Error("create_intent_failed", "status", 500, "reason", "stripe_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	if err := h.DB.Model(&order).Update("payment_intent_id", intent.ID).Error; err != nil {
		l.Error("create_intent_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("create_intent_success", "order_id", order.ID, "intent_id", intent.ID)
	return c.JSON(http.StatusOK, echo.Map{"clientSecret": intent.ClientSecret})
}

// Webhook reconciles order status from Stripe notifications. The raw body is
// what gets signature-checked; re-encoding it would invalidate the signature.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment_webhook")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("webhook_failed", "status", 400, "reason", "read_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.Request().Header.Get("Stripe-Signature"),
		h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		l.Warn("webhook_failed", "status", 400, "reason", "bad_signature", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "webhook signature verification failed")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			l.Warn("webhook_failed", "status", 400, "reason", "bad_event_data", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid event data")
		}

		orderID := pi.Metadata["orderId"]
		if orderID == "" {
			l.Warn("webhook_ignored", "reason", "no_order_metadata", "intent_id", pi.ID)
			break
		}

		// Unconditional set: repeated delivery of the same notification is
		// safe because the write is idempotent.
		if err := h.DB.Model(&models.Order{}).
			Where("id = ?", orderID).
			Update("status", models.OrderCompleted).Error; err != nil {
			l.Error("webhook_failed", "status", 500, "reason", "db_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}

		h.publish(c, orderID, map[string]any{
			"type":    "payment_completed",
			"orderID": orderID,
			"userID":  pi.Metadata["userId"],
		})
		l.Info("webhook_payment_succeeded", "order_id", orderID, "intent_id", pi.ID)

	default:
		// Unrecognized notification types are acknowledged and ignored.
		l.Info("webhook_ignored", "event_type", string(event.Type))
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
