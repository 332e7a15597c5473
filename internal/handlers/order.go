package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/mykafka"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

// CreateOrder converts the caller's cart into an immutable order: resolve the
// referenced products in one batch read, snapshot names and prices, sum the
// total in minor currency units, persist the order, then clear the cart.
//
// The order write is the commit point. The cart clear afterwards is best
// effort: if it fails the order stands, the failure is only logged, and the
// caller still gets a 201.
func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_create")
	user := authmw.CurrentUser(c)

	var cartItems []models.CartItem
	if err := h.DB.Where("user_id = ?", user.ID).Find(&cartItems).Error; err != nil {
		l.Error("order_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if len(cartItems) == 0 {
		l.Warn("order_create_failed", "status", 400, "reason", "cart_empty")
		return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
	}

	ids := make([]string, 0, len(cartItems))
	for _, item := range cartItems {
		ids = append(ids, item.ProductID)
	}

	var products []models.Product
	if err := h.DB.Select("id", "name", "price").Where("id IN ?", ids).Find(&products).Error; err != nil {
		l.Error("order_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Fewer rows back than cart entries means at least one referenced
	// product no longer exists. No order, cart left untouched.
	if len(products) != len(cartItems) {
		l.Warn("order_create_failed", "status", 400, "reason", "product_missing",
			"cart_items", len(cartItems), "resolved", len(products))
		return echo.NewHTTPError(http.StatusBadRequest, "one or more products in the cart could not be found")
	}

	var total int64
	orderItems := make([]models.OrderItem, 0, len(products))
	for _, p := range products {
		total += p.Price
		orderItems = append(orderItems, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
		})
	}

	order := models.Order{
		ID:          "ord_" + uuid.NewString(),
		UserID:      user.ID,
		Items:       orderItems,
		TotalAmount: total,
		Status:      models.OrderPendingPayment,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.DB.Create(&order).Error; err != nil {
		l.Error("order_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// Past the commit point: never roll the order back, never retry.
	if err := h.DB.Where("user_id = ?", user.ID).Delete(&models.CartItem{}).Error; err != nil {
		l.Error("cart_clear_failed", "order_id", order.ID, "error", err)
	}

	h.publish(c, user.ID, map[string]any{
		"type":        "order_created",
		"orderID":     order.ID,
		"userID":      user.ID,
		"totalAmount": order.TotalAmount,
	})

	l.Info("order_create_success", "order_id", order.ID, "total", order.TotalAmount)
	return c.JSON(http.StatusCreated, order)
}

// ListOrders returns the caller's orders, newest first.
func (h *OrderHandler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order_list")
	user := authmw.CurrentUser(c)

	var orders []models.Order
	if err := h.DB.Preload("Items").
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		l.Error("order_list_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, orders)
}
