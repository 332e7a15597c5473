package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicCartEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

// cartResponse is the wire shape of a cart. An absent cart is the empty shape,
// never an error.
type cartResponse struct {
	UserID    string     `json:"userId"`
	Items     []string   `json:"items"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

func (h *CartHandler) loadCart(userID string) (cartResponse, error) {
	var rows []models.CartItem
	if err := h.DB.Where("user_id = ?", userID).Order("updated_at ASC").Find(&rows).Error; err != nil {
		return cartResponse{}, err
	}

	resp := cartResponse{UserID: userID, Items: []string{}}
	for _, row := range rows {
		resp.Items = append(resp.Items, row.ProductID)
		if resp.UpdatedAt == nil || row.UpdatedAt.After(*resp.UpdatedAt) {
			t := row.UpdatedAt
			resp.UpdatedAt = &t
		}
	}
	return resp, nil
}

func (h *CartHandler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_get")
	user := authmw.CurrentUser(c)

	cart, err := h.loadCart(user.ID)
	if err != nil {
		l.Error("cart_get_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem is an idempotent set-add. The product is not checked against the
// catalog here; a dangling reference only surfaces at order creation.
func (h *CartHandler) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_add_item")
	user := authmw.CurrentUser(c)

	var req struct {
		ProductID string `json:"productId"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == "" {
		l.Warn("cart_add_item_failed", "status", 400, "reason", "missing_product_id")
		return echo.NewHTTPError(http.StatusBadRequest, "productId is required")
	}

	item := models.CartItem{
		UserID:    user.ID,
		ProductID: req.ProductID,
		UpdatedAt: time.Now().UTC(),
	}
	if err := h.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error; err != nil {
		l.Error("cart_add_item_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	cart, err := h.loadCart(user.ID)
	if err != nil {
		l.Error("cart_add_item_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "cart_item_added",
		"userID":    user.ID,
		"productID": req.ProductID,
	})

	return c.JSON(http.StatusOK, cart)
}

// RemoveItem is an idempotent set-remove; removing a non-member or from a
// nonexistent cart still answers with the (possibly empty) cart.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart_remove_item")
	user := authmw.CurrentUser(c)

	productID := c.Param("productId")
	if err := h.DB.
		Where("user_id = ? AND product_id = ?", user.ID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		l.Error("cart_remove_item_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	cart, err := h.loadCart(user.ID)
	if err != nil {
		l.Error("cart_remove_item_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, user.ID, map[string]any{
		"type":      "cart_item_removed",
		"userID":    user.ID,
		"productID": productID,
	})

	return c.JSON(http.StatusOK, cart)
}
