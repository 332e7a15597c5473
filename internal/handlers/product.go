package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/mykafka"
	"github.com/kerem-sirin/streamerstash-api/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *ProductHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka_publish_failed", "error", err)
	}
}

// canModify: product mutations are allowed to the owning artist or an admin.
func canModify(u *models.User, p *models.Product) bool {
	return p.ArtistID == u.ID || u.HasAnyRole(models.RoleAdmin)
}

type productRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_create")
	user := authmw.CurrentUser(c)

	var req productRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_failed", "status", 400, "reason", "invalid_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		l.Warn("product_create_failed", "status", 400, "reason", "missing_name")
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if req.Price < 0 {
		l.Warn("product_create_failed", "status", 400, "reason", "negative_price")
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	now := time.Now().UTC()
	prod := models.Product{
		ID:               uuid.NewString(),
		ArtistID:         user.ID,
		Name:             req.Name,
		Description:      req.Description,
		Price:            req.Price,
		Category:         req.Category,
		Tags:             req.Tags,
		Status:           models.ProductPendingApproval,
		PreviewImageKeys: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		l.Error("product_create_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, prod.ID, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"artistID":  prod.ArtistID,
		"name":      prod.Name,
	})

	l.Info("product_create_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_get")

	var prod models.Product
	if err := h.DB.Where("id = ?", c.Param("id")).First(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("product_get_failed", "status", 404, "reason", "not_found")
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_get_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, prod)
}

// ListProducts serves the public catalog: published products only, filterable
// by category and tag, keyset-paginated by creation time with an opaque
// continuation token.
func (h *ProductHandler) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_list")

	limit := util.ClampLimit(util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize))
	asc := c.QueryParam("order") == "asc"

	q := h.DB.Model(&models.Product{}).Where("status = ?", models.ProductPublished)

	if category := c.QueryParam("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if tag := c.QueryParam("tag"); tag != "" {
		// tags are stored as a JSON array, so membership is a substring
		// match on the quoted value.
		q = q.Where("tags LIKE ?", `%"`+tag+`"%`)
	}

	if lastKey := c.QueryParam("lastKey"); lastKey != "" {
		k, err := util.DecodePageKey(lastKey)
		if err != nil {
			l.Warn("product_list_failed", "status", 400, "reason", "bad_last_key", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid lastKey")
		}
		if asc {
			q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", k.CreatedAt, k.CreatedAt, k.ID)
		} else {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", k.CreatedAt, k.CreatedAt, k.ID)
		}
	}

	if asc {
		q = q.Order("created_at ASC, id ASC")
	} else {
		q = q.Order("created_at DESC, id DESC")
	}

	var items []models.Product
	if err := q.Limit(limit).Find(&items).Error; err != nil {
		l.Error("product_list_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	// A full page means there may be more; hand back the last row's sort key.
	var nextKey *string
	if len(items) == limit {
		last := items[len(items)-1]
		encoded := util.EncodePageKey(util.PageKey{CreatedAt: last.CreatedAt, ID: last.ID})
		nextKey = &encoded
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":   items,
		"nextKey": nextKey,
	})
}

// loadForModify fetches the product and enforces the mutation policy:
// existence first (404), ownership second (403).
func (h *ProductHandler) loadForModify(c echo.Context) (*models.Product, error) {
	var prod models.Product
	if err := h.DB.Where("id = ?", c.Param("id")).First(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if !canModify(authmw.CurrentUser(c), &prod) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "access denied: insufficient permissions")
	}
	return &prod, nil
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_update")

	prod, err := h.loadForModify(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_update_failed", "status", 400, "reason", "invalid_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Price < 0 {
		l.Warn("product_update_failed", "status", 400, "reason", "negative_price")
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.Price = req.Price
	prod.Category = req.Category
	if req.Tags != nil {
		prod.Tags = req.Tags
	}
	prod.UpdatedAt = time.Now().UTC()
	prod.Version++

	if err := h.DB.Save(prod).Error; err != nil {
		l.Error("product_update_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, prod.ID, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	l.Info("product_update_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_delete")

	prod, err := h.loadForModify(c)
	if err != nil {
		return err
	}

	if err := h.DB.Delete(&models.Product{}, "id = ?", prod.ID).Error; err != nil {
		l.Error("product_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, prod.ID, map[string]any{
		"type":      "product_deleted",
		"productID": prod.ID,
	})

	l.Info("product_delete_success", "product_id", prod.ID)
	return c.NoContent(http.StatusNoContent)
}

// AttachAsset links the uploaded S3 object to the product.
func (h *ProductHandler) AttachAsset(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_attach_asset")

	prod, err := h.loadForModify(c)
	if err != nil {
		return err
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&req); err != nil || req.Key == "" {
		l.Warn("product_attach_asset_failed", "status", 400, "reason", "missing_key")
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	prod.S3AssetKey = req.Key
	prod.UpdatedAt = time.Now().UTC()
	prod.Version++

	if err := h.DB.Save(prod).Error; err != nil {
		l.Error("product_attach_asset_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("product_attach_asset_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

// AppendPreview adds one preview image key to the product's ordered list.
func (h *ProductHandler) AppendPreview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product_append_preview")

	prod, err := h.loadForModify(c)
	if err != nil {
		return err
	}

	var req struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&req); err != nil || req.Key == "" {
		l.Warn("product_append_preview_failed", "status", 400, "reason", "missing_key")
		return echo.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	prod.PreviewImageKeys = append(prod.PreviewImageKeys, req.Key)
	prod.UpdatedAt = time.Now().UTC()
	prod.Version++

	if err := h.DB.Save(prod).Error; err != nil {
		l.Error("product_append_preview_failed", "status", 500, "reason", "db_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("product_append_preview_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}
