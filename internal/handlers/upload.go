package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kerem-sirin/streamerstash-api/internal/logging"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/service/uploads"
)

type UploadHandler struct {
	Signer uploads.URLSigner
}

// GetUploadURL hands an artist a short-lived presigned PUT URL so the asset
// or preview goes straight to object storage, never through this service.
func (h *UploadHandler) GetUploadURL(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "upload_url")
	user := authmw.CurrentUser(c)

	var req struct {
		ProductID  string `json:"productId"`
		FileType   string `json:"fileType"`
		UploadType string `json:"uploadType"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("upload_url_failed", "status", 400, "reason", "invalid_body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == "" || req.FileType == "" || req.UploadType == "" {
		l.Warn("upload_url_failed", "status", 400, "reason", "missing_fields")
		return echo.NewHTTPError(http.StatusBadRequest, "productId, fileType, and uploadType are required")
	}

	ext := "zip"
	if _, after, found := strings.Cut(req.FileType, "/"); found && after != "" {
		ext = after
	}

	key := fmt.Sprintf("%ss/%s/%s/%s.%s", req.UploadType, user.ID, req.ProductID, uuid.NewString(), ext)

	uploadURL, err := h.Signer.PresignPut(ctx, key, req.FileType)
	if err != nil {
		l.Error("upload_url_failed", "status", 500, "reason", "presign_error", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	l.Info("upload_url_success", "key", key)
	return c.JSON(http.StatusOK, echo.Map{
		"uploadUrl": uploadURL,
		"key":       key,
	})
}
