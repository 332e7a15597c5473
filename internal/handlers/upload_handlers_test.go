package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kerem-sirin/streamerstash-api/internal/models"
)

type fakeSigner struct {
	lastKey         string
	lastContentType string
}

func (f *fakeSigner) PresignPut(_ context.Context, key, contentType string) (string, error) {
	f.lastKey = key
	f.lastContentType = contentType
	return "https://bucket.s3.amazonaws.com/" + key + "?X-Amz-Signature=test", nil
}

func TestGetUploadURL(t *testing.T) {
	signer := &fakeSigner{}
	h := &UploadHandler{Signer: signer}
	e := echo.New()
	artist := &models.User{ID: "artist-1", Roles: []string{models.RoleArtist}}

	c, rec := newTestContext(t, e, http.MethodPost, "/api/uploads/url", map[string]string{
		"productId":  "prod-1",
		"fileType":   "image/png",
		"uploadType": "preview",
	})
	setUser(c, artist)

	require.NoError(t, h.GetUploadURL(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	// Key scopes the object under type, artist, and product.
	require.True(t, strings.HasPrefix(resp["key"], "previews/artist-1/prod-1/"), "key %q", resp["key"])
	require.True(t, strings.HasSuffix(resp["key"], ".png"), "key %q", resp["key"])
	require.Equal(t, resp["key"], signer.lastKey)
	require.Equal(t, "image/png", signer.lastContentType)
	require.Contains(t, resp["uploadUrl"], resp["key"])
}

func TestGetUploadURLExtensionFallback(t *testing.T) {
	signer := &fakeSigner{}
	h := &UploadHandler{Signer: signer}
	e := echo.New()
	artist := &models.User{ID: "artist-1", Roles: []string{models.RoleArtist}}

	c, rec := newTestContext(t, e, http.MethodPost, "/api/uploads/url", map[string]string{
		"productId":  "prod-1",
		"fileType":   "octet-stream",
		"uploadType": "asset",
	})
	setUser(c, artist)

	require.NoError(t, h.GetUploadURL(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(signer.lastKey, "assets/artist-1/prod-1/"), "key %q", signer.lastKey)
	require.True(t, strings.HasSuffix(signer.lastKey, ".zip"), "key %q", signer.lastKey)
}

func TestGetUploadURLMissingFields(t *testing.T) {
	h := &UploadHandler{Signer: &fakeSigner{}}
	e := echo.New()
	artist := &models.User{ID: "artist-1", Roles: []string{models.RoleArtist}}

	for _, body := range []map[string]string{
		{"fileType": "image/png", "uploadType": "preview"},
		{"productId": "prod-1", "uploadType": "preview"},
		{"productId": "prod-1", "fileType": "image/png"},
	} {
		c, _ := newTestContext(t, e, http.MethodPost, "/api/uploads/url", body)
		setUser(c, artist)
		he := httpError(t, h.GetUploadURL(c))
		require.Equal(t, http.StatusBadRequest, he.Code)
	}
}
