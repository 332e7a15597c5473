package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kerem-sirin/streamerstash-api/internal/models"
)

func decodeCart(t *testing.T, body []byte) cartResponse {
	var resp cartResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestGetCartEmpty(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")

	c, rec := newTestContext(t, e, http.MethodGet, "/api/cart", nil)
	setUser(c, user)

	require.NoError(t, h.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cart := decodeCart(t, rec.Body.Bytes())
	require.Equal(t, user.ID, cart.UserID)
	require.Empty(t, cart.Items)
	require.Nil(t, cart.UpdatedAt)
}

func TestAddItemIdempotent(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")

	// Adding the same product twice leaves a single entry. No catalog
	// existence check happens here.
	for i := 0; i < 2; i++ {
		c, rec := newTestContext(t, e, http.MethodPost, "/api/cart/items", map[string]string{
			"productId": "p1",
		})
		setUser(c, user)
		require.NoError(t, h.AddItem(c))
		require.Equal(t, http.StatusOK, rec.Code)

		cart := decodeCart(t, rec.Body.Bytes())
		require.Equal(t, []string{"p1"}, cart.Items)
	}
}

func TestAddItemMissingProductID(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")

	c, _ := newTestContext(t, e, http.MethodPost, "/api/cart/items", map[string]string{})
	setUser(c, user)

	he := httpError(t, h.AddItem(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRemoveItem(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")
	seedCartItem(t, h.DB, user.ID, "p1")
	seedCartItem(t, h.DB, user.ID, "p2")

	c, rec := newTestContext(t, e, http.MethodDelete, "/api/cart/items/p1", nil)
	c.SetParamNames("productId")
	c.SetParamValues("p1")
	setUser(c, user)

	require.NoError(t, h.RemoveItem(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"p2"}, decodeCart(t, rec.Body.Bytes()).Items)
}

func TestRemoveItemFromNonexistentCart(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")

	// Removing from an empty cart is not an error; the empty shape comes
	// back.
	c, rec := newTestContext(t, e, http.MethodDelete, "/api/cart/items/p1", nil)
	c.SetParamNames("productId")
	c.SetParamValues("p1")
	setUser(c, user)

	require.NoError(t, h.RemoveItem(c))
	require.Equal(t, http.StatusOK, rec.Code)

	cart := decodeCart(t, rec.Body.Bytes())
	require.Equal(t, user.ID, cart.UserID)
	require.Empty(t, cart.Items)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	h := &CartHandler{DB: initTestDB(t)}
	e := echo.New()
	alice := seedUser(t, h.DB, "alice@b.com")
	bob := seedUser(t, h.DB, "bob@b.com")
	seedCartItem(t, h.DB, alice.ID, "p1")

	c, rec := newTestContext(t, e, http.MethodGet, "/api/cart", nil)
	setUser(c, bob)
	require.NoError(t, h.GetCart(c))
	require.Empty(t, decodeCart(t, rec.Body.Bytes()).Items)

	var count int64
	h.DB.Model(&models.CartItem{}).Where("user_id = ?", alice.ID).Count(&count)
	require.EqualValues(t, 1, count)
}
