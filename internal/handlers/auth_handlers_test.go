package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kerem-sirin/streamerstash-api/internal/models"
	"github.com/kerem-sirin/streamerstash-api/internal/tokens"
)

func newAuthHandler(t *testing.T) *AuthHandler {
	return &AuthHandler{
		DB:        initTestDB(t),
		JWTSecret: []byte(testJWTSecret),
		TokenTTL:  time.Hour,
	}
}

func TestRegister(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "secret1",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	// Token embeds the new user's identity.
	var user models.User
	require.NoError(t, h.DB.Where("email = ?", "a@b.com").First(&user).Error)
	sub, err := tokens.Parse(resp["token"], h.JWTSecret)
	require.NoError(t, err)
	require.Equal(t, user.ID, sub)
	require.Equal(t, []string{models.RoleCustomer}, user.Roles)
	require.NotEqual(t, "secret1", user.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	c, rec := newTestContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "dup@b.com",
		"password": "secret1",
	})
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, _ = newTestContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "dup@b.com",
		"password": "secret1",
	})
	he := httpError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()

	c, _ := newTestContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "secret1",
	})
	he := httpError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, he.Code)

	c, _ = newTestContext(t, e, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "short",
	})
	he = httpError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestLogin(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()
	seedUser(t, h.DB, "a@b.com")

	c, rec := newTestContext(t, e, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "password123",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()
	seedUser(t, h.DB, "a@b.com")

	// Wrong password and unknown user answer identically.
	c, _ := newTestContext(t, e, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrong-password",
	})
	heWrongPassword := httpError(t, h.Login(c))
	require.Equal(t, http.StatusBadRequest, heWrongPassword.Code)

	c, _ = newTestContext(t, e, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@b.com",
		"password": "password123",
	})
	heUnknownUser := httpError(t, h.Login(c))
	require.Equal(t, http.StatusBadRequest, heUnknownUser.Code)
	require.Equal(t, heWrongPassword.Message, heUnknownUser.Message)
}

func TestMeStripsPassword(t *testing.T) {
	h := newAuthHandler(t)
	e := echo.New()
	user := seedUser(t, h.DB, "a@b.com")

	c, rec := newTestContext(t, e, http.MethodGet, "/api/auth/me", nil)
	setUser(c, user)

	require.NoError(t, h.Me(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "a@b.com", resp["email"])
	require.Equal(t, []any{"customer"}, resp["roles"])
	require.False(t, strings.Contains(strings.ToLower(rec.Body.String()), "password"))
}
