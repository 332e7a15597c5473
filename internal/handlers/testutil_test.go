package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kerem-sirin/streamerstash-api/internal/hash"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
)

const testJWTSecret = "test-jwt-secret"

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to connect to in-memory db")

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	), "failed to migrate tables")

	return db
}

func newTestContext(t *testing.T, e *echo.Echo, method, path string, body any) (echo.Context, *httptest.ResponseRecorder) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// setUser plants an authenticated user the way the auth middleware would.
func setUser(c echo.Context, u *models.User) {
	c.Set("user", u)
}

func seedUser(t *testing.T, db *gorm.DB, email string, roles ...string) *models.User {
	if len(roles) == 0 {
		roles = []string{models.RoleCustomer}
	}
	pwHash, err := hash.HashPassword("password123")
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: pwHash,
		Roles:        roles,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, artistID, name string, price int64, status string) *models.Product {
	now := time.Now().UTC()
	prod := &models.Product{
		ID:               uuid.NewString(),
		ArtistID:         artistID,
		Name:             name,
		Price:            price,
		Status:           status,
		Tags:             []string{},
		PreviewImageKeys: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
		Version:          1,
	}
	require.NoError(t, db.Create(prod).Error)
	return prod
}

func seedCartItem(t *testing.T, db *gorm.DB, userID, productID string) {
	require.NoError(t, db.Create(&models.CartItem{
		UserID:    userID,
		ProductID: productID,
		UpdatedAt: time.Now().UTC(),
	}).Error)
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	return he
}
