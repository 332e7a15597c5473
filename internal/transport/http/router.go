package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kerem-sirin/streamerstash-api/internal/handlers"
	authmw "github.com/kerem-sirin/streamerstash-api/internal/middleware/auth"
	"github.com/kerem-sirin/streamerstash-api/internal/models"
)

type Deps struct {
	Auth           *authmw.Auth
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	CartHandler    *handlers.CartHandler
	OrderHandler   *handlers.OrderHandler
	PaymentHandler *handlers.PaymentHandler
	UploadHandler  *handlers.UploadHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Hello there! Welcome to the Streamer Stash World!")
	})
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.RequireAuth)

	products := api.Group("/products")
	products.GET("", d.ProductHandler.ListProducts)
	products.GET("/search", d.SearchHandler.Search)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.POST("", d.ProductHandler.CreateProduct,
		d.Auth.RequireAuth, authmw.RequireRoles(models.RoleArtist, models.RoleAdmin))
	// Mutations check ownership inside the handler, after the existence
	// check, so a missing product is a 404 before any 403.
	products.PUT("/:id", d.ProductHandler.UpdateProduct, d.Auth.RequireAuth)
	products.DELETE("/:id", d.ProductHandler.DeleteProduct, d.Auth.RequireAuth)
	products.PUT("/:id/asset", d.ProductHandler.AttachAsset, d.Auth.RequireAuth)
	products.POST("/:id/previews", d.ProductHandler.AppendPreview, d.Auth.RequireAuth)

	cart := api.Group("/cart", d.Auth.RequireAuth)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("/items", d.CartHandler.AddItem)
	cart.DELETE("/items/:productId", d.CartHandler.RemoveItem)

	orders := api.Group("/orders", d.Auth.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)

	payments := api.Group("/payments")
	payments.POST("/create-intent", d.PaymentHandler.CreateIntent, d.Auth.RequireAuth)
	payments.POST("/webhook", d.PaymentHandler.Webhook)

	uploads := api.Group("/uploads",
		d.Auth.RequireAuth, authmw.RequireRoles(models.RoleArtist, models.RoleAdmin))
	uploads.POST("/url", d.UploadHandler.GetUploadURL)
}
