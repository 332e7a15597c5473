package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleArtist   = "artist"
	RoleAdmin    = "admin"
)

const (
	ProductPendingApproval = "pending_approval"
	ProductPublished       = "published"
	ProductRejected        = "rejected"
)

const (
	OrderPendingPayment = "pending_payment"
	OrderCompleted      = "completed"
)

type User struct {
	ID           string    `gorm:"primaryKey"           json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null"             json:"-"`
	Roles        []string  `gorm:"serializer:json"      json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasAnyRole reports whether the user carries at least one of the given roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range u.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type Product struct {
	ID               string    `gorm:"primaryKey"      json:"id"`
	ArtistID         string    `gorm:"index;not null"  json:"artistId"`
	Name             string    `gorm:"not null"        json:"name"`
	Description      string    `json:"description"`
	Price            int64     `gorm:"not null"        json:"price"`
	Category         string    `gorm:"index"           json:"category"`
	Tags             []string  `gorm:"serializer:json" json:"tags"`
	Status           string    `gorm:"index;not null"  json:"status"`
	PreviewImageKeys []string  `gorm:"serializer:json" json:"previewImageKeys"`
	S3AssetKey       string    `json:"s3AssetKey"`
	CreatedAt        time.Time `gorm:"index"           json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Version          int       `json:"version"`
}

// CartItem is one product reference in a user's cart. The composite unique
// index gives the cart set semantics: adding the same product twice is a no-op.
type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                 json:"-"`
	UserID    string    `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"userId"`
	ProductID string    `gorm:"uniqueIndex:idx_cart_user_product;not null" json:"productId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Order struct {
	ID              string      `gorm:"primaryKey"         json:"id"`
	UserID          string      `gorm:"index;not null"     json:"userId"`
	Items           []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount     int64       `json:"totalAmount"`
	Status          string      `gorm:"not null"           json:"status"`
	PaymentIntentID string      `json:"paymentIntentId,omitempty"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// OrderItem snapshots the product's name and price at order-creation time,
// so later catalog edits never change a historical order.
type OrderItem struct {
	ID        uint   `gorm:"primaryKey"     json:"-"`
	OrderID   string `gorm:"index;not null" json:"-"`
	ProductID string `gorm:"not null"       json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
}
