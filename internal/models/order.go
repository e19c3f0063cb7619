package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Statuts de préparation d'une commande (machine à états fermée)
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusPreparing  = "preparing"
	StatusDelivering = "delivering"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Statuts de paiement : monotones vers un état terminal par transaction
const (
	PaymentUnset     = ""
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Moyens de paiement supportés
const (
	MethodStripe     = "stripe"
	MethodSSLCommerz = "sslcommerz"
)

// OrderItem : article figé au moment de la commande (prix garanti à l'achat,
// jamais relu depuis le catalogue ensuite)
type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	Image     string  `bson:"image" json:"image"`
	Quantity  int     `bson:"quantity" json:"quantity"`
	Price     float64 `bson:"price" json:"price"`
}

type DeliveryAddress struct {
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	ZipCode string `bson:"zip_code" json:"zip_code"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	Items           []OrderItem        `bson:"items" json:"items"`
	Total           float64            `bson:"total" json:"total"`
	DeliveryFee     float64            `bson:"delivery_fee" json:"delivery_fee"`
	DeliveryAddress DeliveryAddress    `bson:"delivery_address" json:"delivery_address"`
	PaymentMethod   string             `bson:"payment_method,omitempty" json:"payment_method,omitempty"`
	TransactionID   string             `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status          string             `bson:"status" json:"status"`
	PaymentStatus   string             `bson:"payment_status,omitempty" json:"payment_status,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}
