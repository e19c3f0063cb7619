package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Statuts d'une réservation de table
const (
	ReservationConfirmed = "confirmed"
	ReservationCancelled = "cancelled"
)

type Reservation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Reference string             `bson:"reference" json:"reference"` // code court présenté à l'accueil
	Date      string             `bson:"date" json:"date"`           // "2026-08-31"
	Slot      string             `bson:"slot" json:"slot"`           // "19:00", "19:30"...
	Guests    int                `bson:"guests" json:"guests"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
