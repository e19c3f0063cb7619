package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Role       string             `bson:"role" json:"role"` // "customer" ou "admin"
	Provider   string             `bson:"provider" json:"provider"`
	ProviderID string             `bson:"provider_id,omitempty" json:"-"`
	AvatarURL  string             `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	CreatedAt  primitive.DateTime `bson:"created_at" json:"created_at"`
}
