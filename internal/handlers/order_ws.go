package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"resto_back_end/internal/database"
	"resto_back_end/internal/middleware"
	"resto_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Autoriser toutes les origines (à ajuster en production)
		return true
	},
}

// publishOrderUpdate notifie les clients websocket via Redis pubsub.
// Appelé après toute mutation de statut (préparation ou paiement).
func publishOrderUpdate(order *models.Order) {
	if database.Redis == nil {
		return
	}
	payload, err := json.Marshal(gin.H{
		"order_id":       order.ID.Hex(),
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})
	if err != nil {
		return
	}
	if err := database.Redis.Publish(context.Background(), "order:"+order.ID.Hex(), payload).Err(); err != nil {
		log.Printf("⚠️ Publication pubsub commande %s échouée: %v", order.ID.Hex(), err)
	}
}

// TrackOrder : suivi temps réel d'une commande (propriétaire ou admin)
func TrackOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	orderID := c.Param("id")

	ctx := c.Request.Context()
	order, err := OrderStore.FindByID(ctx, orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}
	if order.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	pubsub := database.Redis.Subscribe(context.Background(), "order:"+orderID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	// État courant envoyé dès la connexion
	conn.WriteJSON(gin.H{
		"type":           "connected",
		"order_id":       order.ID.Hex(),
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	})

	// Détecter la fermeture côté client
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var update map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				continue
			}
			update["type"] = "order_updated"
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
