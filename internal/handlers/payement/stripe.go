package payement

import (
	"errors"
	"log"
	"net/http"

	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"
	pay "resto_back_end/internal/payement"

	"github.com/gin-gonic/gin"
)

// CreateStripeSession ouvre un checkout Stripe pour une commande
func CreateStripeSession(c *gin.Context) {
	var req struct {
		OrderID string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "order_id requis", "code": "VALIDATION_ERROR"})
		return
	}

	order := loadOwnedOrder(c, req.OrderID)
	if order == nil {
		return
	}

	sess, err := stripe.CreateSession(c.Request.Context(), order, customerFromContext(c, order))
	if err != nil {
		payError(c, err)
		return
	}

	// La session existe chez Stripe : on fige transaction_id + moyen de paiement
	if _, err := store.AssignTransaction(c.Request.Context(), req.OrderID, sess.TransactionID, models.MethodStripe); err != nil {
		payError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":     sess.SessionID,
		"url":            sess.RedirectURL,
		"transaction_id": sess.TransactionID,
	})
}

// StripeWebhook reçoit les événements signés. Le body doit rester brut pour
// la vérification de signature. 200 même pour un no-op idempotent ; non-200
// uniquement si le payload est invérifiable ou illisible.
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Échec lecture body", "code": "BAD_PAYLOAD"})
		return
	}

	event, err := stripe.HandleWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		// Échec fermé : signature invalide ⇒ aucune mutation
		log.Println("❌ Webhook Stripe rejeté:", err)
		payError(c, err)
		return
	}
	if event == nil {
		c.Status(http.StatusOK)
		return
	}

	if _, _, err := engine.Apply(c.Request.Context(), event); err != nil && !errors.Is(err, orders.ErrNotFound) {
		// Commande inconnue : on répond 200 quand même, le prestataire gère
		// ses propres renvois. Seule une vraie panne interne renvoie autre chose
		payError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// VerifyStripePayment : vérification explicite côté client, lecture chez
// Stripe puis réconciliation
func VerifyStripePayment(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
		OrderID   string `json:"order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "session_id et order_id requis", "code": "VALIDATION_ERROR"})
		return
	}

	userID := c.GetString("user_id")
	order, err := store.FindByID(c.Request.Context(), req.OrderID)
	if err != nil {
		payError(c, err)
		return
	}
	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Accès refusé", "code": "FORBIDDEN"})
		return
	}

	event, err := stripe.VerifySession(c.Request.Context(), req.SessionID)
	if err != nil {
		payError(c, err)
		return
	}

	if event.Outcome != pay.OutcomeCompleted {
		c.JSON(http.StatusOK, gin.H{"success": false, "status": string(event.Outcome)})
		return
	}

	// La session Stripe référence sa propre commande : si elle ne correspond
	// pas à celle annoncée par le client, on ne complète rien
	if !event.MatchesOrder(req.OrderID) {
		c.JSON(http.StatusForbidden, gin.H{"message": "La session ne correspond pas à cette commande", "code": "FORBIDDEN"})
		return
	}
	if event.OrderID == "" {
		event.OrderID = req.OrderID
	}
	updated, _, err := engine.Apply(c.Request.Context(), event)
	if err != nil {
		payError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": updated})
}
