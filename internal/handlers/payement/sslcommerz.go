package payement

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"resto_back_end/internal/config"
	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"
	pay "resto_back_end/internal/payement"

	"github.com/gin-gonic/gin"
)

// CreateSSLCommerzSession ouvre une session de paiement sur la passerelle
func CreateSSLCommerzSession(c *gin.Context) {
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

	sess, err := sslcz.CreateSession(c.Request.Context(), order, customerFromContext(c, order))
	if err != nil {
		payError(c, err)
		return
	}

	if _, err := store.AssignTransaction(c.Request.Context(), req.OrderID, sess.TransactionID, models.MethodSSLCommerz); err != nil {
		payError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionkey":     sess.SessionID,
		"GatewayPageURL": sess.RedirectURL,
		"transaction_id": sess.TransactionID,
	})
}

// redirectFront renvoie le navigateur vers le front avec le résultat en query
func redirectFront(c *gin.Context, page string, params url.Values) {
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("%s/%s?%s", config.FrontendURL(), page, params.Encode()))
}

// SSLCommerzSuccess : retour navigateur après paiement. Canal non signé, donc
// la complétion est confirmée auprès du validateur avant toute réconciliation.
func SSLCommerzSuccess(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formulaire illisible", "code": "BAD_PAYLOAD"})
		return
	}

	event, err := sslcz.ParseCallback(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "code": "BAD_PAYLOAD"})
		return
	}

	q := url.Values{}
	q.Set("order_id", event.OrderID)
	q.Set("tran_id", event.TransactionID)

	if event.Outcome != pay.OutcomeCompleted {
		q.Set("status", "failed")
		redirectFront(c, "commande/echec", q)
		return
	}

	// Confirmation serveur-à-serveur du val_id. L'événement validé reste lié
	// au tran_id renvoyé par le validateur : le value_a du formulaire n'est
	// pas de confiance et ne désigne jamais la commande à compléter.
	confirmed, err := sslcz.VerifySession(c.Request.Context(), event.ProviderRef)
	if err != nil {
		log.Println("⚠️ Validation SSLCommerz échouée:", err)
		q.Set("status", "unverified")
		redirectFront(c, "commande/echec", q)
		return
	}

	if _, _, err := engine.Apply(c.Request.Context(), confirmed); err != nil {
		q.Set("status", "error")
		redirectFront(c, "commande/echec", q)
		return
	}

	q.Set("status", "completed")
	redirectFront(c, "commande/succes", q)
}

// SSLCommerzFail : paiement refusé côté passerelle
func SSLCommerzFail(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formulaire illisible", "code": "BAD_PAYLOAD"})
		return
	}

	event, err := sslcz.ParseCallback(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "code": "BAD_PAYLOAD"})
		return
	}
	event.Outcome = pay.OutcomeFailed

	// Un "failed" tardif ne peut jamais écraser un "completed" (no-op)
	if _, _, err := engine.Apply(c.Request.Context(), event); err != nil && !errors.Is(err, orders.ErrNotFound) {
		log.Println("⚠️ Réconciliation échec paiement:", err)
	}

	q := url.Values{}
	q.Set("order_id", event.OrderID)
	q.Set("tran_id", event.TransactionID)
	q.Set("status", "failed")
	redirectFront(c, "commande/echec", q)
}

// SSLCommerzCancel : abandon par le client, aucune issue terminale
func SSLCommerzCancel(c *gin.Context) {
	c.Request.ParseForm()

	q := url.Values{}
	q.Set("order_id", c.Request.PostForm.Get("value_a"))
	q.Set("status", "cancelled")
	redirectFront(c, "commande/annulee", q)
}

// SSLCommerzIPN : notification serveur-à-serveur (POST formulaire non signé).
// Même règle que le retour navigateur : validation avant réconciliation.
// Toujours 200 pour un traitement idempotent, y compris commande inconnue.
func SSLCommerzIPN(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Formulaire illisible", "code": "BAD_PAYLOAD"})
		return
	}

	event, err := sslcz.ParseCallback(c.Request.PostForm)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "code": "BAD_PAYLOAD"})
		return
	}

	switch event.Outcome {
	case pay.OutcomeCompleted:
		// Seul le tran_id confirmé par le validateur fait foi : le value_a du
		// formulaire ne désigne jamais la commande à compléter
		confirmed, err := sslcz.VerifySession(c.Request.Context(), event.ProviderRef)
		if err != nil {
			log.Println("⚠️ IPN non validé, ignoré:", err)
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
			return
		}
		event = confirmed
	case pay.OutcomeFailed:
		// appliqué tel quel : la monotonie du moteur protège un "completed" existant
	default:
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
		return
	}

	_, applied, err := engine.Apply(c.Request.Context(), event)
	if err != nil && !errors.Is(err, orders.ErrNotFound) {
		payError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "applied": applied})
}
