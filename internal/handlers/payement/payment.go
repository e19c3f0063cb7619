package payement

import (
	"errors"
	"log"
	"net/http"

	"resto_back_end/internal/middleware"
	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"
	pay "resto_back_end/internal/payement"

	"github.com/gin-gonic/gin"
)

// Dépendances injectées au démarrage (voir cmd/server)
var (
	store  orders.Store
	engine *pay.Engine
	stripe *pay.StripeProvider
	sslcz  *pay.SSLCommerzProvider
)

func Setup(s orders.Store, e *pay.Engine, sp *pay.StripeProvider, sc *pay.SSLCommerzProvider) {
	store = s
	engine = e
	stripe = sp
	sslcz = sc
}

// payError traduit les erreurs paiement/commande en réponse {message, code}
func payError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Commande introuvable", "code": "ORDER_NOT_FOUND"})
	case errors.Is(err, orders.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"message": "Commande déjà payée", "code": "ALREADY_PAID"})
	case errors.Is(err, orders.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "code": "VALIDATION_ERROR"})
	case errors.Is(err, pay.ErrAmountMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "code": "AMOUNT_MISMATCH"})
	case errors.Is(err, pay.ErrSignatureInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Signature invalide", "code": "SIGNATURE_INVALID"})
	case errors.Is(err, pay.ErrProviderRejected):
		c.JSON(http.StatusBadGateway, gin.H{"message": err.Error(), "code": "PROVIDER_REJECTED"})
	case errors.Is(err, pay.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"message": "Prestataire de paiement injoignable", "code": "PROVIDER_UNAVAILABLE"})
	default:
		log.Println("❌ Erreur paiement:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur interne", "code": "INTERNAL"})
	}
}

// loadOwnedOrder charge la commande et vérifie propriétaire/admin + non payée
func loadOwnedOrder(c *gin.Context, orderID string) *models.Order {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Utilisateur non authentifié", "code": "UNAUTHENTICATED"})
		return nil
	}

	order, err := store.FindByID(c.Request.Context(), orderID)
	if err != nil {
		payError(c, err)
		return nil
	}
	if order.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"message": "Accès refusé", "code": "FORBIDDEN"})
		return nil
	}
	if order.PaymentStatus == models.PaymentCompleted {
		payError(c, orders.ErrAlreadyPaid)
		return nil
	}
	return order
}

func customerFromContext(c *gin.Context, order *models.Order) pay.CustomerInfo {
	cust := pay.CustomerInfo{Name: order.DeliveryAddress.Name}
	if cust.Name == "" {
		cust.Name = "Client"
	}
	if email, ok := c.Get("email"); ok {
		if addr, ok := email.(string); ok {
			cust.Email = addr
		}
	}
	return cust
}
