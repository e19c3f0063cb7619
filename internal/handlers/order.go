package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"resto_back_end/internal/middleware"
	"resto_back_end/internal/orders"

	"github.com/gin-gonic/gin"
)

// OrderStore : store injecté au démarrage (voir cmd/server)
var OrderStore orders.Store

func SetupOrders(store orders.Store) {
	OrderStore = store
}

// orderError traduit les erreurs du package orders en réponse HTTP
func orderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, orders.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
	case errors.Is(err, orders.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orders.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Println("❌ Erreur commande:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}

// CreateOrder crée une commande : articles figés, total recalculé côté serveur
func CreateOrder(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input orders.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	order, err := orders.BuildOrder(userID, input)
	if err != nil {
		orderError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := OrderStore.Insert(ctx, order)
	if err != nil {
		orderError(c, err)
		return
	}

	log.Printf("🧾 Commande %s créée pour user %s (%.2f€)", created.ID.Hex(), userID, created.Total)
	c.JSON(http.StatusCreated, created)
}

// GetOrder retourne une commande (propriétaire ou admin uniquement)
func GetOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	order, err := OrderStore.FindByID(ctx, c.Param("id"))
	if err != nil {
		orderError(c, err)
		return
	}
	if order.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetMyOrders liste les commandes de l'utilisateur connecté
func GetMyOrders(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	list, err := OrderStore.FindByOwner(ctx, userID)
	if err != nil {
		orderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// GetAllOrders liste toutes les commandes (admin)
func GetAllOrders(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	list, err := OrderStore.FindAll(ctx)
	if err != nil {
		orderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// UpdateOrderStatus fait avancer la préparation (admin) : la cible doit être
// dans la table des transitions, sinon rejet
func UpdateOrderStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut requis"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	order, err := OrderStore.UpdateStatus(ctx, c.Param("id"), input.Status)
	if err != nil {
		orderError(c, err)
		return
	}

	publishOrderUpdate(order)
	c.JSON(http.StatusOK, order)
}

// CancelOrder annule une commande encore en attente (propriétaire ou admin)
func CancelOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := OrderStore.FindByID(ctx, c.Param("id"))
	if err != nil {
		orderError(c, err)
		return
	}
	if existing.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	order, err := OrderStore.Cancel(ctx, c.Param("id"))
	if err != nil {
		orderError(c, err)
		return
	}

	publishOrderUpdate(order)
	c.JSON(http.StatusOK, order)
}

// DeleteOrder supprime une commande annulée (propriétaire ou admin)
func DeleteOrder(c *gin.Context) {
	userID := c.GetString("user_id")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	existing, err := OrderStore.FindByID(ctx, c.Param("id"))
	if err != nil {
		orderError(c, err)
		return
	}
	if existing.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	if err := OrderStore.Delete(ctx, c.Param("id")); err != nil {
		orderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
