package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/middleware"
	"resto_back_end/internal/models"
	"resto_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	slotRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// slotCapacity : nombre de tables par créneau
func slotCapacity() int64 {
	if v := os.Getenv("RESERVATION_CAPACITY"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 20
}

func slotKey(date, slot string) string {
	return fmt.Sprintf("resa:%s:%s", date, slot)
}

// CreateReservation réserve une table : compteur Redis atomique contre la
// capacité fixe du créneau, avec restitution en cas de dépassement
func CreateReservation(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input struct {
		Date   string `json:"date" binding:"required"`
		Slot   string `json:"slot" binding:"required"`
		Guests int    `json:"guests" binding:"required"`
		Name   string `json:"name" binding:"required"`
		Phone  string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	if !dateRe.MatchString(input.Date) || !slotRe.MatchString(input.Slot) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date ou créneau invalide (AAAA-MM-JJ / HH:MM)"})
		return
	}
	if input.Guests < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nombre de convives invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Réservation du créneau : INCR atomique, rollback si plein
	key := slotKey(input.Date, input.Slot)
	count, err := database.Redis.Incr(ctx, key).Result()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur réservation créneau"})
		return
	}
	database.Redis.Expire(ctx, key, 60*24*time.Hour)

	if count > slotCapacity() {
		database.Redis.Decr(ctx, key)
		c.JSON(http.StatusConflict, gin.H{"error": "Créneau complet", "date": input.Date, "slot": input.Slot})
		return
	}

	reference := strings.ToUpper(uuid.NewString()[:8])
	resa := models.Reservation{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Reference: reference,
		Date:      input.Date,
		Slot:      input.Slot,
		Guests:    input.Guests,
		Name:      input.Name,
		Phone:     input.Phone,
		Status:    models.ReservationConfirmed,
		CreatedAt: time.Now(),
	}

	if _, err := database.Reservations().InsertOne(ctx, resa); err != nil {
		database.Redis.Decr(ctx, key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur enregistrement réservation"})
		return
	}

	qr, err := utils.GenerateReservationQR(reference, input.Date, input.Slot)
	if err != nil {
		log.Println("⚠️ Génération QR échouée:", err)
	}

	if email, ok := c.Get("email"); ok {
		if addr, ok := email.(string); ok && addr != "" {
			go func() {
				html := utils.GenerateReservationHTML(&resa, qr)
				if err := utils.SendEmail(addr, "Votre réservation est confirmée", html, nil); err != nil {
					log.Println("❌ Erreur envoi e-mail réservation:", err)
				}
			}()
		}
	}

	log.Printf("🍽️ Réservation %s : %s %s, %d convives", reference, input.Date, input.Slot, input.Guests)
	c.JSON(http.StatusCreated, gin.H{"reservation": resa, "qr": qr})
}

// GetMyReservations liste les réservations de l'utilisateur connecté
func GetMyReservations(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "slot", Value: 1}})
	cursor, err := database.Reservations().Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération réservations"})
		return
	}
	defer cursor.Close(ctx)

	var list []models.Reservation
	if err := cursor.All(ctx, &list); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

// GetAllReservations liste les réservations d'une journée (admin)
func GetAllReservations(c *gin.Context) {
	filter := bson.M{}
	if date := c.Query("date"); date != "" {
		filter["date"] = date
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "slot", Value: 1}})
	cursor, err := database.Reservations().Find(ctx, filter, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération réservations"})
		return
	}
	defer cursor.Close(ctx)

	var list []models.Reservation
	if err := cursor.All(ctx, &list); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

// CancelReservation annule et libère le créneau (propriétaire ou admin)
func CancelReservation(c *gin.Context) {
	userID := c.GetString("user_id")
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var resa models.Reservation
	if err := database.Reservations().FindOne(ctx, bson.M{"_id": oid}).Decode(&resa); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Réservation introuvable"})
		return
	}
	if resa.UserID != userID && !middleware.IsAdmin(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}
	if resa.Status == models.ReservationCancelled {
		c.JSON(http.StatusOK, gin.H{"cancelled": true})
		return
	}

	_, err = database.Reservations().UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": models.ReservationCancelled}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur annulation"})
		return
	}

	// Libérer la place du créneau
	database.Redis.Decr(ctx, slotKey(resa.Date, resa.Slot))

	log.Printf("🪑 Réservation %s annulée (%s %s)", resa.Reference, resa.Date, resa.Slot)
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
