package handlers

import (
	"context"
	"log"
	"time"

	"resto_back_end/internal/database"
	"resto_back_end/internal/models"
	"resto_back_end/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotifyOrderPaid est branché sur le moteur de réconciliation : déclenché
// une seule fois par commande, quand le paiement vient réellement d'aboutir
func NotifyOrderPaid(order *models.Order) {
	publishOrderUpdate(order)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		oid, err := primitive.ObjectIDFromHex(order.UserID)
		if err != nil {
			return
		}
		var user models.User
		if err := database.Users().FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
			log.Println("⚠️ Utilisateur introuvable pour l'e-mail de confirmation:", err)
			return
		}

		html := utils.GenerateOrderConfirmationHTML(order)

		pdf, err := utils.RenderInvoicePDF(order.ID.Hex())
		if err != nil {
			log.Println("⚠️ Génération facture PDF échouée:", err)
			pdf = nil
		}

		if err := utils.SendEmail(user.Email, "Confirmation de votre commande", html, pdf); err != nil {
			log.Println("❌ Erreur envoi e-mail confirmation:", err)
		} else {
			log.Println("📧 E-mail de confirmation envoyé à", user.Email)
		}
	}()
}
