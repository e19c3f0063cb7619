package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"resto_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

// SendEmail envoie un e-mail HTML avec pièce jointe PDF optionnelle
func SendEmail(to, subject, htmlBody string, pdfAttachment []byte) error {
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@resto.example"
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if pdfAttachment != nil {
		msg.AttachReader("facture.pdf", bytes.NewReader(pdfAttachment))
	}

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande payée
func GenerateOrderConfirmationHTML(order *models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%.2f€</td>
				<td>%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Merci pour votre commande ! 🍽️</h2>
	<p>Votre paiement a bien été reçu. Commande n° <strong>%s</strong>.</p>
	<table border="1" cellpadding="8" cellspacing="0">
		<tr><th>Plat</th><th>Qté</th><th>Prix</th><th>Sous-total</th></tr>
		%s
		<tr><td colspan="3"><strong>Livraison</strong></td><td>%.2f€</td></tr>
		<tr><td colspan="3"><strong>Total</strong></td><td><strong>%.2f€</strong></td></tr>
	</table>
	<p>Livraison : %s, %s %s</p>
	<p>Vous pouvez suivre la préparation depuis votre espace client.</p>
</body>
</html>`, order.ID.Hex(), itemsHTML, order.DeliveryFee, order.Total,
		order.DeliveryAddress.Street, order.DeliveryAddress.ZipCode, order.DeliveryAddress.City)
}

// GenerateReservationHTML génère le HTML de confirmation de réservation,
// QR d'accueil inclus
func GenerateReservationHTML(resa *models.Reservation, qrBase64 string) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
	<h2>Réservation confirmée 🎉</h2>
	<p>Table pour <strong>%d</strong> le <strong>%s</strong> à <strong>%s</strong>, au nom de %s.</p>
	<p>Référence : <strong>%s</strong></p>
	<p>Présentez ce code à l'accueil :</p>
	<img src="%s" alt="QR réservation" />
</body>
</html>`, resa.Guests, resa.Date, resa.Slot, resa.Name, resa.Reference, qrBase64)
}
