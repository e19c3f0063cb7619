package payement

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"resto_back_end/internal/config"
	"resto_back_end/internal/models"

	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
	"github.com/stripe/stripe-go/v83/webhook"
)

// StripeProvider : intégration Stripe Checkout (sessions hébergées + webhook signé)
type StripeProvider struct {
	cfg config.StripeConfig
}

func NewStripe(cfg config.StripeConfig) *StripeProvider {
	return &StripeProvider{cfg: cfg}
}

func (p *StripeProvider) Name() string { return models.MethodStripe }

// CreateSession crée une session Checkout avec une ligne par article figé
// (montants en centimes) plus une ligne de frais de livraison
func (p *StripeProvider) CreateSession(ctx context.Context, order *models.Order, cust CustomerInfo) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items)+1)
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.cfg.Currency),
				UnitAmount: stripe.Int64(minorUnits(item.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	if order.DeliveryFee > 0 {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(p.cfg.Currency),
				UnitAmount: stripe.Int64(minorUnits(order.DeliveryFee)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Frais de livraison"),
				},
			},
		})
	}

	orderID := order.ID.Hex()
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(strings.ReplaceAll(p.cfg.SuccessURL, "{ORDER_ID}", orderID)),
		CancelURL:         stripe.String(strings.ReplaceAll(p.cfg.CancelURL, "{ORDER_ID}", orderID)),
		ClientReferenceID: stripe.String(orderID),
	}
	if cust.Email != "" {
		params.CustomerEmail = stripe.String(cust.Email)
	}
	params.Context = ctx
	params.AddMetadata("order_id", orderID)
	params.AddMetadata("user_id", order.UserID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return nil, fmt.Errorf("%w: %s", ErrProviderRejected, stripeErr.Msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	log.Printf("💳 Session Stripe créée : %s pour commande %s", sess.ID, orderID)
	return &Session{
		TransactionID: sess.ID,
		SessionID:     sess.ID,
		RedirectURL:   sess.URL,
	}, nil
}

// VerifySession relit la session chez Stripe en lecture seule, la mutation de
// la commande passe par le moteur de réconciliation
func (p *StripeProvider) VerifySession(ctx context.Context, sessionID string) (*PaymentEvent, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := checkoutsession.Get(sessionID, params)
	if err != nil {
		if stripeErr, ok := err.(*stripe.Error); ok {
			return nil, fmt.Errorf("%w: %s", ErrProviderRejected, stripeErr.Msg)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	event := &PaymentEvent{
		Provider:      p.Name(),
		OrderID:       sess.ClientReferenceID,
		TransactionID: sess.ID,
		Outcome:       OutcomePending,
		Amount:        sess.AmountTotal,
	}
	if sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		event.Outcome = OutcomeCompleted
	}
	if sess.PaymentIntent != nil {
		event.ProviderRef = sess.PaymentIntent.ID
	}
	return event, nil
}

// HandleWebhook vérifie la signature du payload brut et traduit l'événement
// Stripe en événement interne. Signature invérifiable ⇒ échec fermé : aucune
// mutation d'état ne doit suivre.
func (p *StripeProvider) HandleWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	if p.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("%w: STRIPE_WEBHOOK_SECRET non configuré", ErrSignatureInvalid)
	}

	event, err := webhook.ConstructEvent(payload, signature, p.cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("décodage session webhook: %w", err)
		}
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			// Paiement asynchrone pas encore encaissé : on attend l'événement suivant
			log.Printf("ℹ️ Session %s reçue mais non payée (%s), on attend", sess.ID, sess.PaymentStatus)
			return nil, nil
		}
		pe := &PaymentEvent{
			Provider:      p.Name(),
			OrderID:       sess.ClientReferenceID,
			TransactionID: sess.ID,
			Outcome:       OutcomeCompleted,
			Amount:        sess.AmountTotal,
		}
		if pe.OrderID == "" {
			pe.OrderID = sess.Metadata["order_id"]
		}
		if sess.PaymentIntent != nil {
			pe.ProviderRef = sess.PaymentIntent.ID
		}
		return pe, nil
	default:
		log.Printf("ℹ️ Événement Stripe ignoré : %s", event.Type)
		return nil, nil
	}
}
