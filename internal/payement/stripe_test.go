package payement

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"resto_back_end/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stripe/stripe-go/v83"
)

const webhookSecret = "whsec_test_secret"

// signPayload fabrique un en-tête Stripe-Signature valide (t=...,v1=...) pour
// un payload donné, comme le ferait Stripe
func signPayload(secret string, ts time.Time, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedPayload(paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_abc",
				"object": "checkout.session",
				"client_reference_id": "64f000000000000000000001",
				"payment_status": %q,
				"metadata": {"order_id": "64f000000000000000000001"}
			}
		}
	}`, stripe.APIVersion, paymentStatus))
}

func TestStripeWebhookValidSignature(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("paid")

	event, err := provider.HandleWebhook(payload, signPayload(webhookSecret, time.Now(), payload))
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, OutcomeCompleted, event.Outcome)
	assert.Equal(t, "cs_test_abc", event.TransactionID)
	assert.Equal(t, "64f000000000000000000001", event.OrderID)
}

// Signature invérifiable ⇒ échec fermé : aucun événement ne doit sortir
func TestStripeWebhookInvalidSignature(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("paid")

	event, err := provider.HandleWebhook(payload, "t=123,v1=deadbeef")
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Nil(t, event)
}

// Payload altéré après signature : la signature ne correspond plus
func TestStripeWebhookTamperedPayload(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("paid")
	header := signPayload(webhookSecret, time.Now(), payload)

	tampered := checkoutCompletedPayload("unpaid")
	event, err := provider.HandleWebhook(tampered, header)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Nil(t, event)
}

func TestStripeWebhookWrongSecret(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("paid")

	event, err := provider.HandleWebhook(payload, signPayload("whsec_autre", time.Now(), payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Nil(t, event)
}

// Horodatage trop ancien : rejeté par la fenêtre de tolérance
func TestStripeWebhookStaleTimestamp(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("paid")

	stale := time.Now().Add(-time.Hour)
	event, err := provider.HandleWebhook(payload, signPayload(webhookSecret, stale, payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Nil(t, event)
}

// Secret non configuré ⇒ échec fermé, jamais de traitement sans vérification
func TestStripeWebhookMissingSecretFailsClosed(t *testing.T) {
	provider := NewStripe(config.StripeConfig{})
	payload := checkoutCompletedPayload("paid")

	event, err := provider.HandleWebhook(payload, signPayload(webhookSecret, time.Now(), payload))
	assert.ErrorIs(t, err, ErrSignatureInvalid)
	assert.Nil(t, event)
}

// Session signée mais pas encore encaissée : pas d'événement terminal
func TestStripeWebhookUnpaidSessionIgnored(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := checkoutCompletedPayload("unpaid")

	event, err := provider.HandleWebhook(payload, signPayload(webhookSecret, time.Now(), payload))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestStripeWebhookIgnoresOtherEventTypes(t *testing.T) {
	provider := NewStripe(config.StripeConfig{WebhookSecret: webhookSecret})
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_test_2",
		"object": "event",
		"api_version": %q,
		"type": "invoice.paid",
		"data": {"object": {"id": "in_test_1", "object": "invoice"}}
	}`, stripe.APIVersion))

	event, err := provider.HandleWebhook(payload, signPayload(webhookSecret, time.Now(), payload))
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2397), minorUnits(23.97))
	assert.Equal(t, int64(1550), minorUnits(15.50))
	// 19.99 n'est pas représentable exactement en flottant : l'arrondi corrige
	assert.Equal(t, int64(1999), minorUnits(19.99))
	assert.Equal(t, int64(0), minorUnits(0))
}
