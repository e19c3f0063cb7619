package config

import (
	"os"
	"time"
)

// StripeConfig regroupe les identifiants Stripe, construits une seule fois au
// démarrage et passé explicitement aux adaptateurs (pas de config globale mutable)
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

// SSLCommerzConfig : identifiants et URLs de la passerelle SSLCommerz
type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	SessionURL    string // API de création de session
	ValidationURL string // API de validation serveur-à-serveur
	SuccessURL    string
	FailURL       string
	CancelURL     string
	IPNURL        string
	Timeout       time.Duration
}

// FrontendURL : base des redirections navigateur après paiement
func FrontendURL() string {
	if url := os.Getenv("FRONTEND_URL"); url != "" {
		return url
	}
	return "http://localhost:3000"
}

func LoadStripe() StripeConfig {
	currency := os.Getenv("STRIPE_CURRENCY")
	if currency == "" {
		currency = "eur"
	}
	front := FrontendURL()
	return StripeConfig{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:      currency,
		SuccessURL:    front + "/commande/succes?order_id={ORDER_ID}",
		CancelURL:     front + "/commande/annulee?order_id={ORDER_ID}",
	}
}

func LoadSSLCommerz() SSLCommerzConfig {
	sessionURL := os.Getenv("SSLCZ_SESSION_URL")
	if sessionURL == "" {
		sessionURL = "https://sandbox.sslcommerz.com/gwprocess/v4/api.php"
	}
	validationURL := os.Getenv("SSLCZ_VALIDATION_URL")
	if validationURL == "" {
		validationURL = "https://sandbox.sslcommerz.com/validator/api/validationserverAPI.php"
	}
	base := os.Getenv("BASE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	return SSLCommerzConfig{
		StoreID:       os.Getenv("SSLCZ_STORE_ID"),
		StorePassword: os.Getenv("SSLCZ_STORE_PASSWORD"),
		SessionURL:    sessionURL,
		ValidationURL: validationURL,
		SuccessURL:    base + "/api/payment/sslcz/success",
		FailURL:       base + "/api/payment/sslcz/fail",
		CancelURL:     base + "/api/payment/sslcz/cancel",
		IPNURL:        base + "/api/payment/sslcz/ipn",
		Timeout:       10 * time.Second,
	}
}
