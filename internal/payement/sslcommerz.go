package payement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"resto_back_end/internal/config"
	"resto_back_end/internal/models"

	"github.com/google/uuid"
)

// SSLCommerzProvider : passerelle à redirection (success/fail/cancel + IPN).
// Pas de webhook signé : les notifications sont des POST formulaire non signés,
// donc toute complétion est confirmée via l'API de validation serveur-à-serveur
// avant d'être réconciliée.
type SSLCommerzProvider struct {
	cfg    config.SSLCommerzConfig
	client *http.Client
}

func NewSSLCommerz(cfg config.SSLCommerzConfig) *SSLCommerzProvider {
	return &SSLCommerzProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *SSLCommerzProvider) Name() string { return models.MethodSSLCommerz }

// Réponse de l'API de création de session
type sslczSessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// CreateSession ouvre une session de paiement : un tran_id frais (uuid) sert
// de clé d'idempotence, l'order id voyage dans value_a pour les callbacks
func (p *SSLCommerzProvider) CreateSession(ctx context.Context, order *models.Order, cust CustomerInfo) (*Session, error) {
	tranID := uuid.NewString()
	orderID := order.ID.Hex()

	productNames := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		productNames = append(productNames, item.Name)
	}

	form := url.Values{}
	form.Set("store_id", p.cfg.StoreID)
	form.Set("store_passwd", p.cfg.StorePassword)
	// Montant reformaté depuis les centimes pour éviter toute dérive flottante
	form.Set("total_amount", fmt.Sprintf("%.2f", float64(minorUnits(order.Total))/100))
	form.Set("currency", "EUR")
	form.Set("tran_id", tranID)
	form.Set("success_url", p.cfg.SuccessURL)
	form.Set("fail_url", p.cfg.FailURL)
	form.Set("cancel_url", p.cfg.CancelURL)
	form.Set("ipn_url", p.cfg.IPNURL)
	form.Set("value_a", orderID)
	form.Set("cus_name", cust.Name)
	form.Set("cus_email", cust.Email)
	form.Set("cus_phone", cust.Phone)
	form.Set("cus_add1", order.DeliveryAddress.Street)
	form.Set("cus_city", order.DeliveryAddress.City)
	form.Set("cus_state", order.DeliveryAddress.State)
	form.Set("cus_postcode", order.DeliveryAddress.ZipCode)
	form.Set("cus_country", "France")
	form.Set("shipping_method", "Courier")
	form.Set("num_of_item", strconv.Itoa(len(order.Items)))
	form.Set("product_name", strings.Join(productNames, ", "))
	form.Set("product_category", "Food")
	form.Set("product_profile", "physical-goods")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.SessionURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.transportError(err)
	}
	defer resp.Body.Close()

	var body sslczSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: réponse illisible", ErrProviderUnavailable)
	}

	if !strings.EqualFold(body.Status, "SUCCESS") {
		reason := body.FailedReason
		if reason == "" {
			reason = "raison inconnue"
		}
		return nil, fmt.Errorf("%w: %s", ErrProviderRejected, reason)
	}

	log.Printf("💳 Session SSLCommerz créée : %s (tran %s) pour commande %s", body.SessionKey, tranID, orderID)
	return &Session{
		TransactionID: tranID,
		SessionID:     body.SessionKey,
		RedirectURL:   body.GatewayPageURL,
	}, nil
}

// Réponse de l'API de validation
type sslczValidationResponse struct {
	Status string `json:"status"` // VALID, VALIDATED, INVALID...
	TranID string `json:"tran_id"`
	Amount string `json:"amount"`
	ValID  string `json:"val_id"`
}

// VerifySession confirme un val_id auprès du validateur. Un statut autre que
// VALID/VALIDATED ne produit jamais d'événement "completed".
func (p *SSLCommerzProvider) VerifySession(ctx context.Context, valID string) (*PaymentEvent, error) {
	if valID == "" {
		return nil, fmt.Errorf("%w: val_id manquant", ErrProviderRejected)
	}

	q := url.Values{}
	q.Set("val_id", valID)
	q.Set("store_id", p.cfg.StoreID)
	q.Set("store_passwd", p.cfg.StorePassword)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.ValidationURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, p.transportError(err)
	}
	defer resp.Body.Close()

	var body sslczValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: réponse de validation illisible", ErrProviderUnavailable)
	}

	switch strings.ToUpper(body.Status) {
	case "VALID", "VALIDATED":
		event := &PaymentEvent{
			Provider:      p.Name(),
			TransactionID: body.TranID,
			Outcome:       OutcomeCompleted,
			ProviderRef:   valID,
		}
		// Le montant confirmé par le validateur voyage avec l'événement pour
		// le recoupement du moteur
		if amount, err := strconv.ParseFloat(body.Amount, 64); err == nil && amount > 0 {
			event.Amount = minorUnits(amount)
		}
		return event, nil
	default:
		return nil, fmt.Errorf("%w: validation %q", ErrProviderRejected, body.Status)
	}
}

// ParseCallback traduit un POST formulaire (redirection ou IPN) en événement.
// Canal non signé, donc basse confiance : l'appelant doit confirmer tout
// succès via VerifySession avant de réconcilier.
func (p *SSLCommerzProvider) ParseCallback(form url.Values) (*PaymentEvent, error) {
	tranID := form.Get("tran_id")
	if tranID == "" {
		return nil, fmt.Errorf("%w: tran_id manquant dans le callback", ErrProviderRejected)
	}

	event := &PaymentEvent{
		Provider:      p.Name(),
		OrderID:       form.Get("value_a"),
		TransactionID: tranID,
		ProviderRef:   form.Get("val_id"),
	}

	switch strings.ToUpper(form.Get("status")) {
	case "VALID", "VALIDATED":
		event.Outcome = OutcomeCompleted
	case "FAILED":
		event.Outcome = OutcomeFailed
	default:
		// CANCELLED et autres : pas d'issue terminale
		event.Outcome = OutcomePending
	}
	return event, nil
}

func (p *SSLCommerzProvider) transportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: délai dépassé", ErrProviderUnavailable)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: délai dépassé", ErrProviderUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
