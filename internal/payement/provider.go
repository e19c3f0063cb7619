package payement

import (
	"context"
	"errors"
	"math"

	"resto_back_end/internal/models"
)

// Erreurs des prestataires de paiement
var (
	ErrProviderRejected    = errors.New("paiement refusé par le prestataire")
	ErrProviderUnavailable = errors.New("prestataire de paiement injoignable")
	ErrSignatureInvalid    = errors.New("signature de webhook invalide")
	ErrAmountMismatch      = errors.New("montant confirmé différent du total de la commande")
)

// Outcome : résultat d'un paiement vu par un prestataire
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Session : contexte de paiement hébergé chez le prestataire, créé par commande
type Session struct {
	TransactionID string `json:"transaction_id"`
	SessionID     string `json:"session_id"`
	RedirectURL   string `json:"redirect_url"`
}

// PaymentEvent : événement interne commun, quel que soit le canal d'origine
// (webhook signé, callback de redirection, IPN, vérification explicite)
type PaymentEvent struct {
	Provider      string  `json:"provider"`
	OrderID       string  `json:"order_id,omitempty"` // vide quand le canal ne porte que le transaction id
	TransactionID string  `json:"transaction_id"`
	Outcome       Outcome `json:"outcome"`
	ProviderRef   string  `json:"provider_ref,omitempty"`
	Amount        int64   `json:"amount,omitempty"` // centimes confirmés par le prestataire, 0 = inconnu
}

// MatchesOrder vérifie que l'événement ne désigne pas une autre commande que
// celle attendue (un événement sans order id reste acceptable : il sera résolu
// par transaction id)
func (e *PaymentEvent) MatchesOrder(orderID string) bool {
	return e.OrderID == "" || e.OrderID == orderID
}

// CustomerInfo : coordonnées transmises au prestataire à la création de session
type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Provider : capacités communes des deux intégrations. Les callbacks gardent
// leur forme propre (webhook signé côté Stripe, redirections + IPN côté
// SSLCommerz) et sont exposés sur chaque type concret.
type Provider interface {
	Name() string

	// CreateSession ouvre un checkout chez le prestataire pour une commande
	// dont le paiement n'est pas déjà terminé. Ne mutate pas la commande :
	// l'appelant fixe transaction_id/payment_method via le Store.
	CreateSession(ctx context.Context, order *models.Order, cust CustomerInfo) (*Session, error)

	// VerifySession interroge le prestataire (lecture seule) ; le résultat
	// doit être passé au moteur de réconciliation pour toute mutation.
	VerifySession(ctx context.Context, ref string) (*PaymentEvent, error)
}

// minorUnits convertit un montant décimal en centimes entiers
// (les prestataires travaillent en plus petite unité monétaire)
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
