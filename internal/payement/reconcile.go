package payement

import (
	"context"
	"errors"
	"fmt"
	"log"

	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"
)

// Engine : seule autorité habilitée à modifier payment_status/transaction_id
// d'une commande. Applique un PaymentEvent sous règles d'idempotence : une
// transaction marquée "completed" ne régresse jamais, et un doublon est un
// no-op réussi (la politique de retry du prestataire ne doit pas produire
// d'erreurs chez nous).
type Engine struct {
	store       orders.Store
	ledger      *Ledger
	onCompleted func(order *models.Order)
}

func NewEngine(store orders.Store, ledger *Ledger) *Engine {
	return &Engine{store: store, ledger: ledger}
}

// OnCompleted enregistre le hook de notifications (pubsub, e-mail) déclenché
// uniquement quand un paiement vient réellement d'aboutir
func (e *Engine) OnCompleted(fn func(order *models.Order)) {
	e.onCompleted = fn
}

// Apply résout la commande (par id, sinon par transaction id) puis applique
// l'issue en une écriture conditionnelle. Retourne (commande, appliqué, erreur).
// appliqué=false avec erreur nil ⇒ no-op idempotent, à traiter comme un succès.
func (e *Engine) Apply(ctx context.Context, event *PaymentEvent) (*models.Order, bool, error) {
	if event == nil {
		return nil, false, nil
	}
	if event.Outcome != OutcomeCompleted && event.Outcome != OutcomeFailed {
		return nil, false, nil
	}

	order, err := e.resolve(ctx, event)
	if errors.Is(err, orders.ErrNotFound) {
		// Pas de retry de notre côté : le prestataire renverra l'événement
		// selon sa propre politique si besoin
		log.Printf("⚠️ Événement %s/%s sans commande correspondante, ignoré",
			event.Provider, event.TransactionID)
		e.record(ctx, event, "", false)
		return nil, false, orders.ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	// Quand le prestataire a confirmé un montant, il doit être celui de la
	// commande résolue : un événement mal routé ne complète jamais une autre
	// commande
	if event.Outcome == OutcomeCompleted && event.Amount > 0 && event.Amount != minorUnits(order.Total) {
		log.Printf("🚫 Événement %s/%s : montant confirmé %d ≠ total commande %s (%d), rejeté",
			event.Provider, event.TransactionID, event.Amount, order.ID.Hex(), minorUnits(order.Total))
		e.record(ctx, event, order.ID.Hex(), false)
		return nil, false, fmt.Errorf("%w: %d centimes pour la commande %s", ErrAmountMismatch, event.Amount, order.ID.Hex())
	}

	updated, applied, err := e.store.ApplyPaymentOutcome(ctx, order.ID.Hex(), event.TransactionID, string(event.Outcome))
	if err != nil {
		return nil, false, err
	}

	e.record(ctx, event, order.ID.Hex(), applied)

	if !applied {
		log.Printf("🔁 Événement %s/%s déjà traité (paiement %s), no-op",
			event.Provider, event.TransactionID, updated.PaymentStatus)
		return updated, false, nil
	}

	log.Printf("✅ Paiement %s pour commande %s via %s (réf %s)",
		event.Outcome, updated.ID.Hex(), event.Provider, event.ProviderRef)

	if event.Outcome == OutcomeCompleted && e.onCompleted != nil {
		e.onCompleted(updated)
	}
	return updated, true, nil
}

func (e *Engine) resolve(ctx context.Context, event *PaymentEvent) (*models.Order, error) {
	if event.OrderID != "" {
		if order, err := e.store.FindByID(ctx, event.OrderID); err == nil {
			return order, nil
		}
	}
	return e.store.FindByTransactionID(ctx, event.TransactionID)
}

func (e *Engine) record(ctx context.Context, event *PaymentEvent, orderID string, applied bool) {
	if e.ledger != nil {
		e.ledger.Record(ctx, event, orderID, applied)
	}
}
