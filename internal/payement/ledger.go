package payement

import (
	"context"
	"log"
	"time"

	"github.com/gocql/gocql"
)

// Ledger : journal append-only des événements de paiement dans ScyllaDB.
// Chaque événement reçu y est tracé, appliqué ou non : la piste d'audit
// permet de prouver qu'une transaction n'a été comptée qu'une fois.
// L'écriture est best-effort : une panne du journal ne doit pas faire échouer
// la réconciliation.
type Ledger struct {
	session *gocql.Session
}

// NewLedger accepte une session nil (journal désactivé)
func NewLedger(session *gocql.Session) *Ledger {
	if session == nil {
		return nil
	}
	return &Ledger{session: session}
}

func (l *Ledger) Record(ctx context.Context, event *PaymentEvent, orderID string, applied bool) {
	if l == nil || l.session == nil {
		return
	}

	err := l.session.Query(
		`INSERT INTO payment_events (transaction_id, event_time, provider, order_id, outcome, provider_ref, applied)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.TransactionID, time.Now(), event.Provider, orderID,
		string(event.Outcome), event.ProviderRef, applied,
	).WithContext(ctx).Exec()
	if err != nil {
		log.Printf("⚠️ Écriture journal paiement échouée (tran %s): %v", event.TransactionID, err)
	}
}
