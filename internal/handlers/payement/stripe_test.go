package payement

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"resto_back_end/internal/config"
	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"
	pay "resto_back_end/internal/payement"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stripesdk "github.com/stripe/stripe-go/v83"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testWebhookSecret = "whsec_handler_test"

// webhookStore : Store minimal qui compte les mutations de paiement
type webhookStore struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	mutation int
}

func newWebhookStore() *webhookStore {
	return &webhookStore{orders: make(map[string]*models.Order)}
}

func (s *webhookStore) seed(order *models.Order) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *order
	s.orders[order.ID.Hex()] = &clone
	return order
}

func (s *webhookStore) mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutation
}

func (s *webhookStore) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	return order, nil
}

func (s *webhookStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *webhookStore) FindByTransactionID(ctx context.Context, tranID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if tranID != "" && order.TransactionID == tranID {
			clone := *order
			return &clone, nil
		}
	}
	return nil, orders.ErrNotFound
}

func (s *webhookStore) FindByOwner(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

func (s *webhookStore) FindAll(ctx context.Context) ([]models.Order, error) { return nil, nil }

func (s *webhookStore) AssignTransaction(ctx context.Context, id, tranID, method string) (*models.Order, error) {
	return nil, orders.ErrNotFound
}

func (s *webhookStore) ApplyPaymentOutcome(ctx context.Context, id, tranID, outcome string) (*models.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, false, orders.ErrNotFound
	}
	// Mêmes garde-fous que le store Mongo
	if tranID != "" && order.TransactionID != "" && order.TransactionID != tranID {
		return nil, false, fmt.Errorf("%w: transaction %q étrangère à la commande", orders.ErrValidation, tranID)
	}
	if order.PaymentStatus == models.PaymentCompleted {
		clone := *order
		return &clone, false, nil
	}
	order.PaymentStatus = outcome
	if outcome == models.PaymentCompleted && tranID != "" {
		order.TransactionID = tranID
	}
	s.mutation++
	clone := *order
	return &clone, true, nil
}

func (s *webhookStore) UpdateStatus(ctx context.Context, id, newStatus string) (*models.Order, error) {
	return nil, orders.ErrNotFound
}

func (s *webhookStore) Cancel(ctx context.Context, id string) (*models.Order, error) {
	return nil, orders.ErrNotFound
}

func (s *webhookStore) Delete(ctx context.Context, id string) error { return nil }

func setupWebhookRouter(t *testing.T) (*gin.Engine, *webhookStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := newWebhookStore()
	provider := pay.NewStripe(config.StripeConfig{WebhookSecret: testWebhookSecret})
	Setup(st, pay.NewEngine(st, nil), provider, nil)

	r := gin.New()
	r.POST("/api/payment/stripe/webhook", StripeWebhook)
	return r, st
}

func signedHeader(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func sessionCompletedPayload(orderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_h_1",
		"object": "event",
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_handler_1",
				"object": "checkout.session",
				"client_reference_id": %q,
				"payment_status": "paid"
			}
		}
	}`, stripesdk.APIVersion, orderID))
}

func postWebhook(r *gin.Engine, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/stripe/webhook", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookEndpointAppliesPayment(t *testing.T) {
	r, st := setupWebhookRouter(t)

	order := st.seed(&models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        "user-1",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	})

	payload := sessionCompletedPayload(order.ID.Hex())
	w := postWebhook(r, payload, signedHeader(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, st.mutations())

	updated, err := st.FindByID(context.Background(), order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCompleted, updated.PaymentStatus)
	assert.Equal(t, "cs_handler_1", updated.TransactionID)
}

// Signature invalide : réponse non-2xx et aucune écriture
func TestStripeWebhookEndpointRejectsBadSignature(t *testing.T) {
	r, st := setupWebhookRouter(t)

	order := st.seed(&models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        "user-1",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	})

	payload := sessionCompletedPayload(order.ID.Hex())
	w := postWebhook(r, payload, "t=1,v1=0000")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "SIGNATURE_INVALID")
	assert.Equal(t, 0, st.mutations())

	untouched, err := st.FindByID(context.Background(), order.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, untouched.PaymentStatus)
}

// Webhook signé pour une commande inexistante : loggé, abandonné, 200
func TestStripeWebhookEndpointUnknownOrderReturns200(t *testing.T) {
	r, st := setupWebhookRouter(t)

	payload := sessionCompletedPayload(primitive.NewObjectID().Hex())
	w := postWebhook(r, payload, signedHeader(testWebhookSecret, payload))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, st.mutations())
}

// Livraison rejouée : 200 les deux fois, une seule écriture effective
func TestStripeWebhookEndpointIdempotentRedelivery(t *testing.T) {
	r, st := setupWebhookRouter(t)

	order := st.seed(&models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        "user-1",
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	})

	payload := sessionCompletedPayload(order.ID.Hex())
	header := signedHeader(testWebhookSecret, payload)

	first := postWebhook(r, payload, header)
	second := postWebhook(r, payload, header)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, 1, st.mutations())
}
