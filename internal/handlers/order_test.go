package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"resto_back_end/internal/models"
	"resto_back_end/internal/orders"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeOrderStore : Store en mémoire aux mêmes garanties conditionnelles que
// l'implémentation Mongo (annulation depuis "pending" uniquement, suppression
// depuis "cancelled" uniquement)
type fakeOrderStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.Order)}
}

func (s *fakeOrderStore) seed(order *models.Order) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	clone := *order
	s.orders[order.ID.Hex()] = &clone
	return order
}

func (s *fakeOrderStore) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = primitive.NewObjectID()
	s.seed(order)
	return order, nil
}

func (s *fakeOrderStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (s *fakeOrderStore) FindByTransactionID(ctx context.Context, tranID string) (*models.Order, error) {
	return nil, orders.ErrNotFound
}

func (s *fakeOrderStore) FindByOwner(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}

func (s *fakeOrderStore) FindAll(ctx context.Context) ([]models.Order, error) { return nil, nil }

func (s *fakeOrderStore) AssignTransaction(ctx context.Context, id, tranID, method string) (*models.Order, error) {
	return nil, orders.ErrNotFound
}

func (s *fakeOrderStore) ApplyPaymentOutcome(ctx context.Context, id, tranID, outcome string) (*models.Order, bool, error) {
	return nil, false, orders.ErrNotFound
}

func (s *fakeOrderStore) UpdateStatus(ctx context.Context, id, newStatus string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if !orders.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: statut inconnu %q", orders.ErrInvalidTransition, newStatus)
	}
	if !orders.CanTransition(order.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s → %s", orders.ErrInvalidTransition, order.Status, newStatus)
	}
	order.Status = newStatus
	clone := *order
	return &clone, nil
}

func (s *fakeOrderStore) Cancel(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	if order.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: annulation impossible depuis %q", orders.ErrInvalidTransition, order.Status)
	}
	order.Status = models.StatusCancelled
	clone := *order
	return &clone, nil
}

func (s *fakeOrderStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	if order.Status != models.StatusCancelled {
		return fmt.Errorf("%w: suppression impossible depuis %q", orders.ErrInvalidTransition, order.Status)
	}
	delete(s.orders, id)
	return nil
}

// setupOrderRouter monte les routes commandes avec un user authentifié simulé
func setupOrderRouter(t *testing.T, userID string) (*gin.Engine, *fakeOrderStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := newFakeOrderStore()
	SetupOrders(st)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.POST("/api/orders/:id/cancel", CancelOrder)
	r.DELETE("/api/orders/:id", DeleteOrder)
	return r, st
}

func doRequest(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedOrderWithStatus(st *fakeOrderStore, userID, status string) *models.Order {
	return st.seed(&models.Order{
		ID:            primitive.NewObjectID(),
		UserID:        userID,
		Total:         23.97,
		Status:        status,
		PaymentStatus: models.PaymentPending,
	})
}

// L'annulation n'est permise que depuis "pending"
func TestCancelOrderOnlyFromPending(t *testing.T) {
	cases := []struct {
		status   string
		wantCode int
	}{
		{models.StatusPending, http.StatusOK},
		{models.StatusConfirmed, http.StatusBadRequest},
		{models.StatusPreparing, http.StatusBadRequest},
		{models.StatusDelivering, http.StatusBadRequest},
		{models.StatusCompleted, http.StatusBadRequest},
		{models.StatusCancelled, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			r, st := setupOrderRouter(t, "user-1")
			order := seedOrderWithStatus(st, "user-1", tc.status)

			w := doRequest(r, http.MethodPost, "/api/orders/"+order.ID.Hex()+"/cancel")
			assert.Equal(t, tc.wantCode, w.Code)

			reloaded, err := st.FindByID(context.Background(), order.ID.Hex())
			require.NoError(t, err)
			if tc.wantCode == http.StatusOK {
				assert.Equal(t, models.StatusCancelled, reloaded.Status)
			} else {
				assert.Equal(t, tc.status, reloaded.Status, "le statut ne doit pas bouger sur un refus")
			}
		})
	}
}

// La suppression n'est permise que depuis "cancelled"
func TestDeleteOrderOnlyFromCancelled(t *testing.T) {
	cases := []struct {
		status   string
		wantCode int
	}{
		{models.StatusPending, http.StatusBadRequest},
		{models.StatusConfirmed, http.StatusBadRequest},
		{models.StatusPreparing, http.StatusBadRequest},
		{models.StatusDelivering, http.StatusBadRequest},
		{models.StatusCompleted, http.StatusBadRequest},
		{models.StatusCancelled, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			r, st := setupOrderRouter(t, "user-1")
			order := seedOrderWithStatus(st, "user-1", tc.status)

			w := doRequest(r, http.MethodDelete, "/api/orders/"+order.ID.Hex())
			assert.Equal(t, tc.wantCode, w.Code)

			_, err := st.FindByID(context.Background(), order.ID.Hex())
			if tc.wantCode == http.StatusOK {
				assert.ErrorIs(t, err, orders.ErrNotFound)
			} else {
				assert.NoError(t, err, "la commande doit survivre à un refus")
			}
		})
	}
}

// Annuler puis supprimer est le seul enchaînement complet autorisé
func TestCancelThenDeleteOrder(t *testing.T) {
	r, st := setupOrderRouter(t, "user-1")
	order := seedOrderWithStatus(st, "user-1", models.StatusPending)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/orders/"+order.ID.Hex()+"/cancel").Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodDelete, "/api/orders/"+order.ID.Hex()).Code)

	_, err := st.FindByID(context.Background(), order.ID.Hex())
	assert.ErrorIs(t, err, orders.ErrNotFound)
}

// Un utilisateur ne peut ni annuler ni supprimer la commande d'un autre
func TestCancelAndDeleteRequireOwnership(t *testing.T) {
	r, st := setupOrderRouter(t, "user-2")
	pending := seedOrderWithStatus(st, "user-1", models.StatusPending)
	cancelled := seedOrderWithStatus(st, "user-1", models.StatusCancelled)

	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodPost, "/api/orders/"+pending.ID.Hex()+"/cancel").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(r, http.MethodDelete, "/api/orders/"+cancelled.ID.Hex()).Code)

	reloaded, err := st.FindByID(context.Background(), pending.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reloaded.Status)
}

func TestCancelUnknownOrderReturns404(t *testing.T) {
	r, _ := setupOrderRouter(t, "user-1")

	w := doRequest(r, http.MethodPost, "/api/orders/"+primitive.NewObjectID().Hex()+"/cancel")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
