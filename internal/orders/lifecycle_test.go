package orders

import (
	"errors"
	"testing"

	"resto_back_end/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() CreateOrderInput {
	return CreateOrderInput{
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Poulet Tikka", Quantity: 2, Price: 8.99},
			{ProductID: "p2", Name: "Naan fromage", Quantity: 1, Price: 3.99},
		},
		Total:       23.97,
		DeliveryFee: 2.00,
		DeliveryAddress: models.DeliveryAddress{
			Name:    "Jean Dupont",
			Street:  "12 rue des Lilas",
			City:    "Lyon",
			State:   "Rhône",
			ZipCode: "69003",
		},
		PaymentMethod: models.MethodStripe,
	}
}

func TestBuildOrderOK(t *testing.T) {
	order, err := BuildOrder("user-1", validInput())
	require.NoError(t, err)

	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, models.PaymentUnset, order.PaymentStatus)
	assert.Empty(t, order.TransactionID)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 23.97, order.Total, 0.001)
}

func TestBuildOrderRejectsEmptyItems(t *testing.T) {
	in := validInput()
	in.Items = nil

	_, err := BuildOrder("user-1", in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildOrderRejectsBadQuantity(t *testing.T) {
	in := validInput()
	in.Items[0].Quantity = 0

	_, err := BuildOrder("user-1", in)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestBuildOrderRejectsNonPositiveTotal(t *testing.T) {
	for _, total := range []float64{0, -5} {
		in := validInput()
		in.Total = total

		_, err := BuildOrder("user-1", in)
		assert.ErrorIs(t, err, ErrValidation, "total=%v", total)
	}
}

// Chaque champ obligatoire de l'adresse est testé indépendamment
func TestBuildOrderRejectsMissingAddressFields(t *testing.T) {
	cases := map[string]func(*models.DeliveryAddress){
		"street":   func(a *models.DeliveryAddress) { a.Street = "" },
		"city":     func(a *models.DeliveryAddress) { a.City = "" },
		"state":    func(a *models.DeliveryAddress) { a.State = "" },
		"zip_code": func(a *models.DeliveryAddress) { a.ZipCode = "" },
	}

	for name, clear := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			clear(&in.DeliveryAddress)

			_, err := BuildOrder("user-1", in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBuildOrderAddressNameOptional(t *testing.T) {
	in := validInput()
	in.DeliveryAddress.Name = ""

	_, err := BuildOrder("user-1", in)
	assert.NoError(t, err)
}

func TestBuildOrderRejectsMissingOrUnknownMethod(t *testing.T) {
	in := validInput()
	in.PaymentMethod = ""
	_, err := BuildOrder("user-1", in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validInput()
	in.PaymentMethod = "cheque"
	_, err = BuildOrder("user-1", in)
	assert.ErrorIs(t, err, ErrValidation)
}

// Le total déclaré doit correspondre au total recalculé depuis les articles
// figés + frais de livraison, à la tolérance d'arrondi près
func TestBuildOrderRecomputesTotal(t *testing.T) {
	in := validInput()
	in.Total = 19.99 // manipulation de prix côté client

	_, err := BuildOrder("user-1", in)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)

	// À la limite de la tolérance : accepté
	in = validInput()
	in.Total = 23.98
	_, err = BuildOrder("user-1", in)
	assert.NoError(t, err)
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to string }{
		{models.StatusPending, models.StatusConfirmed},
		{models.StatusPending, models.StatusCancelled},
		{models.StatusConfirmed, models.StatusPreparing},
		{models.StatusConfirmed, models.StatusCancelled},
		{models.StatusPreparing, models.StatusDelivering},
		{models.StatusDelivering, models.StatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s → %s devrait être permis", tc.from, tc.to)
	}

	denied := []struct{ from, to string }{
		{models.StatusCancelled, models.StatusPending},
		{models.StatusCompleted, models.StatusPending},
		{models.StatusCompleted, models.StatusCancelled},
		{models.StatusPreparing, models.StatusCancelled},
		{models.StatusDelivering, models.StatusCancelled},
		{models.StatusPending, models.StatusCompleted},
		{models.StatusPending, "livré-par-drone"},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s → %s devrait être rejeté", tc.from, tc.to)
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{
		models.StatusPending, models.StatusConfirmed, models.StatusPreparing,
		models.StatusDelivering, models.StatusCompleted, models.StatusCancelled,
	} {
		assert.True(t, ValidStatus(s), s)
	}
	assert.False(t, ValidStatus("paid"))
	assert.False(t, ValidStatus(""))
}

func TestErrorsAreDistinct(t *testing.T) {
	for _, err := range []error{ErrNotFound, ErrForbidden, ErrInvalidTransition, ErrValidation, ErrAlreadyPaid} {
		assert.False(t, errors.Is(ErrNotFound, err) && err != ErrNotFound)
	}
}
