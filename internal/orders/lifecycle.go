package orders

import (
	"errors"
	"fmt"
	"math"

	"resto_back_end/internal/models"
)

// Erreurs du cycle de vie des commandes
var (
	ErrNotFound          = errors.New("commande introuvable")
	ErrForbidden         = errors.New("accès refusé")
	ErrInvalidTransition = errors.New("transition de statut invalide")
	ErrValidation        = errors.New("données invalides")
)

// Table des transitions de préparation autorisées. Tout ce qui n'y figure pas
// est rejeté, y compris pour un admin.
var transitions = map[string][]string{
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusPreparing, models.StatusCancelled},
	models.StatusPreparing:  {models.StatusDelivering},
	models.StatusDelivering: {models.StatusCompleted},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

// ValidStatus indique si un statut appartient à l'énumération fermée
func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition vérifie qu'un passage from → to est dans la table
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CreateOrderInput : payload de création d'une commande
type CreateOrderInput struct {
	Items           []models.OrderItem     `json:"items"`
	Total           float64                `json:"total"`
	DeliveryFee     float64                `json:"delivery_fee"`
	DeliveryAddress models.DeliveryAddress `json:"delivery_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

// totalTolerance : tolérance d'arrondi entre le total déclaré et le total
// recalculé côté serveur
const totalTolerance = 0.01

// BuildOrder valide le payload et construit la commande initiale
// (status=pending, paiement non entamé). Le total est recalculé depuis les
// articles figés + frais de livraison : un écart au-delà de la tolérance est
// rejeté pour empêcher toute manipulation de prix.
func BuildOrder(userID string, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: panier vide", ErrValidation)
	}
	for _, item := range in.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantité invalide pour %q", ErrValidation, item.Name)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("%w: prix négatif pour %q", ErrValidation, item.Name)
		}
	}
	if in.Total <= 0 {
		return nil, fmt.Errorf("%w: total invalide", ErrValidation)
	}
	if in.DeliveryFee < 0 {
		return nil, fmt.Errorf("%w: frais de livraison invalides", ErrValidation)
	}

	addr := in.DeliveryAddress
	switch {
	case addr.Street == "":
		return nil, fmt.Errorf("%w: rue manquante", ErrValidation)
	case addr.City == "":
		return nil, fmt.Errorf("%w: ville manquante", ErrValidation)
	case addr.State == "":
		return nil, fmt.Errorf("%w: région manquante", ErrValidation)
	case addr.ZipCode == "":
		return nil, fmt.Errorf("%w: code postal manquant", ErrValidation)
	}

	switch in.PaymentMethod {
	case models.MethodStripe, models.MethodSSLCommerz:
	case "":
		return nil, fmt.Errorf("%w: moyen de paiement manquant", ErrValidation)
	default:
		return nil, fmt.Errorf("%w: moyen de paiement inconnu %q", ErrValidation, in.PaymentMethod)
	}

	computed := in.DeliveryFee
	for _, item := range in.Items {
		computed += item.Price * float64(item.Quantity)
	}
	if math.Abs(computed-in.Total) > totalTolerance {
		return nil, fmt.Errorf("%w: total déclaré %.2f ≠ total calculé %.2f", ErrValidation, in.Total, computed)
	}

	return &models.Order{
		UserID:          userID,
		Items:           in.Items,
		Total:           in.Total,
		DeliveryFee:     in.DeliveryFee,
		DeliveryAddress: addr,
		PaymentMethod:   in.PaymentMethod,
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentUnset,
	}, nil
}
