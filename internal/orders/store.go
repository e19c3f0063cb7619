package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resto_back_end/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadyPaid : la commande a déjà un paiement terminé
var ErrAlreadyPaid = errors.New("commande déjà payée")

// Store : accès persistant aux commandes. Seul ApplyPaymentOutcome a le droit
// de modifier payment_status, et il doit être conditionnel-atomique (CAS) pour
// fermer la fenêtre de course entre callbacks concurrents.
type Store interface {
	Insert(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id string) (*models.Order, error)
	FindByTransactionID(ctx context.Context, tranID string) (*models.Order, error)
	FindByOwner(ctx context.Context, userID string) ([]models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)

	// AssignTransaction fixe transaction_id + payment_method au moment de la
	// création de session. Refuse si le paiement est déjà terminé ou si un
	// autre moyen de paiement a déjà une session.
	AssignTransaction(ctx context.Context, id, tranID, method string) (*models.Order, error)

	// ApplyPaymentOutcome applique "completed" ou "failed" en une seule
	// écriture conditionnelle : aucune mise à jour si payment_status vaut
	// déjà "completed", ni si la commande est liée à une autre transaction
	// que tranID. Retourne (commande, appliqué, erreur).
	ApplyPaymentOutcome(ctx context.Context, id, tranID, outcome string) (*models.Order, bool, error)

	UpdateStatus(ctx context.Context, id, newStatus string) (*models.Order, error)
	Cancel(ctx context.Context, id string) (*models.Order, error)
	Delete(ctx context.Context, id string) error
}

// MongoStore : implémentation MongoDB du Store
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

func (s *MongoStore) Insert(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = primitive.NewObjectID()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt

	if _, err := s.coll.InsertOne(ctx, order); err != nil {
		return nil, fmt.Errorf("insertion commande: %w", err)
	}
	return order, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var order models.Order
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) FindByTransactionID(ctx context.Context, tranID string) (*models.Order, error) {
	if tranID == "" {
		return nil, ErrNotFound
	}

	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"transaction_id": tranID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) FindByOwner(ctx context.Context, userID string) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *MongoStore) FindAll(ctx context.Context) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *MongoStore) AssignTransaction(ctx context.Context, id, tranID, method string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := bson.M{
		"_id":            oid,
		"payment_status": bson.M{"$ne": models.PaymentCompleted},
		"$or": []bson.M{
			{"payment_method": bson.M{"$exists": false}},
			{"payment_method": ""},
			{"payment_method": method},
		},
	}
	update := bson.M{"$set": bson.M{
		"transaction_id": tranID,
		"payment_method": method,
		"payment_status": models.PaymentPending,
		"updated_at":     time.Now(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Le filtre n'a pas matché : on distingue les trois cas possibles
		existing, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ErrNotFound
		}
		if existing.PaymentStatus == models.PaymentCompleted {
			return nil, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("%w: moyen de paiement déjà fixé à %q", ErrValidation, existing.PaymentMethod)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) ApplyPaymentOutcome(ctx context.Context, id, tranID, outcome string) (*models.Order, bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false, ErrNotFound
	}

	set := bson.M{
		"payment_status": outcome,
		"updated_at":     time.Now(),
	}
	if outcome == models.PaymentCompleted && tranID != "" {
		set["transaction_id"] = tranID
	}

	// Écriture conditionnelle unique : jamais de régression depuis "completed",
	// et le transaction_id est assigné une seule fois (une issue portant une
	// autre transaction ne touche jamais cette commande)
	filter := bson.M{
		"_id":            oid,
		"payment_status": bson.M{"$ne": models.PaymentCompleted},
	}
	if tranID != "" {
		filter["$or"] = []bson.M{
			{"transaction_id": bson.M{"$exists": false}},
			{"transaction_id": ""},
			{"transaction_id": tranID},
		}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err = s.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, false, ErrNotFound
		}
		if tranID != "" && existing.TransactionID != "" && existing.TransactionID != tranID {
			return nil, false, fmt.Errorf("%w: transaction %q étrangère à la commande", ErrValidation, tranID)
		}
		// Déjà payé : no-op idempotent
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &order, true, nil
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id, newStatus string) (*models.Order, error) {
	if !ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: statut inconnu %q", ErrInvalidTransition, newStatus)
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, current.Status, newStatus)
	}

	// Conditionné sur le statut lu pour éviter la course admin/admin
	filter := bson.M{"_id": current.ID, "status": current.Status}
	update := bson.M{"$set": bson.M{"status": newStatus, "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: statut modifié entre-temps", ErrInvalidTransition)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) Cancel(ctx context.Context, id string) (*models.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	filter := bson.M{"_id": oid, "status": models.StatusPending}
	update := bson.M{"$set": bson.M{"status": models.StatusCancelled, "updated_at": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var order models.Order
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: annulation impossible depuis %q", ErrInvalidTransition, existing.Status)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "status": models.StatusCancelled})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		existing, ferr := s.FindByID(ctx, id)
		if ferr != nil {
			return ErrNotFound
		}
		return fmt.Errorf("%w: suppression impossible depuis %q", ErrInvalidTransition, existing.Status)
	}
	return nil
}
