package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/captionly/partner_backend/models"
)

type LedgerRepository struct {
	collection *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		collection: db.Collection("commission_ledger"),
	}
}

// Create inserts a ledger entry, relying on the unique (invoiceId, partnerId)
// index to reject duplicates atomically. On a duplicate-key error the
// existing entry is looked up and returned with created=false; a replayed
// webhook therefore gets the original entry id, not an error.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.CommissionLedgerEntry) (primitive.ObjectID, bool, error) {
	result, err := r.collection.InsertOne(ctx, entry)
	if err == nil {
		return result.InsertedID.(primitive.ObjectID), true, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		// Look the winner up through the unique (invoiceId, partnerId) index
		// rather than entryKey, which has no index of its own.
		var existing models.CommissionLedgerEntry
		findErr := r.collection.FindOne(ctx, bson.M{
			"invoiceId": entry.InvoiceID,
			"partnerId": entry.PartnerID,
		}).Decode(&existing)
		if findErr != nil {
			return primitive.NilObjectID, false, fmt.Errorf("%w: load existing ledger entry: %v", models.ErrTransientStore, findErr)
		}
		return existing.ID, false, nil
	}

	return primitive.NilObjectID, false, fmt.Errorf("%w: insert ledger entry: %v", models.ErrTransientStore, err)
}

// ListByPartnerWindow returns all ledger entries for a partner created in
// [start, end), newest first with entry id as the tie-breaker so paging and
// "recent entries" stay deterministic.
func (r *LedgerRepository) ListByPartnerWindow(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) ([]models.CommissionLedgerEntry, error) {
	filter := bson.M{
		"partnerId": partnerID,
		"createdAt": bson.M{"$gte": start, "$lt": end},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "createdAt", Value: -1},
		{Key: "_id", Value: -1},
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list ledger entries: %v", models.ErrTransientStore, err)
	}
	defer cursor.Close(ctx)

	var entries []models.CommissionLedgerEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode ledger entries: %v", models.ErrTransientStore, err)
	}
	return entries, nil
}
