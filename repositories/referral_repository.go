package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/captionly/partner_backend/models"
)

type ReferralRepository struct {
	collection *mongo.Collection
}

func NewReferralRepository(db *mongo.Database) *ReferralRepository {
	return &ReferralRepository{
		collection: db.Collection("referrals"),
	}
}

// RecordReferral registers a customer at the top of the funnel. The unique
// (partnerId, customerRef) index makes replays of the same tracking event a
// no-op; created reports whether this was the customer's first touch.
func (r *ReferralRepository) RecordReferral(ctx context.Context, customer *models.ReferralCustomer) (bool, error) {
	_, err := r.collection.InsertOne(ctx, customer)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: insert referral: %v", models.ErrTransientStore, err)
	}
	return true, nil
}

// AdvanceStage stamps the given funnel stage timestamp for a referred
// customer, only if the customer exists and has not reached that stage yet.
// Stamping an already-reached stage is a no-op, preserving the original
// progression times.
func (r *ReferralRepository) AdvanceStage(ctx context.Context, partnerID primitive.ObjectID, customerRef, stage string, at time.Time) (bool, error) {
	var field string
	switch stage {
	case models.FunnelStageSignup:
		field = "signedUpAt"
	case models.FunnelStageConversion:
		field = "convertedAt"
	case models.FunnelStageSubscription:
		field = "subscribedAt"
	default:
		return false, fmt.Errorf("unknown funnel stage %q", stage)
	}

	filter := bson.M{
		"partnerId":   partnerID,
		"customerRef": customerRef,
		field:         bson.M{"$exists": false},
	}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{field: at},
	})
	if err != nil {
		return false, fmt.Errorf("%w: advance referral stage: %v", models.ErrTransientStore, err)
	}
	return result.ModifiedCount > 0, nil
}

// ListByPartnerWindow returns all referred customers whose first touch falls
// in [start, end).
func (r *ReferralRepository) ListByPartnerWindow(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) ([]models.ReferralCustomer, error) {
	filter := bson.M{
		"partnerId":  partnerID,
		"referredAt": bson.M{"$gte": start, "$lt": end},
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list referrals: %v", models.ErrTransientStore, err)
	}
	defer cursor.Close(ctx)

	var customers []models.ReferralCustomer
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("%w: decode referrals: %v", models.ErrTransientStore, err)
	}
	return customers, nil
}
