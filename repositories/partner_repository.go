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

type PartnerRepository struct {
	collection *mongo.Collection
}

func NewPartnerRepository(db *mongo.Database) *PartnerRepository {
	return &PartnerRepository{
		collection: db.Collection("partners"),
	}
}

// FindByID loads a partner by id. Returns models.ErrPartnerNotFound when no
// document matches.
func (r *PartnerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	var partner models.Partner
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&partner)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("%w: find partner: %v", models.ErrTransientStore, err)
	}
	return &partner, nil
}

// FindByReferralCode loads a partner by its referral code.
func (r *PartnerRepository) FindByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	var partner models.Partner
	err := r.collection.FindOne(ctx, bson.M{"referralCode": code}).Decode(&partner)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("%w: find partner by code: %v", models.ErrTransientStore, err)
	}
	return &partner, nil
}

// Insert persists a new partner created by onboarding.
func (r *PartnerRepository) Insert(ctx context.Context, partner *models.Partner) (primitive.ObjectID, error) {
	partner.CreatedAt = time.Now()
	partner.Active = true
	result, err := r.collection.InsertOne(ctx, partner)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, models.ErrAlreadyExists
		}
		return primitive.NilObjectID, fmt.Errorf("%w: insert partner: %v", models.ErrTransientStore, err)
	}
	return result.InsertedID.(primitive.ObjectID), nil
}

// Deactivate flags a partner as inactive. Partners are never deleted.
func (r *PartnerRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	result, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"active":        false,
			"deactivatedAt": now,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: deactivate partner: %v", models.ErrTransientStore, err)
	}
	if result.MatchedCount == 0 {
		return models.ErrPartnerNotFound
	}
	return nil
}

// ApplyCredit adds a commission amount to the partner's earned total and,
// when the credit comes from a first subscription invoice, bumps the
// conversion counter. The whole mutation is a single UpdateOne so concurrent
// credits for the same partner cannot lose updates. Returns false when the
// partner document does not exist.
func (r *PartnerRepository) ApplyCredit(ctx context.Context, id primitive.ObjectID, amount int64, isConversion bool) (bool, error) {
	inc := bson.M{"stats.totalCommissionEarned": amount}
	if isConversion {
		inc["stats.totalConversions"] = 1
	}
	result, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": inc,
		"$set": bson.M{"stats.lastCalculated": time.Now()},
	})
	if err != nil {
		return false, fmt.Errorf("%w: credit partner: %v", models.ErrTransientStore, err)
	}
	return result.MatchedCount > 0, nil
}

// IncrementReferrals bumps the referral counter when a new customer enters
// the funnel.
func (r *PartnerRepository) IncrementReferrals(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.UpdateByID(ctx, id, bson.M{
		"$inc": bson.M{"stats.totalReferrals": 1},
	})
	if err != nil {
		return fmt.Errorf("%w: increment referrals: %v", models.ErrTransientStore, err)
	}
	return nil
}
