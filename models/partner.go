package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Partner represents a referral partner enrolled in the program.
// Stats are mutated only by the statistics aggregator through a single
// atomic update; everything else is set at onboarding.
type Partner struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	ReferralCode   string             `bson:"referralCode" json:"referralCode"`
	CommissionRate float64            `bson:"commissionRate" json:"commissionRate"` // fraction, 0 = use system default
	Active         bool               `bson:"active" json:"active"`
	Stats          PartnerStats       `bson:"stats" json:"stats"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	DeactivatedAt  *time.Time         `bson:"deactivatedAt,omitempty" json:"deactivatedAt,omitempty"`
}

// PartnerStats holds cumulative counters for a partner. Amounts are in
// minor currency units (cents). TotalCommissionPaid is updated only by the
// payout reconciliation process, never by this service.
type PartnerStats struct {
	TotalReferrals        int64      `bson:"totalReferrals" json:"totalReferrals"`
	TotalConversions      int64      `bson:"totalConversions" json:"totalConversions"`
	TotalCommissionEarned int64      `bson:"totalCommissionEarned" json:"totalCommissionEarned"`
	TotalCommissionPaid   int64      `bson:"totalCommissionPaid" json:"totalCommissionPaid"`
	LastCalculated        *time.Time `bson:"lastCalculated,omitempty" json:"lastCalculated,omitempty"`
}

// CreatePartnerRequest is the onboarding payload.
type CreatePartnerRequest struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	CommissionRate float64 `json:"commissionRate" validate:"gte=0,lte=1"`
}
