package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Funnel stages in their fixed order. Counts along this order are
// monotonically non-increasing: a customer cannot reach a stage without
// passing through the previous one.
const (
	FunnelStageReferral     = "referral"
	FunnelStageSignup       = "signup"
	FunnelStageConversion   = "conversion"
	FunnelStageSubscription = "subscription"
)

// FunnelStages is the canonical stage order used by the aggregator.
var FunnelStages = []string{
	FunnelStageReferral,
	FunnelStageSignup,
	FunnelStageConversion,
	FunnelStageSubscription,
}

// ReferralCustomer tracks one referred customer's progress through the
// funnel. A nil timestamp means the customer has not reached that stage.
type ReferralCustomer struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PartnerID    primitive.ObjectID `bson:"partnerId" json:"partnerId"`
	CustomerRef  string             `bson:"customerRef" json:"customerRef"`
	ReferralCode string             `bson:"referralCode" json:"referralCode"`
	Source       string             `bson:"source,omitempty" json:"source,omitempty"`
	ReferredAt   time.Time          `bson:"referredAt" json:"referredAt"`
	SignedUpAt   *time.Time         `bson:"signedUpAt,omitempty" json:"signedUpAt,omitempty"`
	ConvertedAt  *time.Time         `bson:"convertedAt,omitempty" json:"convertedAt,omitempty"`
	SubscribedAt *time.Time         `bson:"subscribedAt,omitempty" json:"subscribedAt,omitempty"`
}

// StageReachedAt returns the timestamp at which the customer reached the
// given stage, or nil if they have not.
func (r *ReferralCustomer) StageReachedAt(stage string) *time.Time {
	switch stage {
	case FunnelStageReferral:
		t := r.ReferredAt
		return &t
	case FunnelStageSignup:
		return r.SignedUpAt
	case FunnelStageConversion:
		return r.ConvertedAt
	case FunnelStageSubscription:
		return r.SubscribedAt
	}
	return nil
}

// ConversionFunnelStep is one derived row of the funnel report. It is
// recomputed per query window and never persisted.
type ConversionFunnelStep struct {
	Step                  string   `json:"step"`
	Count                 int64    `json:"count"`
	Percentage            float64  `json:"percentage"`
	AvgTimeToNextStepDays *float64 `json:"avgTimeToNextStepDays,omitempty"`
}

// CommissionSummary is the dashboard summary for one partner and window.
// Amounts are in minor currency units.
type CommissionSummary struct {
	TotalCommissions int64                   `json:"totalCommissions"`
	TotalEarned      int64                   `json:"totalEarned"`
	TotalPaid        int64                   `json:"totalPaid"`
	PendingAmount    int64                   `json:"pendingAmount"`
	RecentEntries    []CommissionLedgerEntry `json:"recentEntries"`
}

// ConversionAnalytics combines the funnel with stage-to-stage rates for the
// analytics endpoint.
type ConversionAnalytics struct {
	Funnel          []ConversionFunnelStep `json:"funnel"`
	OverallRate     float64                `json:"overallRate"`
	StageRates      map[string]float64     `json:"stageRates"`
	WindowStart     time.Time              `json:"windowStart"`
	WindowEnd       time.Time              `json:"windowEnd"`
	TotalReferred   int64                  `json:"totalReferred"`
	TotalSubscribed int64                  `json:"totalSubscribed"`
}

// TrackReferralRequest records a funnel event for a referred customer.
type TrackReferralRequest struct {
	ReferralCode string `json:"referralCode" validate:"required"`
	CustomerRef  string `json:"customerRef" validate:"required"`
	Stage        string `json:"stage" validate:"required,oneof=referral signup conversion subscription"`
	Source       string `json:"source"`
}
