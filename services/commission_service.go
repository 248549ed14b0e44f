package services

import (
	"context"
	"math"
	"os"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// DefaultCommissionRate is used for partners with no configured rate.
const DefaultCommissionRate = 0.10

// PartnerFinder is the partner lookup needed by the calculator.
type PartnerFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error)
}

// CommissionService computes commission amounts. It is pure: no writes, no
// side effects beyond the partner lookup.
type CommissionService struct {
	partners    PartnerFinder
	defaultRate float64
}

func NewCommissionService(partners PartnerFinder) *CommissionService {
	return &CommissionService{
		partners:    partners,
		defaultRate: defaultRateFromEnv(),
	}
}

func defaultRateFromEnv() float64 {
	if rateStr := os.Getenv("DEFAULT_COMMISSION_RATE"); rateStr != "" {
		if rate, err := strconv.ParseFloat(rateStr, 64); err == nil && rate >= 0 && rate <= 1 {
			return rate
		}
	}
	return DefaultCommissionRate
}

// Calculate computes the commission owed to a partner for one gross invoice
// amount in minor currency units. The rounding rule is round-half-up
// (999 * 0.15 = 149.85 -> 150) and must stay in sync with payout
// reconciliation. Returns models.ErrPartnerNotFound when the partner does
// not exist; the caller must not record a ledger entry in that case.
func (s *CommissionService) Calculate(ctx context.Context, partnerID primitive.ObjectID, grossAmount int64, currency, referralID string) (*models.CommissionCalculation, error) {
	if grossAmount < 0 {
		return nil, models.ErrInvalidAmount
	}

	partner, err := s.partners.FindByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	rate := partner.CommissionRate
	if rate <= 0 {
		rate = s.defaultRate
	}

	// math.Round is round-half-away-from-zero; the product is always
	// non-negative here, so this is round-half-up.
	amount := int64(math.Round(float64(grossAmount) * rate))

	return &models.CommissionCalculation{
		PartnerID:        partner.ID,
		ReferralID:       referralID,
		GrossAmount:      grossAmount,
		CommissionRate:   rate,
		CommissionAmount: amount,
		Currency:         currency,
		Status:           models.CommissionStatusCalculated,
	}, nil
}
