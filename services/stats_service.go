package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartnerCreditor applies one atomic credit to a partner's cumulative stats.
type PartnerCreditor interface {
	ApplyCredit(ctx context.Context, id primitive.ObjectID, amount int64, isConversion bool) (bool, error)
}

// StatsService maintains partner-level counters. Updates are best-effort:
// the ledger is the source of truth and counters can be rebuilt from it, so
// a failed credit is logged and reported but never propagated as an error.
type StatsService struct {
	partners PartnerCreditor
}

func NewStatsService(partners PartnerCreditor) *StatsService {
	return &StatsService{partners: partners}
}

// Credit adds commissionAmount to totalCommissionEarned and bumps
// totalConversions when the credit stems from a first subscription invoice.
// totalCommissionPaid is never touched here; only payout reconciliation
// updates it. A missing partner is a no-op: the ledger entry still exists
// and an out-of-band repair can reconcile the counters later.
func (s *StatsService) Credit(ctx context.Context, partnerID primitive.ObjectID, commissionAmount int64, isConversion bool) bool {
	matched, err := s.partners.ApplyCredit(ctx, partnerID, commissionAmount, isConversion)
	if err != nil {
		log.Printf("Failed to credit partner %s stats: %v", partnerID.Hex(), err)
		return false
	}
	if !matched {
		log.Printf("Warning: partner %s missing during stats credit, counters left for repair", partnerID.Hex())
		return false
	}
	return true
}
