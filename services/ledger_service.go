package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// LedgerStore persists ledger entries with store-enforced uniqueness on
// (invoiceId, partnerId).
type LedgerStore interface {
	Create(ctx context.Context, entry *models.CommissionLedgerEntry) (primitive.ObjectID, bool, error)
}

// LedgerService turns commission calculations into accrued ledger entries.
type LedgerService struct {
	ledger LedgerStore
}

func NewLedgerService(ledger LedgerStore) *LedgerService {
	return &LedgerService{ledger: ledger}
}

// EntryKey derives the deterministic idempotency key for one invoice+partner
// pair.
func EntryKey(invoiceID string, partnerID primitive.ObjectID) string {
	return invoiceID + ":" + partnerID.Hex()
}

// Record persists one accrued ledger entry for the calculation. Duplicate
// invoice deliveries return the id of the existing entry with created=false
// and never modify it. Partner statistics are not touched here.
//
// Billing period bounds are stored as given: [periodStart, periodEnd).
func (s *LedgerService) Record(ctx context.Context, calc *models.CommissionCalculation, invoiceID, subscriptionID string, periodStart, periodEnd time.Time) (primitive.ObjectID, bool, error) {
	entry := &models.CommissionLedgerEntry{
		EntryKey:         EntryKey(invoiceID, calc.PartnerID),
		PartnerID:        calc.PartnerID,
		ReferralID:       calc.ReferralID,
		InvoiceID:        invoiceID,
		SubscriptionID:   subscriptionID,
		GrossAmount:      calc.GrossAmount,
		CommissionRate:   calc.CommissionRate,
		CommissionAmount: calc.CommissionAmount,
		Currency:         calc.Currency,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		Status:           models.CommissionStatusAccrued,
		CreatedAt:        time.Now(),
	}
	return s.ledger.Create(ctx, entry)
}
