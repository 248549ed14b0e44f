package services

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// CommissionProcessor runs the full invoice-paid flow:
// calculate -> record ledger entry -> credit partner stats.
type CommissionProcessor struct {
	calculator *CommissionService
	ledger     *LedgerService
	stats      *StatsService
	locks      *LockService
}

func NewCommissionProcessor(calculator *CommissionService, ledger *LedgerService, stats *StatsService, locks *LockService) *CommissionProcessor {
	return &CommissionProcessor{
		calculator: calculator,
		ledger:     ledger,
		stats:      stats,
		locks:      locks,
	}
}

// ProcessCommission processes one paid invoice for a partner. A calculation
// or ledger failure aborts with an error; a statistics failure does not —
// the ledger entry is the source of truth and the result reports both
// phases separately. Replays of an already-recorded invoice short-circuit
// before the stats credit, so a partner is credited at most once per
// invoice.
func (p *CommissionProcessor) ProcessCommission(ctx context.Context, partnerID primitive.ObjectID, req *models.InvoicePaidRequest) (*models.ProcessResult, error) {
	// The Redis lock only narrows the window for concurrent duplicate
	// deliveries; the unique ledger index is the actual guarantee, so a
	// missed acquisition proceeds anyway.
	release, acquired := p.locks.Acquire(ctx, "commission:"+EntryKey(req.InvoiceID, partnerID))
	if !acquired {
		log.Printf("Concurrent processing detected for invoice %s, partner %s; proceeding under unique-index protection", req.InvoiceID, partnerID.Hex())
	}
	defer release()

	calc, err := p.calculator.Calculate(ctx, partnerID, req.GrossAmount, req.Currency, req.ReferralID)
	if err != nil {
		return nil, err
	}

	entryID, created, err := p.ledger.Record(ctx, calc, req.InvoiceID, req.SubscriptionID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	result := &models.ProcessResult{
		LedgerEntryID:    entryID,
		CommissionAmount: calc.CommissionAmount,
		LedgerWritten:    created,
		AlreadyProcessed: !created,
	}
	if !created {
		return result, nil
	}

	result.StatsUpdated = p.stats.Credit(ctx, partnerID, calc.CommissionAmount, req.IsFirstInvoice)
	return result, nil
}
