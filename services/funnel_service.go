package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

const recentEntriesLimit = 10

// LedgerLister reads ledger entries for one partner and window.
type LedgerLister interface {
	ListByPartnerWindow(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) ([]models.CommissionLedgerEntry, error)
}

// ReferralLister reads referred customers for one partner and window.
type ReferralLister interface {
	ListByPartnerWindow(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) ([]models.ReferralCustomer, error)
}

// FunnelService computes read-side dashboard aggregates. It performs no
// writes and is safe to call concurrently.
type FunnelService struct {
	ledger    LedgerLister
	referrals ReferralLister
}

func NewFunnelService(ledger LedgerLister, referrals ReferralLister) *FunnelService {
	return &FunnelService{ledger: ledger, referrals: referrals}
}

// Summarize aggregates a partner's ledger over [start, end). TotalEarned
// covers accrued and paid entries, TotalPaid only paid ones. A paid total
// exceeding the earned total is impossible by construction, so it is
// surfaced as models.ErrDataIntegrity rather than clamped.
func (s *FunnelService) Summarize(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) (*models.CommissionSummary, error) {
	entries, err := s.ledger.ListByPartnerWindow(ctx, partnerID, start, end)
	if err != nil {
		return nil, err
	}

	// Sort here rather than trusting store ordering: createdAt desc,
	// entry id desc as the tie-breaker.
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID.Hex() > entries[j].ID.Hex()
	})

	summary := &models.CommissionSummary{
		TotalCommissions: int64(len(entries)),
	}
	for _, entry := range entries {
		switch entry.Status {
		case models.CommissionStatusAccrued:
			summary.TotalEarned += entry.CommissionAmount
		case models.CommissionStatusPaid:
			summary.TotalEarned += entry.CommissionAmount
			summary.TotalPaid += entry.CommissionAmount
		}
	}

	summary.PendingAmount = summary.TotalEarned - summary.TotalPaid
	if summary.PendingAmount < 0 {
		return nil, fmt.Errorf("%w: partner %s paid total %d exceeds earned total %d",
			models.ErrDataIntegrity, partnerID.Hex(), summary.TotalPaid, summary.TotalEarned)
	}

	if len(entries) > recentEntriesLimit {
		entries = entries[:recentEntriesLimit]
	}
	summary.RecentEntries = entries

	return summary, nil
}

// Funnel computes the fixed referral -> signup -> conversion -> subscription
// funnel for [start, end). Percentages are relative to the referral stage;
// when the top of the funnel is empty, every percentage is 0 rather than a
// division by zero.
func (s *FunnelService) Funnel(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) ([]models.ConversionFunnelStep, error) {
	customers, err := s.referrals.ListByPartnerWindow(ctx, partnerID, start, end)
	if err != nil {
		return nil, err
	}
	return buildFunnel(customers), nil
}

// Analytics combines the funnel with adjacent-stage conversion rates.
func (s *FunnelService) Analytics(ctx context.Context, partnerID primitive.ObjectID, start, end time.Time) (*models.ConversionAnalytics, error) {
	customers, err := s.referrals.ListByPartnerWindow(ctx, partnerID, start, end)
	if err != nil {
		return nil, err
	}

	funnel := buildFunnel(customers)

	stageRates := make(map[string]float64, len(funnel)-1)
	for i := 0; i < len(funnel)-1; i++ {
		rate := 0.0
		if funnel[i].Count > 0 {
			rate = float64(funnel[i+1].Count) / float64(funnel[i].Count) * 100
		}
		stageRates[funnel[i].Step+"_to_"+funnel[i+1].Step] = rate
	}

	top := funnel[0].Count
	bottom := funnel[len(funnel)-1].Count
	overall := 0.0
	if top > 0 {
		overall = float64(bottom) / float64(top) * 100
	}

	return &models.ConversionAnalytics{
		Funnel:          funnel,
		OverallRate:     overall,
		StageRates:      stageRates,
		WindowStart:     start,
		WindowEnd:       end,
		TotalReferred:   top,
		TotalSubscribed: bottom,
	}, nil
}

func buildFunnel(customers []models.ReferralCustomer) []models.ConversionFunnelStep {
	stages := models.FunnelStages
	counts := make([]int64, len(stages))
	deltaSums := make([]float64, len(stages)-1)
	deltaCounts := make([]int64, len(stages)-1)

	for i := range customers {
		customer := &customers[i]
		for si, stage := range stages {
			reached := customer.StageReachedAt(stage)
			if reached == nil {
				break
			}
			counts[si]++
			if si+1 < len(stages) {
				if next := customer.StageReachedAt(stages[si+1]); next != nil {
					deltaSums[si] += next.Sub(*reached).Hours() / 24
					deltaCounts[si]++
				}
			}
		}
	}

	steps := make([]models.ConversionFunnelStep, len(stages))
	top := counts[0]
	for si, stage := range stages {
		step := models.ConversionFunnelStep{
			Step:  stage,
			Count: counts[si],
		}
		if top > 0 {
			step.Percentage = float64(counts[si]) / float64(top) * 100
		}
		if si < len(stages)-1 && deltaCounts[si] > 0 {
			avg := deltaSums[si] / float64(deltaCounts[si])
			step.AvgTimeToNextStepDays = &avg
		}
		steps[si] = step
	}
	return steps
}
