package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger entry statuses. "calculated" is a transient calculation result and
// is never persisted; entries are created as "accrued" and moved to "paid"
// or "reversed" by the external payout/refund process. No transition out of
// a terminal state is valid.
const (
	CommissionStatusCalculated = "calculated"
	CommissionStatusAccrued    = "accrued"
	CommissionStatusPaid       = "paid"
	CommissionStatusReversed   = "reversed"
)

// CommissionLedgerEntry is the immutable record of one commission accrual
// tied to one invoice+partner pair. EntryKey is derived from
// (invoiceId, partnerId) and backed by a unique index, so a retried
// webhook for the same invoice can never produce a second entry.
//
// Billing periods are [PeriodStart, PeriodEnd): inclusive start,
// exclusive end.
type CommissionLedgerEntry struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntryKey         string             `bson:"entryKey" json:"entryKey"`
	PartnerID        primitive.ObjectID `bson:"partnerId" json:"partnerId"`
	ReferralID       string             `bson:"referralId" json:"referralId"`
	InvoiceID        string             `bson:"invoiceId" json:"invoiceId"`
	SubscriptionID   string             `bson:"subscriptionId" json:"subscriptionId"`
	GrossAmount      int64              `bson:"grossAmount" json:"grossAmount"` // minor currency units
	CommissionRate   float64            `bson:"commissionRate" json:"commissionRate"`
	CommissionAmount int64              `bson:"commissionAmount" json:"commissionAmount"` // minor currency units
	Currency         string             `bson:"currency" json:"currency"`
	PeriodStart      time.Time          `bson:"periodStart" json:"periodStart"`
	PeriodEnd        time.Time          `bson:"periodEnd" json:"periodEnd"`
	Status           string             `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	PaidAt           *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

// CommissionCalculation is the pure output of the commission calculator.
// It carries no identity and has not been persisted.
type CommissionCalculation struct {
	PartnerID        primitive.ObjectID `json:"partnerId"`
	ReferralID       string             `json:"referralId"`
	GrossAmount      int64              `json:"grossAmount"`
	CommissionRate   float64            `json:"commissionRate"`
	CommissionAmount int64              `json:"commissionAmount"`
	Currency         string             `json:"currency"`
	Status           string             `json:"status"` // always "calculated"
}

// ProcessResult reports the two-phase outcome of processing one invoice:
// the ledger write and the statistics credit succeed or fail independently,
// and callers need to see which half happened.
type ProcessResult struct {
	LedgerEntryID    primitive.ObjectID `json:"ledgerEntryId"`
	CommissionAmount int64              `json:"commissionAmount"`
	LedgerWritten    bool               `json:"ledgerWritten"`
	AlreadyProcessed bool               `json:"alreadyProcessed"`
	StatsUpdated     bool               `json:"statsUpdated"`
}

// InvoicePaidRequest is the payment-provider webhook payload for a settled
// subscription invoice.
type InvoicePaidRequest struct {
	PartnerID      string    `json:"partnerId" validate:"required"`
	ReferralID     string    `json:"referralId"`
	InvoiceID      string    `json:"invoiceId" validate:"required"`
	SubscriptionID string    `json:"subscriptionId"`
	GrossAmount    int64     `json:"grossAmount" validate:"gte=0"`
	IsFirstInvoice bool      `json:"isFirstInvoice"`
	Currency       string    `json:"currency" validate:"required,len=3"`
	PeriodStart    time.Time `json:"periodStart" validate:"required"`
	PeriodEnd      time.Time `json:"periodEnd" validate:"required"`
	EventID        string    `json:"eventId"`
}
