package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// fakePartnerStore implements PartnerFinder and PartnerCreditor over an
// in-memory map, mirroring the store's atomic single-document update.
type fakePartnerStore struct {
	mu       sync.Mutex
	partners map[primitive.ObjectID]*models.Partner
	failNext error
}

func newFakePartnerStore(partners ...*models.Partner) *fakePartnerStore {
	store := &fakePartnerStore{partners: make(map[primitive.ObjectID]*models.Partner)}
	for _, p := range partners {
		store.partners[p.ID] = p
	}
	return store
}

func (f *fakePartnerStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return nil, err
	}
	partner, ok := f.partners[id]
	if !ok {
		return nil, models.ErrPartnerNotFound
	}
	copied := *partner
	return &copied, nil
}

func (f *fakePartnerStore) ApplyCredit(_ context.Context, id primitive.ObjectID, amount int64, isConversion bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return false, err
	}
	partner, ok := f.partners[id]
	if !ok {
		return false, nil
	}
	partner.Stats.TotalCommissionEarned += amount
	if isConversion {
		partner.Stats.TotalConversions++
	}
	now := time.Now()
	partner.Stats.LastCalculated = &now
	return true, nil
}

// fakeLedgerStore mimics the unique (invoiceId, partnerId) index: the first
// insert for a key wins, later ones return the existing id.
type fakeLedgerStore struct {
	mu      sync.Mutex
	entries map[string]*models.CommissionLedgerEntry
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{entries: make(map[string]*models.CommissionLedgerEntry)}
}

func (f *fakeLedgerStore) Create(_ context.Context, entry *models.CommissionLedgerEntry) (primitive.ObjectID, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.entries[entry.EntryKey]; ok {
		return existing.ID, false, nil
	}
	copied := *entry
	copied.ID = primitive.NewObjectID()
	f.entries[entry.EntryKey] = &copied
	return copied.ID, true, nil
}

func (f *fakeLedgerStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

// fixedLedgerLister serves a canned window result.
type fixedLedgerLister struct {
	entries []models.CommissionLedgerEntry
	err     error
}

func (f *fixedLedgerLister) ListByPartnerWindow(context.Context, primitive.ObjectID, time.Time, time.Time) ([]models.CommissionLedgerEntry, error) {
	return f.entries, f.err
}

// fixedReferralLister serves a canned customer set.
type fixedReferralLister struct {
	customers []models.ReferralCustomer
	err       error
}

func (f *fixedReferralLister) ListByPartnerWindow(context.Context, primitive.ObjectID, time.Time, time.Time) ([]models.ReferralCustomer, error) {
	return f.customers, f.err
}

// creditFailingStore always fails ApplyCredit, simulating a store outage
// after the ledger write landed.
type creditFailingStore struct{}

func (creditFailingStore) ApplyCredit(context.Context, primitive.ObjectID, int64, bool) (bool, error) {
	return false, errStoreDown
}

var errStoreDown = errors.New("store down")
