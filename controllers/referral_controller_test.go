package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// memReferralStore mimics the referrals collection: the unique
// (partnerId, customerRef) index and the stamp-only-if-absent update.
type memReferralStore struct {
	mu        sync.Mutex
	customers map[string]*models.ReferralCustomer
}

func referralKey(partnerID primitive.ObjectID, customerRef string) string {
	return partnerID.Hex() + ":" + customerRef
}

func (m *memReferralStore) RecordReferral(_ context.Context, customer *models.ReferralCustomer) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := referralKey(customer.PartnerID, customer.CustomerRef)
	if _, ok := m.customers[key]; ok {
		return false, nil
	}
	copied := *customer
	copied.ID = primitive.NewObjectID()
	m.customers[key] = &copied
	return true, nil
}

func (m *memReferralStore) AdvanceStage(_ context.Context, partnerID primitive.ObjectID, customerRef, stage string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[referralKey(partnerID, customerRef)]
	if !ok {
		return false, nil
	}
	var field **time.Time
	switch stage {
	case models.FunnelStageSignup:
		field = &customer.SignedUpAt
	case models.FunnelStageConversion:
		field = &customer.ConvertedAt
	case models.FunnelStageSubscription:
		field = &customer.SubscribedAt
	default:
		return false, nil
	}
	if *field != nil {
		return false, nil
	}
	stamped := at
	*field = &stamped
	return true, nil
}

func (m *memReferralStore) get(partnerID primitive.ObjectID, customerRef string) *models.ReferralCustomer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.customers[referralKey(partnerID, customerRef)]
}

type memPartnerDirectory struct {
	mu       sync.Mutex
	byCode   map[string]*models.Partner
	counters map[primitive.ObjectID]int64
}

func (m *memPartnerDirectory) FindByReferralCode(_ context.Context, code string) (*models.Partner, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	partner, ok := m.byCode[code]
	if !ok {
		return nil, models.ErrPartnerNotFound
	}
	copied := *partner
	return &copied, nil
}

func (m *memPartnerDirectory) IncrementReferrals(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[id]++
	return nil
}

func (m *memPartnerDirectory) referralCount(id primitive.ObjectID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[id]
}

func newTrackingFixture(partner *models.Partner) (*ReferralController, *memReferralStore, *memPartnerDirectory) {
	referrals := &memReferralStore{customers: map[string]*models.ReferralCustomer{}}
	partners := &memPartnerDirectory{
		byCode:   map[string]*models.Partner{},
		counters: map[primitive.ObjectID]int64{},
	}
	if partner != nil {
		partners.byCode[partner.ReferralCode] = partner
	}
	return NewReferralController(referrals, partners), referrals, partners
}

func postTrackReferral(t *testing.T, controller *ReferralController, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(http.MethodPost, "/webhooks/referrals/track", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, controller.TrackReferral(c))
	return rec
}

func trackPayload(code, customerRef, stage string) string {
	return `{"referralCode": "` + code + `", "customerRef": "` + customerRef + `", "stage": "` + stage + `", "source": "landing"}`
}

func decodeTrackResponse(t *testing.T, rec *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestTrackReferralFirstTouchBumpsCounterOnce(t *testing.T) {
	partner := &models.Partner{ID: primitive.NewObjectID(), ReferralCode: "PTR-AAAAAA", Active: true}
	controller, _, partners := newTrackingFixture(partner)

	first := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "referral"))
	require.Equal(t, http.StatusOK, first.Code)
	resp := decodeTrackResponse(t, first)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["firstTouch"])

	// The provider retries tracking events; a replay must not count twice.
	second := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "referral"))
	require.Equal(t, http.StatusOK, second.Code)
	resp = decodeTrackResponse(t, second)
	data = resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["firstTouch"])

	assert.Equal(t, int64(1), partners.referralCount(partner.ID))
}

func TestTrackReferralStageReplayKeepsOriginalTimestamp(t *testing.T) {
	partner := &models.Partner{ID: primitive.NewObjectID(), ReferralCode: "PTR-AAAAAA", Active: true}
	controller, referrals, _ := newTrackingFixture(partner)

	postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "referral"))

	first := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "signup"))
	require.Equal(t, http.StatusOK, first.Code)
	data := decodeTrackResponse(t, first).Data.(map[string]interface{})
	assert.Equal(t, true, data["advanced"])

	customer := referrals.get(partner.ID, "cust-1")
	require.NotNil(t, customer.SignedUpAt)
	stampedAt := *customer.SignedUpAt

	second := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "signup"))
	require.Equal(t, http.StatusOK, second.Code)
	data = decodeTrackResponse(t, second).Data.(map[string]interface{})
	assert.Equal(t, false, data["advanced"])
	assert.Equal(t, stampedAt, *referrals.get(partner.ID, "cust-1").SignedUpAt)
}

// A subscription event can arrive before the conversion event is reported.
// The timestamp is stamped so nothing is lost, but the customer only counts
// as subscribed once the conversion gap is filled.
func TestTrackReferralOutOfOrderSubscriptionIsStamped(t *testing.T) {
	partner := &models.Partner{ID: primitive.NewObjectID(), ReferralCode: "PTR-AAAAAA", Active: true}
	controller, referrals, _ := newTrackingFixture(partner)

	postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "referral"))
	postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "signup"))

	rec := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "subscription"))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeTrackResponse(t, rec).Data.(map[string]interface{})
	assert.Equal(t, true, data["advanced"])

	customer := referrals.get(partner.ID, "cust-1")
	assert.Nil(t, customer.ConvertedAt)
	assert.NotNil(t, customer.SubscribedAt)
}

func TestTrackReferralUnknownCode(t *testing.T) {
	controller, _, _ := newTrackingFixture(nil)

	rec := postTrackReferral(t, controller, trackPayload("PTR-MISSIN", "cust-1", "referral"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTrackReferralDeactivatedPartner(t *testing.T) {
	partner := &models.Partner{ID: primitive.NewObjectID(), ReferralCode: "PTR-AAAAAA", Active: false}
	controller, _, partners := newTrackingFixture(partner)

	rec := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "referral"))
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, int64(0), partners.referralCount(partner.ID))
}

func TestTrackReferralRejectsUnknownStage(t *testing.T) {
	partner := &models.Partner{ID: primitive.NewObjectID(), ReferralCode: "PTR-AAAAAA", Active: true}
	controller, _, _ := newTrackingFixture(partner)

	rec := postTrackReferral(t, controller, trackPayload("PTR-AAAAAA", "cust-1", "upgrade"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
