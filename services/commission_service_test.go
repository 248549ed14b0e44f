package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

func testPartner(rate float64) *models.Partner {
	return &models.Partner{
		ID:             primitive.NewObjectID(),
		Name:           "Acme Media",
		Email:          "acme@example.com",
		ReferralCode:   "PTR-ACME01",
		CommissionRate: rate,
		Active:         true,
	}
}

func TestCalculateRounding(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		grossAmount int64
		want        int64
	}{
		{"exact product", 0.20, 1050, 210},
		{"fractional cent rounds half up", 0.15, 999, 150},
		{"zero gross", 0.20, 0, 0},
		{"half cent rounds up", 0.25, 1002, 251}, // 250.5 -> 251
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			partner := testPartner(tt.rate)
			svc := NewCommissionService(newFakePartnerStore(partner))

			calc, err := svc.Calculate(context.Background(), partner.ID, tt.grossAmount, "USD", "ref-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, calc.CommissionAmount)
			assert.Equal(t, tt.rate, calc.CommissionRate)
			assert.Equal(t, models.CommissionStatusCalculated, calc.Status)
		})
	}
}

func TestCalculateDefaultRateFallback(t *testing.T) {
	partner := testPartner(0) // no configured rate
	svc := NewCommissionService(newFakePartnerStore(partner))

	calc, err := svc.Calculate(context.Background(), partner.ID, 1000, "USD", "ref-1")
	require.NoError(t, err)
	assert.Equal(t, DefaultCommissionRate, calc.CommissionRate)
	assert.Equal(t, int64(100), calc.CommissionAmount)
}

func TestCalculateMissingPartner(t *testing.T) {
	svc := NewCommissionService(newFakePartnerStore())

	calc, err := svc.Calculate(context.Background(), primitive.NewObjectID(), 1000, "USD", "r1")
	assert.Nil(t, calc)
	assert.ErrorIs(t, err, models.ErrPartnerNotFound)
}

func TestCalculateNegativeAmount(t *testing.T) {
	partner := testPartner(0.20)
	svc := NewCommissionService(newFakePartnerStore(partner))

	calc, err := svc.Calculate(context.Background(), partner.ID, -1, "USD", "r1")
	assert.Nil(t, calc)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}
