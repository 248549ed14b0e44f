package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
)

// ReferralTracker is the slice of the referral repository the tracking
// endpoint needs.
type ReferralTracker interface {
	RecordReferral(ctx context.Context, customer *models.ReferralCustomer) (bool, error)
	AdvanceStage(ctx context.Context, partnerID primitive.ObjectID, customerRef, stage string, at time.Time) (bool, error)
}

// PartnerDirectory resolves referral codes to partners and keeps the
// first-touch counter.
type PartnerDirectory interface {
	FindByReferralCode(ctx context.Context, code string) (*models.Partner, error)
	IncrementReferrals(ctx context.Context, id primitive.ObjectID) error
}

type ReferralController struct {
	referrals ReferralTracker
	partners  PartnerDirectory
}

func NewReferralController(referrals ReferralTracker, partners PartnerDirectory) *ReferralController {
	return &ReferralController{
		referrals: referrals,
		partners:  partners,
	}
}

// TrackReferral records one funnel event for a referred customer. The first
// "referral" event for a customer also bumps the partner's referral counter;
// replays of any event are no-ops, so the tracking pixel and the signup flow
// can both report the same customer safely.
func (rc *ReferralController) TrackReferral(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.TrackReferralRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Data:    err.Error(),
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid tracking event",
			Data:    err.Error(),
		})
	}

	partner, err := rc.partners.FindByReferralCode(ctx, req.ReferralCode)
	if err != nil {
		if errors.Is(err, models.ErrPartnerNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Referral code not found",
			})
		}
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Temporary storage failure, please retry",
		})
	}
	if !partner.Active {
		return c.JSON(http.StatusGone, models.Response{
			Status:  http.StatusGone,
			Message: "Referral code belongs to a deactivated partner",
		})
	}

	now := time.Now()

	if req.Stage == models.FunnelStageReferral {
		customer := &models.ReferralCustomer{
			PartnerID:    partner.ID,
			CustomerRef:  req.CustomerRef,
			ReferralCode: req.ReferralCode,
			Source:       req.Source,
			ReferredAt:   now,
		}
		created, err := rc.referrals.RecordReferral(ctx, customer)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, models.Response{
				Status:  http.StatusServiceUnavailable,
				Message: "Temporary storage failure, please retry",
			})
		}
		if created {
			if err := rc.partners.IncrementReferrals(ctx, partner.ID); err != nil {
				// Counter drift only; the referrals collection stays correct.
				log.Printf("Failed to bump referral counter for partner %s: %v", partner.ID.Hex(), err)
			}
		}
		return c.JSON(http.StatusOK, models.Response{
			Status:  http.StatusOK,
			Message: "Referral recorded",
			Data:    map[string]bool{"firstTouch": created},
		})
	}

	advanced, err := rc.referrals.AdvanceStage(ctx, partner.ID, req.CustomerRef, req.Stage, now)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, models.Response{
			Status:  http.StatusServiceUnavailable,
			Message: "Temporary storage failure, please retry",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Referral stage recorded",
		Data:    map[string]bool{"advanced": advanced},
	})
}
