package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/middleware"
	"github.com/captionly/partner_backend/models"
	"github.com/captionly/partner_backend/repositories"
	"github.com/captionly/partner_backend/utils"
)

type PartnerController struct {
	partners *repositories.PartnerRepository
}

func NewPartnerController(partners *repositories.PartnerRepository) *PartnerController {
	return &PartnerController{partners: partners}
}

// CreatePartner onboards a new partner with a generated referral code.
// Admin only.
func (pc *PartnerController) CreatePartner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.CreatePartnerRequest
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
			Message: "Invalid partner data",
			Data:    err.Error(),
		})
	}

	referralCode, err := utils.GeneratePartnerReferralCode()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate referral code",
		})
	}

	partner := &models.Partner{
		Name:           req.Name,
		Email:          req.Email,
		ReferralCode:   referralCode,
		CommissionRate: req.CommissionRate,
	}

	id, err := pc.partners.Insert(ctx, partner)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return c.JSON(http.StatusConflict, models.Response{
				Status:  http.StatusConflict,
				Message: "A partner with this email or referral code already exists",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create partner",
		})
	}
	partner.ID = id

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Partner created successfully",
		Data:    partner,
	})
}

// GetPartner returns one partner's profile and cumulative stats.
func (pc *PartnerController) GetPartner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := c.Param("id")
	if middleware.ExtractRole(c) != "admin" {
		claimID, err := middleware.ExtractPartnerID(c)
		if err != nil || claimID != id {
			return c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Not authorized for this partner",
			})
		}
	}

	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}

	partner, err := pc.partners.FindByID(ctx, objID)
	if err != nil {
		if errors.Is(err, models.ErrPartnerNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Partner not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Database error",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Partner fetched successfully",
		Data:    partner,
	})
}

// DeactivatePartner flags a partner as inactive; partner records are never
// deleted. Admin only.
func (pc *PartnerController) DeactivatePartner(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	objID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}

	if err := pc.partners.Deactivate(ctx, objID); err != nil {
		if errors.Is(err, models.ErrPartnerNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Partner not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to deactivate partner",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Partner deactivated successfully",
	})
}
