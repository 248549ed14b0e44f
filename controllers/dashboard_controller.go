package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/middleware"
	"github.com/captionly/partner_backend/models"
	"github.com/captionly/partner_backend/services"
)

// defaultWindowDays is used when the query omits the date range.
const defaultWindowDays = 30

type DashboardController struct {
	funnel *services.FunnelService
}

func NewDashboardController(funnel *services.FunnelService) *DashboardController {
	return &DashboardController{funnel: funnel}
}

// GetCommissionSummary returns ledger totals and recent entries for the
// partner's dashboard.
func (dc *DashboardController) GetCommissionSummary(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, start, end, ok := dc.resolveQuery(c)
	if !ok {
		return nil
	}

	summary, err := dc.funnel.Summarize(ctx, partnerID, start, end)
	if err != nil {
		return dc.readError(c, "commission summary", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission summary fetched successfully",
		Data:    summary,
	})
}

// GetConversionFunnel returns the staged funnel for the window.
func (dc *DashboardController) GetConversionFunnel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, start, end, ok := dc.resolveQuery(c)
	if !ok {
		return nil
	}

	funnel, err := dc.funnel.Funnel(ctx, partnerID, start, end)
	if err != nil {
		return dc.readError(c, "conversion funnel", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Conversion funnel fetched successfully",
		Data:    funnel,
	})
}

// GetConversionAnalytics returns the funnel together with stage-to-stage
// conversion rates.
func (dc *DashboardController) GetConversionAnalytics(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, start, end, ok := dc.resolveQuery(c)
	if !ok {
		return nil
	}

	analytics, err := dc.funnel.Analytics(ctx, partnerID, start, end)
	if err != nil {
		return dc.readError(c, "conversion analytics", err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Conversion analytics fetched successfully",
		Data:    analytics,
	})
}

// resolveQuery authorizes the caller against the requested partner and
// parses the query window. The partner id in the path is never trusted on
// its own: it must match the token claim unless the caller is an admin.
func (dc *DashboardController) resolveQuery(c echo.Context) (primitive.ObjectID, time.Time, time.Time, bool) {
	id := c.Param("id")

	if middleware.ExtractRole(c) != "admin" {
		claimID, err := middleware.ExtractPartnerID(c)
		if err != nil || claimID != id {
			_ = c.JSON(http.StatusForbidden, models.Response{
				Status:  http.StatusForbidden,
				Message: "Not authorized for this partner",
			})
			return primitive.NilObjectID, time.Time{}, time.Time{}, false
		}
	}

	partnerID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
		return primitive.NilObjectID, time.Time{}, time.Time{}, false
	}

	end := time.Now()
	start := end.AddDate(0, 0, -defaultWindowDays)

	if startStr := c.QueryParam("startDate"); startStr != "" {
		parsed, err := parseQueryTime(startStr)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid startDate, expected RFC 3339 or YYYY-MM-DD",
			})
			return primitive.NilObjectID, time.Time{}, time.Time{}, false
		}
		start = parsed
	}
	if endStr := c.QueryParam("endDate"); endStr != "" {
		parsed, err := parseQueryTime(endStr)
		if err != nil {
			_ = c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid endDate, expected RFC 3339 or YYYY-MM-DD",
			})
			return primitive.NilObjectID, time.Time{}, time.Time{}, false
		}
		end = parsed
	}

	if !end.After(start) {
		_ = c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "endDate must be after startDate",
		})
		return primitive.NilObjectID, time.Time{}, time.Time{}, false
	}

	return partnerID, start, end, true
}

func parseQueryTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

// readError maps aggregation failures to a structured "unavailable" response
// so the dashboard can render a retry affordance instead of a raw error.
// Integrity violations are logged loudly; they mean the ledger itself needs
// repair.
func (dc *DashboardController) readError(c echo.Context, what string, err error) error {
	if errors.Is(err, models.ErrDataIntegrity) {
		log.Printf("DATA INTEGRITY VIOLATION in %s: %v", what, err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Ledger data is inconsistent, support has been notified",
		})
	}

	log.Printf("Failed to compute %s: %v", what, err)
	return c.JSON(http.StatusServiceUnavailable, models.Response{
		Status:  http.StatusServiceUnavailable,
		Message: "Dashboard data temporarily unavailable, please retry",
	})
}
