package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/captionly/partner_backend/models"
	"github.com/captionly/partner_backend/services"
)

type CommissionController struct {
	processor *services.CommissionProcessor
	billing   *services.BillingService
}

func NewCommissionController(processor *services.CommissionProcessor, billing *services.BillingService) *CommissionController {
	return &CommissionController{
		processor: processor,
		billing:   billing,
	}
}

// HandleInvoicePaid processes one invoice-paid webhook delivery. Replays of
// an already-processed invoice return 200 with the existing ledger entry id,
// so the provider stops redelivering. An unknown partner is a skip (404),
// not a retryable failure.
func (cc *CommissionController) HandleInvoicePaid(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var req models.InvoicePaidRequest
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
			Message: "Invalid webhook payload",
			Data:    err.Error(),
		})
	}
	if !req.PeriodEnd.After(req.PeriodStart) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Billing period end must be after period start",
		})
	}

	eventID := req.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}

	partnerID, err := primitive.ObjectIDFromHex(req.PartnerID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}

	if cc.billing.Enabled() {
		if err := cc.billing.VerifyInvoice(ctx, req.InvoiceID); err != nil {
			log.Printf("Event %s: invoice %s failed provider verification: %v", eventID, req.InvoiceID, err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Invoice verification failed, delivery will be retried",
			})
		}
	}

	result, err := cc.processor.ProcessCommission(ctx, partnerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrPartnerNotFound):
			log.Printf("Event %s: partner %s not found, skipping invoice %s", eventID, req.PartnerID, req.InvoiceID)
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Partner not found, commission skipped",
			})
		case errors.Is(err, models.ErrInvalidAmount):
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid gross amount",
			})
		case errors.Is(err, models.ErrTransientStore):
			log.Printf("Event %s: transient failure for invoice %s: %v", eventID, req.InvoiceID, err)
			return c.JSON(http.StatusBadGateway, models.Response{
				Status:  http.StatusBadGateway,
				Message: "Temporary storage failure, delivery will be retried",
			})
		default:
			log.Printf("Event %s: failed to process invoice %s: %v", eventID, req.InvoiceID, err)
			return c.JSON(http.StatusInternalServerError, models.Response{
				Status:  http.StatusInternalServerError,
				Message: "Failed to process commission",
			})
		}
	}

	message := "Commission recorded"
	if result.AlreadyProcessed {
		message = "Commission already recorded for this invoice"
	} else if !result.StatsUpdated {
		message = "Commission recorded, statistics update deferred"
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    result,
	})
}
