package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/captionly/partner_backend/controllers"
	"github.com/captionly/partner_backend/middleware"
)

// RegisterWebhookRoutes wires the service-to-service endpoints: billing
// webhook deliveries and referral funnel tracking from the web app. Both
// authenticate with the shared webhook secret rather than a user JWT.
func RegisterWebhookRoutes(e *echo.Echo, commissionController *controllers.CommissionController, referralController *controllers.ReferralController) {
	hooks := e.Group("/webhooks")
	hooks.Use(middleware.WebhookAuth())

	hooks.POST("/billing/invoice-paid", commissionController.HandleInvoicePaid)
	hooks.POST("/referrals/track", referralController.TrackReferral)
}
