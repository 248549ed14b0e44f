package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/captionly/partner_backend/controllers"
	"github.com/captionly/partner_backend/middleware"
)

// RegisterPartnerRoutes wires the JWT-protected partner and dashboard
// endpoints.
func RegisterPartnerRoutes(e *echo.Echo, partnerController *controllers.PartnerController, dashboardController *controllers.DashboardController) {
	api := e.Group("/api")
	api.Use(middleware.JWTMiddleware())

	api.POST("/partners", partnerController.CreatePartner, middleware.RequireAdmin)
	api.GET("/partners/:id", partnerController.GetPartner)
	api.DELETE("/partners/:id", partnerController.DeactivatePartner, middleware.RequireAdmin)

	api.GET("/partners/:id/commission-summary", dashboardController.GetCommissionSummary)
	api.GET("/partners/:id/conversion-analytics", dashboardController.GetConversionAnalytics)
	api.GET("/partners/:id/conversion-funnel", dashboardController.GetConversionFunnel)
}
