// middleware/webhook_auth.go
package middleware

import (
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// WebhookAuth verifies the shared secret the billing provider attaches to
// every delivery. The secret is configured as a bcrypt hash
// (WEBHOOK_SECRET_HASH), so the plaintext never lives in the environment of
// the running service.
func WebhookAuth() echo.MiddlewareFunc {
	secretHash := os.Getenv("WEBHOOK_SECRET_HASH")
	if secretHash == "" {
		log.Println("Warning: WEBHOOK_SECRET_HASH not set, webhook endpoint will reject all deliveries")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secretHash == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "webhook authentication not configured")
			}

			secret := c.Request().Header.Get("X-Webhook-Secret")
			if secret == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing webhook secret")
			}

			if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
			}

			return next(c)
		}
	}
}
