// middleware/jwt_middleware.go
package middleware

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// JwtCustomClaims for JWT token
type JwtCustomClaims struct {
	PartnerID string `json:"partnerId"`
	Email     string `json:"email"`
	Role      string `json:"role"` // "partner" or "admin"
	jwt.StandardClaims
}

// Valid implements the Claims interface for backward compatibility with Echo's JWT middleware
func (c JwtCustomClaims) Valid() error {
	if c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt {
		return errors.New("token is expired")
	}
	if c.NotBefore > 0 && time.Now().Unix() < c.NotBefore {
		return errors.New("token used before valid")
	}
	return nil
}

// GetJWTSecret returns the JWT secret from environment variables
func GetJWTSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET environment variable is required")
	}
	return secret
}

// JWTMiddleware authenticates dashboard requests and stores the caller's
// claims on the Echo context.
func JWTMiddleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		Claims:     &JwtCustomClaims{},
		SigningKey: []byte(GetJWTSecret()),
		SuccessHandler: func(c echo.Context) {
			token := c.Get("user").(*jwt.Token)
			claims := token.Claims.(*JwtCustomClaims)
			c.Set("partnerId", claims.PartnerID)
			c.Set("email", claims.Email)
			c.Set("role", claims.Role)
		},
	})
}

// GenerateJWT issues a signed token for a partner or admin caller.
func GenerateJWT(partnerID, email, role string) (string, error) {
	claims := &JwtCustomClaims{
		PartnerID: partnerID,
		Email:     email,
		Role:      role,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
			IssuedAt:  time.Now().Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ExtractPartnerID returns the authenticated caller's partner id.
func ExtractPartnerID(c echo.Context) (string, error) {
	partnerID, ok := c.Get("partnerId").(string)
	if !ok || partnerID == "" {
		return "", errors.New("partner ID not found in token")
	}
	return partnerID, nil
}

// ExtractRole returns the authenticated caller's role, defaulting to
// "partner" when the claim is absent.
func ExtractRole(c echo.Context) string {
	role, ok := c.Get("role").(string)
	if !ok || role == "" {
		return "partner"
	}
	return role
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ExtractRole(c) != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}
