package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/crewbook/portal/internal/identity"
)

const claimsKey = "identityClaims"

// Auth validates the Authorization header and attaches verified claims.
type Auth struct {
	Verifier identity.Verifier
}

// Require ensures the request carries a valid bearer credential. The only
// failure detail exposed is expired vs invalid.
func (m *Auth) Require(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized: Missing token"})
		return
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized: Bearer token required"})
		return
	}

	claims, err := m.Verifier.Verify(c.Request.Context(), parts[1])
	if err != nil {
		if errors.Is(err, identity.ErrTokenExpired) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Token expired. Please sign in again."})
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Unauthorized: Invalid token"})
		return
	}

	c.Set(claimsKey, claims)
	c.Next()
}

// GetClaims exposes the verified claims to handlers.
func GetClaims(c *gin.Context) (identity.Claims, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return identity.Claims{}, false
	}
	claims, ok := value.(identity.Claims)
	return claims, ok
}
