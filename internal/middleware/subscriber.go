package middleware

import (
	"net/http"
	"strings"

	"appointly/internal/pkg/jwt"
	"appointly/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

const claimsKey = "subscriber_claims"

// SubscriberAuth validates a realtime subscriber token taken from the
// Authorization header or, for browser websockets, the token query param.
func SubscriberAuth(tokens *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("token")
		if raw == "" {
			header := c.GetHeader("Authorization")
			if header == "" {
				response.Error(c, http.StatusUnauthorized, "Missing subscriber token")
				c.Abort()
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Error(c, http.StatusUnauthorized, "Invalid authorization format")
				c.Abort()
				return
			}
			raw = parts[1]
		}

		claims, err := tokens.ValidateToken(raw)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid subscriber token")
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// SubscriberClaims returns the claims stored by SubscriberAuth.
func SubscriberClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
