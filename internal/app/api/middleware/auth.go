package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fstopworks/darkroom/internal/app/service/identity"
	"github.com/fstopworks/darkroom/internal/models"
	"github.com/fstopworks/darkroom/pkg/response"
)

const (
	ContextKeyProfile = "profile"
	ContextKeyUserID  = "user_id"
)

// BearerToken extracts the token from an Authorization header. Empty string
// when the header is missing or not a bearer scheme.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware resolves the caller's profile from the bearer token and
// attaches it to the request. Routes behind it return 401 on auth failure;
// the redemption endpoint deliberately does not use it because its wire
// contract reports auth failures inside a 200 envelope.
func AuthMiddleware(ids *identity.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing bearer token"))
			return
		}

		profile, err := ids.ResolveUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "invalid session"))
			return
		}

		c.Set(ContextKeyProfile, profile)
		c.Set(ContextKeyUserID, profile.ID)
		ctx := context.WithValue(c.Request.Context(), ContextKeyUserID, profile.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminMiddleware gates admin routes on the profile's admin flag. Must run
// after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile := ProfileFromContext(c)
		if profile == nil || !profile.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, "admin access required"))
			return
		}
		c.Next()
	}
}

// ProfileFromContext returns the profile set by AuthMiddleware, or nil.
func ProfileFromContext(c *gin.Context) *models.Profile {
	if v, ok := c.Get(ContextKeyProfile); ok {
		if p, ok := v.(*models.Profile); ok {
			return p
		}
	}
	return nil
}
