package middleware

import (
	"context"
	"strings"

	"food-order-service/apperrors"
	"food-order-service/metrics"
	"food-order-service/models"
	"food-order-service/service"

	"github.com/gin-gonic/gin"
)

const (
	userKey  = "user"
	tokenKey = "token"
)

// TokenAuthenticator resolves a bearer token to the current user record.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Abort writes the standard error body and stops the chain. The error is
// attached to the context so the access log records what the client is not
// shown.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{
		"error": apperrors.Message(err),
		"code":  apperrors.Code(err),
	})
}

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket handshake, so only the handshake may carry the token
// in the query string.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if c.IsWebsocket() {
		return c.Query("token")
	}
	return ""
}

// AuthRequired validates the token and stores the freshly loaded user in the
// context. The role is never taken from the token.
func AuthRequired(auth TokenAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			metrics.RecordAuthFailure("token")
			Abort(c, err)
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireAdmin(CurrentUser(c)); err != nil {
			metrics.RecordAuthFailure("forbidden")
			Abort(c, err)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated caller, or nil outside AuthRequired.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// CurrentToken returns the token AuthRequired accepted for this request.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
