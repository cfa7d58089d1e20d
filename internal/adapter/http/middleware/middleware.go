package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/core/domain"
	"storefront/internal/core/ports"
	"storefront/pkg/apperror"
	"storefront/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxIdentity   = "identity"
	CtxUserID     = "user_id"
	CtxRequestID  = "request_id"
	CtxResourceID = "resource_id"
)

// RequestID propagates the caller's X-Request-ID or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(CtxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Authorize validates the bearer token and requires capability. The
// resolved identity is stored under CtxIdentity and its user id under
// CtxUserID.
func Authorize(authorizer ports.Authorizer, capability string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			response.Error(c, apperror.ErrUnauthorized())
			c.Abort()
			return
		}

		identity, err := authorizer.Authorize(token, capability)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(CtxIdentity, identity)
		c.Set(CtxUserID, identity.UserID)
		c.Next()
	}
}

// IdentityFrom returns the identity set by Authorize.
func IdentityFrom(c *gin.Context) (*domain.Identity, bool) {
	v, exists := c.Get(CtxIdentity)
	if !exists {
		return nil, false
	}
	identity, ok := v.(*domain.Identity)
	return identity, ok && identity != nil
}

// RequestLogger creates a middleware that logs every HTTP request along
// with any errors handlers attached to the context.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		if uid, exists := c.Get(CtxUserID); exists {
			event = event.Str("user_id", fmt.Sprint(uid))
		}

		event.
			Str("request_id", c.GetString(CtxRequestID)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Error(c, apperror.InternalError(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}
