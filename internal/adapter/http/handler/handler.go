package handler

import (
	"errors"
	"io"
	"net/http"

	"storefront/internal/adapter/http/middleware"
	"storefront/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// userIDFrom returns the caller id set by middleware.Authorize.
func userIDFrom(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get(middleware.CtxUserID)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized()
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, apperror.ErrUnauthorized()
	}
	return id, nil
}

// pathUUID parses a UUID route parameter.
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid " + name)
	}
	return id, nil
}

// readBody reads the whole request body, mapping a body over the
// MaxBodySize limit to a validation error.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, apperror.Validation("request body is required")
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperror.Validation("request body too large")
		}
		return nil, apperror.Validation("cannot read request body")
	}
	return data, nil
}
