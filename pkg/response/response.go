package response

import (
	"errors"
	"net/http"

	"storefront/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the failure envelope: {success:false, message}.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id"`
}

// OK sends a 200 {success:true, ...fields} response.
func OK(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusOK, envelope(c, fields))
}

// Created sends a 201 {success:true, ...fields} response.
func Created(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusCreated, envelope(c, fields))
}

// Error sends an error response. *apperror.AppError values keep their status
// and caller-safe message; anything else becomes a generic 500. The original
// error is attached to the gin context so the request logger records the
// full detail server-side.
func Error(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{
			Message:   appErr.Message,
			ErrorCode: appErr.Code,
			RequestID: getRequestID(c),
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Message:   "Internal server error",
		ErrorCode: "TXN_000",
		RequestID: getRequestID(c),
	})
}

func envelope(c *gin.Context, fields gin.H) gin.H {
	out := gin.H{}
	for k, v := range fields {
		out[k] = v
	}
	out["success"] = true
	out["request_id"] = getRequestID(c)
	return out
}

// getRequestID retrieves request ID from context, or generates one.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get("request_id"); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return uuid.New().String()
}
