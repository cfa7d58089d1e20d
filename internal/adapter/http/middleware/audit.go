package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"storefront/internal/core/domain"
	"storefront/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful state-changing requests. Handlers publish the
// affected resource id under CtxResourceID.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var actorID *uuid.UUID
		if uid, exists := c.Get(CtxUserID); exists {
			if id, ok := uid.(uuid.UUID); ok {
				actorID = &id
			}
		}

		details, _ := json.Marshal(map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

// mapPathToAction works on the matched route template, not the raw path.
func mapPathToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/orders" && method == http.MethodPost:
		return domain.AuditActionOrderPlaced, "order"
	case route == "/api/v1/orders/:id/status" && method == http.MethodPatch:
		return domain.AuditActionOrderStatusChanged, "order"
	case route == "/api/v1/products" && method == http.MethodPost:
		return domain.AuditActionListingCreated, "product"
	case route == "/api/v1/wallet/topup" && method == http.MethodPost:
		return domain.AuditActionWalletTopup, "wallet"
	}
	return "", ""
}
