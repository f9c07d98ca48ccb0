package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records successful operator write actions. Wager placement and
// login write their own audit entries in the service layer.
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

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"operator": c.GetString(CtxOperator),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	switch {
	case route == "/api/v1/admin/settlement/run" && method == http.MethodPost:
		return domain.AuditActionSettlementTriggered, "settlement"
	case route == "/api/v1/admin/quarantine/:id" && method == http.MethodDelete:
		return domain.AuditActionQuarantineReleased, "wager"
	}
	return "", ""
}
