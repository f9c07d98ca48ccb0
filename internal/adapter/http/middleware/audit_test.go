package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jamarblack/Degen-Arena/internal/core/domain"
	"github.com/Jamarblack/Degen-Arena/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func auditRouter(t *testing.T) (*gin.Engine, *mocks.MockAuditService) {
	ctrl := gomock.NewController(t)
	auditSvc := mocks.NewMockAuditService(ctrl)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(CtxOperator, "referee"); c.Next() })
	r.Use(AuditLog(auditSvc))
	r.POST("/api/v1/admin/settlement/run", func(c *gin.Context) { c.Status(http.StatusAccepted) })
	r.DELETE("/api/v1/admin/quarantine/:id", func(c *gin.Context) {
		if c.Param("id") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.GET("/api/v1/admin/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/v1/wagers", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r, auditSvc
}

func TestAuditLog_SettlementTrigger(t *testing.T) {
	r, auditSvc := auditRouter(t)

	auditSvc.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, log *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionSettlementTriggered, log.Action)
		assert.Equal(t, "settlement", log.ResourceType)
		assert.Contains(t, log.Details, `"operator":"referee"`)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlement/run", nil))
}

func TestAuditLog_QuarantineReleaseCarriesWagerID(t *testing.T) {
	r, auditSvc := auditRouter(t)

	auditSvc.EXPECT().Log(gomock.Any(), gomock.Any()).Do(func(_ context.Context, log *domain.AuditLog) {
		assert.Equal(t, domain.AuditActionQuarantineReleased, log.Action)
		assert.Equal(t, "0b7a4c3e-0000-4000-8000-000000000001", log.ResourceID)
	})

	r.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodDelete, "/api/v1/admin/quarantine/0b7a4c3e-0000-4000-8000-000000000001", nil))
}

func TestAuditLog_SkipsReadsFailuresAndUnmapped(t *testing.T) {
	r, _ := auditRouter(t) // no Log expected

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/v1/admin/quarantine/missing", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/wagers", nil))
}
