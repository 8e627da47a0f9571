package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/service"
	"github.com/noah-isme/edumeet/internal/workspace"
	"github.com/noah-isme/edumeet/pkg/backend/backendtest"
	"github.com/noah-isme/edumeet/pkg/response"
)

var teacher = models.User{ID: "teacher-1", Email: "teacher@example.com", UserMetadata: models.UserMetadata{Role: models.RoleTeacher}}

func newRouter(t *testing.T, handlers ...gin.HandlerFunc) (*gin.Engine, *backendtest.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem := backendtest.New()
	reg := workspace.NewRegistry(workspace.Deps{Backend: mem.Factory()})
	t.Cleanup(reg.Close)

	r := gin.New()
	chain := append([]gin.HandlerFunc{Workspace(reg)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		ws := CurrentWorkspace(c)
		response.JSON(c, http.StatusOK, gin.H{"user_id": ws.Store.User().ID}, nil)
	})
	r.GET("/protected", chain...)
	return r, mem
}

func TestWorkspaceRejectsMissingToken(t *testing.T) {
	r, _ := newRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkspaceRejectsMalformedHeader(t *testing.T) {
	r, mem := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token "+mem.IssueToken(teacher))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWorkspaceResolvesBearerToken(t *testing.T) {
	r, mem := newRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+mem.IssueToken(teacher))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "teacher-1", body.Data["user_id"])
}

func TestRequireRolesForbidsOtherRoles(t *testing.T) {
	r, mem := newRouter(t, RequireRoles(models.RoleStudent))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+mem.IssueToken(teacher))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "role required")
}

func TestMetricsRecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}

func TestMetricsSkipsScrapesAndFeeds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/feed", func(c *gin.Context) { c.Status(http.StatusBadRequest) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Upgrade", "websocket")
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, uint64(0), metrics.Snapshot().RequestsTotal)
}
