package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/workspace"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/logger"
	"github.com/noah-isme/edumeet/pkg/response"
)

// ContextWorkspaceKey is the gin context key storing the resolved workspace.
const ContextWorkspaceKey = "workspace"

// ContextTokenKey stores the bearer token the workspace was resolved with.
const ContextTokenKey = "accessToken"

// WorkspaceResolver is the slice of workspace.Registry the middleware needs.
type WorkspaceResolver interface {
	Resolve(ctx context.Context, token string) (*workspace.Workspace, error)
}

// Workspace protects routes by resolving the bearer token to a signed-in workspace.
func Workspace(registry WorkspaceResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		ws, err := registry.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextWorkspaceKey, ws)
		c.Set(ContextTokenKey, token)
		if user := ws.Store.User(); user != nil {
			c.Set(logger.ContextUserIDKey, user.ID)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		// browsers cannot set headers on websocket upgrades
		if token := c.Query("access_token"); token != "" && websocketUpgrade(c) {
			return token, true
		}
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func websocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

// CurrentWorkspace returns the workspace stored by Workspace.
func CurrentWorkspace(c *gin.Context) *workspace.Workspace {
	value, exists := c.Get(ContextWorkspaceKey)
	if !exists {
		return nil
	}
	ws, _ := value.(*workspace.Workspace)
	return ws
}
