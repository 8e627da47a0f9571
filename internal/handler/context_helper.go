package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/middleware"
	"github.com/noah-isme/edumeet/internal/workspace"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
)

// workspaceFromContext writes an unauthorized response when the middleware did not run.
func workspaceFromContext(c *gin.Context) (*workspace.Workspace, bool) {
	ws := middleware.CurrentWorkspace(c)
	if ws == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return ws, true
}
