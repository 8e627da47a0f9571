package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/middleware"
	"github.com/noah-isme/edumeet/internal/models"
	"github.com/noah-isme/edumeet/internal/navigation"
	"github.com/noah-isme/edumeet/internal/workspace"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
)

type sessionRegistry interface {
	SignIn(ctx context.Context, req models.LoginRequest) (*workspace.Workspace, *models.Session, error)
	SignOut(ctx context.Context, token string, ws *workspace.Workspace) error
	Rekey(oldToken string, ws *workspace.Workspace)
}

// SessionView is what the client needs to render the shell.
type SessionView struct {
	AccessToken  string               `json:"access_token,omitempty"`
	ExpiresAt    *time.Time           `json:"expires_at,omitempty"`
	User         *models.User         `json:"user"`
	Role         models.UserRole      `json:"role"`
	Section      string               `json:"section"`
	ShellVisible bool                 `json:"shell_visible"`
	LoginTab     string               `json:"login_tab,omitempty"`
	InClass      bool                 `json:"in_class"`
	Nav          []navigation.NavItem `json:"nav"`
}

func sessionView(ws *workspace.Workspace) SessionView {
	snap := ws.Store.Snapshot()
	return SessionView{
		User:         snap.User,
		Role:         snap.Role,
		Section:      snap.Section,
		ShellVisible: snap.ShellVisible,
		LoginTab:     snap.LoginTab,
		InClass:      snap.InClass,
		Nav:          ws.Navigator.Items(),
	}
}

// AuthHandler wires HTTP endpoints to the session controller.
type AuthHandler struct {
	registry sessionRegistry
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(registry sessionRegistry) *AuthHandler {
	return &AuthHandler{registry: registry}
}

// Login godoc
// @Summary Sign in
// @Description Authenticate with email and password and open a workspace
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	ws, session, err := h.registry.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	view := sessionView(ws)
	view.AccessToken = session.AccessToken
	if !session.ExpiresAt.IsZero() {
		expires := session.ExpiresAt
		view.ExpiresAt = &expires
	}
	response.JSON(c, http.StatusOK, view, ws)
}

// Logout godoc
// @Summary Sign out
// @Description End the current session and discard its workspace
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	if err := h.registry.SignOut(c.Request.Context(), c.GetString(middleware.ContextTokenKey), ws); err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, sessionView(ws), ws)
}

// Session godoc
// @Summary Current session
// @Description Returns the signed-in user, role and navigation
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, sessionView(ws), ws)
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Change the display name; the role is kept
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateProfileRequest true "Profile"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"), ws)
		return
	}

	if _, err := ws.Session.UpdateProfile(c.Request.Context(), req); err != nil {
		response.Error(c, err, ws)
		return
	}

	oldToken := c.GetString(middleware.ContextTokenKey)
	h.registry.Rekey(oldToken, ws)
	view := sessionView(ws)
	if token := ws.Session.AccessToken(); token != oldToken {
		view.AccessToken = token
	}
	response.JSON(c, http.StatusOK, view, ws)
}
