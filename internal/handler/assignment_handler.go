package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/grading"
	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
)

// AssignmentHandler exposes the assignment list, creation and submission.
type AssignmentHandler struct{}

// NewAssignmentHandler creates a new handler.
func NewAssignmentHandler() *AssignmentHandler {
	return &AssignmentHandler{}
}

// List godoc
// @Summary List assignments
// @Description Filter the cached assignment list; loads it first when empty or when refresh=true
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all|pending|submitted|graded"
// @Param refresh query bool false "Reload from the backend"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" || len(ws.Store.Assignments()) == 0 {
		if err := ws.Assignments.Load(c.Request.Context()); err != nil {
			response.Error(c, err, ws)
			return
		}
	}
	response.JSON(c, http.StatusOK, ws.Assignments.List(grading.ParseFilter(c.Query("filter"))), ws)
}

// New godoc
// @Summary Open the create-assignment form
// @Description Teachers receive their class options; everyone else gets a rejection notification
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/new [get]
func (h *AssignmentHandler) New(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	form, err := ws.Assignments.CreateAssignment(c.Request.Context())
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, form, ws)
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	var req models.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"), ws)
		return
	}
	created, err := ws.Assignments.SaveAssignment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.Created(c, created, ws)
}

// Submit godoc
// @Summary Submit assignment
// @Description Blank content is ignored and answered with 204
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Assignment ID"
// @Param payload body models.SubmitAssignmentRequest true "Submission"
// @Success 201 {object} response.Envelope
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/{id}/submit [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	var req models.SubmitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"), ws)
		return
	}
	sub, err := ws.Assignments.SubmitAssignment(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	if sub == nil {
		response.NoContent(c)
		return
	}
	response.Created(c, sub, ws)
}
