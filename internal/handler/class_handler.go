package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
)

// ClassHandler schedules and lists classes.
type ClassHandler struct{}

// NewClassHandler creates a new handler.
func NewClassHandler() *ClassHandler {
	return &ClassHandler{}
}

// Upcoming godoc
// @Summary Upcoming classes
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum number of classes"
// @Success 200 {object} response.Envelope
// @Router /classes/upcoming [get]
func (h *ClassHandler) Upcoming(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive number"), ws)
			return
		}
		limit = n
	}
	classes, err := ws.Classes.ListUpcoming(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, classes, ws)
}

// Create godoc
// @Summary Schedule class
// @Description Creates a class with a generated meeting link
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.CreateClassRequest true "Class"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	var req models.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"), ws)
		return
	}
	created, err := ws.Classes.CreateClass(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.Created(c, created, ws)
}
