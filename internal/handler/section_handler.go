package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/pkg/response"
)

// SectionHandler switches the visible section of a workspace.
type SectionHandler struct{}

// NewSectionHandler creates a new handler.
func NewSectionHandler() *SectionHandler {
	return &SectionHandler{}
}

// Show godoc
// @Summary Show section
// @Description Make a section visible, run its loaders and return the rendered fragment
// @Tags Navigation
// @Produce json
// @Security BearerAuth
// @Param id path string true "Section id"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /sections/{id} [get]
func (h *SectionHandler) Show(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	view, err := ws.Navigator.ShowSection(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.Section(c, view.Section, view, ws)
}
