package handler

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
	"github.com/noah-isme/edumeet/pkg/storage"
)

// GradeHandler serves the student gradebook and its exports.
type GradeHandler struct {
	files  *storage.LocalStorage
	tokens *storage.SignedURLSigner
	logger *zap.Logger
}

// NewGradeHandler creates a new handler.
func NewGradeHandler(files *storage.LocalStorage, tokens *storage.SignedURLSigner, logger *zap.Logger) *GradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeHandler{files: files, tokens: tokens, logger: logger}
}

// List godoc
// @Summary Gradebook
// @Description Loads the student's submissions joined with assignments
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /grades [get]
func (h *GradeHandler) List(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	if _, err := ws.Gradebook.Load(c.Request.Context()); err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, ws.Gradebook.View(), ws)
}

// Export godoc
// @Summary Export gradebook
// @Description Renders the cached gradebook and returns a signed download link
// @Tags Grades
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv|pdf|xlsx"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/export [post]
func (h *GradeHandler) Export(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	result, err := ws.Gradebook.ExportGrades(c.Request.Context(), models.ExportFormat(c.Query("format")))
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.Created(c, result, ws)
}

// Download godoc
// @Summary Download export
// @Description Streams an export file addressed by a signed token
// @Tags Grades
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *GradeHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.tokens.Parse(c.Param("token"), false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link expired"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		h.logger.Warn("export file missing", zap.String("path", relPath), zap.Error(err))
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export not found"))
		return
	}
	defer file.Close()

	name := path.Base(relPath)
	format := models.ExportFormat(strings.TrimPrefix(path.Ext(name), "."))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", format.ContentType())
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, file); err != nil {
		h.logger.Warn("export stream interrupted", zap.String("path", relPath), zap.Error(err))
	}
}
