package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/edumeet/internal/classroom"
	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
	"github.com/noah-isme/edumeet/pkg/response"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// ClassroomHandler drives the simulated classroom of a workspace.
type ClassroomHandler struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewClassroomHandler creates a new handler. allowedOrigins gates websocket upgrades; empty allows any.
func NewClassroomHandler(allowedOrigins []string, logger *zap.Logger) *ClassroomHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &ClassroomHandler{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin]
			},
		},
	}
}

// State godoc
// @Summary Classroom state
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom [get]
func (h *ClassroomHandler) State(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.State(), ws)
}

// Join godoc
// @Summary Join class
// @Description Joins the given class, or the nearest upcoming one when class_id is empty
// @Tags Classroom
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.JoinClassRequest false "Join options"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classroom/join [post]
func (h *ClassroomHandler) Join(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	req := models.JoinClassRequest{Camera: true, Microphone: true}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid join payload"), ws)
			return
		}
	}
	state, err := ws.Room.Join(c.Request.Context(), req.ClassID, classroom.MediaGrant{Camera: req.Camera, Microphone: req.Microphone})
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, state, ws)
}

// Leave godoc
// @Summary Leave class
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom/leave [post]
func (h *ClassroomHandler) Leave(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.Leave(), ws)
}

// ToggleVideo godoc
// @Summary Toggle camera
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom/video [post]
func (h *ClassroomHandler) ToggleVideo(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.ToggleVideo(), ws)
}

// ToggleAudio godoc
// @Summary Toggle microphone
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom/audio [post]
func (h *ClassroomHandler) ToggleAudio(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.ToggleAudio(), ws)
}

// ToggleHand godoc
// @Summary Raise or lower hand
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom/hand [post]
func (h *ClassroomHandler) ToggleHand(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.ToggleHand(), ws)
}

// ToggleScreenShare godoc
// @Summary Toggle screen sharing
// @Tags Classroom
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ScreenShareRequest false "Display capture grant"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /classroom/screen-share [post]
func (h *ClassroomHandler) ToggleScreenShare(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	req := models.ScreenShareRequest{Granted: true}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid screen share payload"), ws)
			return
		}
	}
	state, err := ws.Room.ToggleScreenShare(c.Request.Context(), classroom.MediaGrant{Display: req.Granted})
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, state, ws)
}

// ScreenShareEnded godoc
// @Summary Screen sharing stopped by the browser
// @Tags Classroom
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classroom/screen-share/ended [post]
func (h *ClassroomHandler) ScreenShareEnded(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	state, err := ws.Room.ScreenShareEnded(c.Request.Context())
	if err != nil {
		response.Error(c, err, ws)
		return
	}
	response.JSON(c, http.StatusOK, state, ws)
}

// SendMessage godoc
// @Summary Send chat message
// @Tags Classroom
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChatMessageRequest true "Message"
// @Success 200 {object} response.Envelope
// @Router /classroom/messages [post]
func (h *ClassroomHandler) SendMessage(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	var req models.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"), ws)
		return
	}
	response.JSON(c, http.StatusOK, ws.Room.SendMessage(req.Text), ws)
}

// Events godoc
// @Summary Classroom event feed
// @Description Websocket stream of tile, participant and chat events
// @Tags Classroom
// @Security BearerAuth
// @Router /classroom/events [get]
func (h *ClassroomHandler) Events(c *gin.Context) {
	ws, ok := workspaceFromContext(c)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	feed, cancel := ws.Room.Subscribe()
	defer cancel()

	// the reader only handles control frames and notices the client going away
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		case evt, open := <-feed:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !open {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "workspace closed"))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
