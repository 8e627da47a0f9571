package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/models"
	appErrors "github.com/noah-isme/edumeet/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
	Meta  *Meta            `json:"meta,omitempty"`
}

// Meta carries everything that is not the payload itself.
type Meta struct {
	Section       string                `json:"section,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
}

// NotificationSource hands over queued toasts exactly once.
type NotificationSource interface {
	DrainNotifications() []models.Notification
}

func buildMeta(src NotificationSource, section string) *Meta {
	var notes []models.Notification
	if src != nil {
		notes = src.DrainNotifications()
	}
	if len(notes) == 0 && section == "" {
		return nil
	}
	return &Meta{Section: section, Notifications: notes}
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// JSON sends a success response and drains pending notifications into meta.
func JSON(c *gin.Context, status int, data interface{}, src NotificationSource) {
	noStore(c)
	c.JSON(status, Envelope{Data: data, Meta: buildMeta(src, "")})
}

// Section is JSON for navigation responses that also report the visible section.
func Section(c *gin.Context, section string, data interface{}, src NotificationSource) {
	noStore(c)
	c.JSON(http.StatusOK, Envelope{Data: data, Meta: buildMeta(src, section)})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}, src NotificationSource) {
	JSON(c, http.StatusCreated, data, src)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error, src ...NotificationSource) {
	appErr := appErrors.FromError(err)
	noStore(c)
	var from NotificationSource
	if len(src) > 0 {
		from = src[0]
	}
	c.JSON(appErr.Status, Envelope{Error: appErr, Meta: buildMeta(from, "")})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
