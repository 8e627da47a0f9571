package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edumeet/internal/middleware"
	"github.com/noah-isme/edumeet/internal/models"
)

// Handlers groups every HTTP handler mounted by Register.
type Handlers struct {
	Auth        *AuthHandler
	Sections    *SectionHandler
	Assignments *AssignmentHandler
	Grades      *GradeHandler
	Classes     *ClassHandler
	Classroom   *ClassroomHandler
	Metrics     *MetricsHandler
}

// Register mounts the API under prefix. Routes past the login endpoint need a resolvable bearer token.
func Register(r *gin.Engine, prefix string, resolver middleware.WorkspaceResolver, h Handlers) {
	if h.Metrics != nil {
		r.GET("/health", h.Metrics.Health)
		r.GET("/ready", h.Metrics.Ready)
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)
	// signed links carry their own authorization
	api.GET("/exports/:token", h.Grades.Download)

	secured := api.Group("")
	secured.Use(middleware.Workspace(resolver))
	{
		secured.POST("/auth/logout", h.Auth.Logout)
		secured.GET("/auth/session", h.Auth.Session)
		secured.PUT("/auth/profile", h.Auth.UpdateProfile)

		secured.GET("/sections/:id", h.Sections.Show)

		secured.GET("/assignments", h.Assignments.List)
		secured.GET("/assignments/new", h.Assignments.New)
		secured.POST("/assignments", h.Assignments.Create)
		secured.POST("/assignments/:id/submit", h.Assignments.Submit)

		secured.GET("/grades", h.Grades.List)
		secured.POST("/grades/export", h.Grades.Export)

		secured.GET("/classes/upcoming", h.Classes.Upcoming)
		secured.POST("/classes", middleware.RequireRoles(models.RoleTeacher), h.Classes.Create)

		room := secured.Group("/classroom")
		room.GET("", h.Classroom.State)
		room.GET("/events", h.Classroom.Events)
		room.POST("/join", h.Classroom.Join)
		room.POST("/leave", h.Classroom.Leave)
		room.POST("/video", h.Classroom.ToggleVideo)
		room.POST("/audio", h.Classroom.ToggleAudio)
		room.POST("/hand", h.Classroom.ToggleHand)
		room.POST("/screen-share", h.Classroom.ToggleScreenShare)
		room.POST("/screen-share/ended", h.Classroom.ScreenShareEnded)
		room.POST("/messages", h.Classroom.SendMessage)
	}
}
