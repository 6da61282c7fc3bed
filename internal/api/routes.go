package api

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/metrics"
	"github.com/zulandar/buildwatch/internal/notification"
	"github.com/zulandar/buildwatch/internal/project"
)

// clientHeader carries the browser's stable client ID. EventSource cannot set
// headers, so the client query parameter is accepted as well.
const clientHeader = "X-Client-ID"

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// registerRoutes sets up all API routes on the gin router.
func registerRoutes(router *gin.Engine, s *server, m *metrics.Metrics) {
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})

	router.GET("/healthz", s.handleHealth)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	api := router.Group("/api")

	// Projects.
	api.GET("/construction-projects", s.handleListProjects)
	api.GET("/construction-projects/:id", s.handleGetProject)
	api.POST("/construction-projects/:id/updates", s.handleAddUpdate)
	api.POST("/construction-projects/:id/updates/:updateID/like", s.handleLikeUpdate)
	api.POST("/construction-projects/:id/images", s.handleAddImage)
	api.GET("/search", s.handleSearch)
	api.GET("/phases", s.handlePhases)

	// Per-client state.
	api.GET("/favorites", s.handleListFavorites)
	api.POST("/favorites/:projectID", s.handleToggleFavorite)
	api.GET("/notifications", s.handleListNotifications)
	api.POST("/notifications/read", s.handleMarkAllRead)
	api.POST("/notifications/:id/read", s.handleMarkRead)
	api.DELETE("/notifications", s.handleClearNotifications)

	api.GET("/events", s.handleEvents)
}

func (s *server) handleHealth(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// clientID returns the caller's client ID, writing a 400 and returning false
// when it is missing or malformed.
func clientID(c *gin.Context) (string, bool) {
	id := c.GetHeader(clientHeader)
	if id == "" {
		id = c.Query("client")
	}
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": clientHeader + " header is required"})
		return "", false
	}
	if !clientIDPattern.MatchString(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return "", false
	}
	return id, true
}

// optionalClientID returns the client ID when one is supplied and valid.
func optionalClientID(c *gin.Context) string {
	id := c.GetHeader(clientHeader)
	if id == "" {
		id = c.Query("client")
	}
	if !clientIDPattern.MatchString(id) {
		return ""
	}
	return id
}

// fail maps an error onto a JSON error response.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, project.ErrNotFound), errors.Is(err, notification.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, project.ErrInvalid), errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

var errBadRequest = errors.New("api: bad request")
