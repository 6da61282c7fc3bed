package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/favorite"
	"github.com/zulandar/buildwatch/internal/kv"
	"github.com/zulandar/buildwatch/internal/notification"
	"github.com/zulandar/buildwatch/internal/project"
)

func (s *server) clientStore(id string) kv.Store {
	return kv.NewDB(s.db).For(id)
}

func (s *server) inbox(id string) *notification.Inbox {
	opts := []notification.Option{notification.WithClock(s.now)}
	if s.demoNotifications {
		opts = append(opts, notification.WithDemoSeed())
	}
	return notification.New(s.clientStore(id), opts...)
}

// handleListFavorites returns the favorite IDs and the matching projects.
func (s *server) handleListFavorites(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	ids, err := favorite.List(c.Request.Context(), s.clientStore(id))
	if err != nil {
		fail(c, err)
		return
	}
	projects, _, _, err := s.loadProjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	selected := favorite.Select(projects, ids)
	if selected == nil {
		selected = []project.ConstructionProject{}
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids, "count": len(selected), "projects": selected})
}

// handleToggleFavorite follows or unfollows a project and keeps the stored
// follower count in step.
func (s *server) handleToggleFavorite(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	projectID := c.Param("projectID")
	following, err := favorite.Toggle(c.Request.Context(), s.clientStore(id), projectID)
	if err != nil {
		fail(c, err)
		return
	}

	delta := -1
	if following {
		delta = 1
	}
	// Projects served from the fallback set are not stored.
	if err := project.AdjustFollowers(s.db.WithContext(c.Request.Context()), projectID, delta); err != nil && !errors.Is(err, project.ErrNotFound) {
		log.Printf("api: adjust followers for %s: %v", projectID, err)
	}
	c.JSON(http.StatusOK, gin.H{"projectId": projectID, "isFollowing": following})
}

// notificationView adds the rendered age to a notification.
type notificationView struct {
	notification.Notification
	TimeAgo string `json:"timeAgo"`
}

func (s *server) handleListNotifications(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	list, err := s.inbox(id).List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	now := s.now()
	views := make([]notificationView, len(list))
	for i, n := range list {
		views[i] = notificationView{Notification: n, TimeAgo: notification.TimeAgo(n.Timestamp, now)}
	}
	unread := notification.Unread(list)
	c.JSON(http.StatusOK, gin.H{
		"notifications": views,
		"unread":        unread,
		"badge":         notification.Badge(unread),
	})
}

func (s *server) handleMarkRead(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	if err := s.inbox(id).MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleMarkAllRead(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	if err := s.inbox(id).MarkAllRead(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleClearNotifications(c *gin.Context) {
	id, ok := clientID(c)
	if !ok {
		return
	}
	if err := s.inbox(id).Clear(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
