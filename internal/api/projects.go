package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/favorite"
	"github.com/zulandar/buildwatch/internal/kv"
	"github.com/zulandar/buildwatch/internal/phase"
	"github.com/zulandar/buildwatch/internal/project"
)

// listResponse is the body of GET /api/construction-projects.
type listResponse struct {
	Success     bool                          `json:"success"`
	Count       int                           `json:"count"`
	Projects    []project.ConstructionProject `json:"projects"`
	Source      string                        `json:"source"`
	LastUpdated string                        `json:"lastUpdated"`
}

// loadProjects returns every stored project, or the fallback set when the
// store is empty.
func (s *server) loadProjects(ctx context.Context) ([]project.ConstructionProject, string, time.Time, error) {
	src, at, ok, err := project.LastRefresh(s.db.WithContext(ctx))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if !ok {
		projects, err := s.fallback.FetchProjects(ctx)
		if err != nil {
			return nil, "", time.Time{}, fmt.Errorf("api: fallback %s: %w", s.fallback.Name(), err)
		}
		return projects, s.fallback.Name(), s.now(), nil
	}
	projects, err := project.List(s.db.WithContext(ctx))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return projects, src, at, nil
}

// markFollowing sets IsFollowing from the caller's favorites when a client
// ID is present.
func (s *server) markFollowing(c *gin.Context, projects []project.ConstructionProject) error {
	id := optionalClientID(c)
	if id == "" {
		return nil
	}
	ids, err := favorite.List(c.Request.Context(), kv.NewDB(s.db).For(id))
	if err != nil {
		return err
	}
	favorite.Mark(projects, ids)
	return nil
}

func parseFloatQuery(c *gin.Context, name string) (float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, nil
}

func (s *server) handleListProjects(c *gin.Context) {
	filter, err := project.ParseFilter(c.Query("filter"))
	if err != nil {
		fail(c, err)
		return
	}
	var opts project.FilterOpts
	for name, dst := range map[string]*float64{"lat": &opts.Latitude, "lng": &opts.Longitude, "radius": &opts.RadiusKM} {
		if *dst, err = parseFloatQuery(c, name); err != nil {
			fail(c, err)
			return
		}
	}

	projects, src, at, err := s.loadProjects(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to fetch construction projects"})
		return
	}
	projects = project.Filter(projects, filter, opts)
	if q := c.Query("q"); len([]rune(strings.TrimSpace(q))) >= project.MinQueryLength {
		projects = project.Search(projects, q, len(projects))
	}
	if projects == nil {
		projects = []project.ConstructionProject{}
	}
	if err := s.markFollowing(c, projects); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Success:     true,
		Count:       len(projects),
		Projects:    projects,
		Source:      src,
		LastUpdated: at.UTC().Format(time.RFC3339),
	})
}

func (s *server) handleGetProject(c *gin.Context) {
	id := c.Param("id")
	projects, _, _, err := s.loadProjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	for _, p := range projects {
		if p.ID != id {
			continue
		}
		one := []project.ConstructionProject{p}
		if err := s.markFollowing(c, one); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, one[0])
		return
	}
	fail(c, fmt.Errorf("%w: %s", project.ErrNotFound, id))
}

func (s *server) handleSearch(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, fmt.Errorf("%w: limit must be a non-negative integer", errBadRequest))
			return
		}
		limit = n
	}
	projects, _, _, err := s.loadProjects(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	results := project.Search(projects, c.Query("q"), limit)
	if results == nil {
		results = []project.ConstructionProject{}
	}
	c.JSON(http.StatusOK, gin.H{"query": c.Query("q"), "count": len(results), "results": results})
}

// handlePhases derives a timeline for an arbitrary progress value.
func (s *server) handlePhases(c *gin.Context) {
	progress, err := strconv.Atoi(c.DefaultQuery("progress", "0"))
	if err != nil {
		fail(c, fmt.Errorf("%w: progress must be an integer", errBadRequest))
		return
	}
	phases := phase.Derive(progress)
	c.JSON(http.StatusOK, gin.H{
		"overallProgress": phase.Clamp(progress),
		"currentPhase":    phase.Current(phases),
		"phases":          phases,
	})
}

type addUpdateRequest struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Text     string `json:"text"`
}

func (s *server) handleAddUpdate(c *gin.Context) {
	var req addUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	u, err := project.AddUpdate(s.db.WithContext(c.Request.Context()), c.Param("id"), project.UpdateOpts{
		Username: req.Username,
		Avatar:   req.Avatar,
		Text:     req.Text,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *server) handleLikeUpdate(c *gin.Context) {
	likes, err := project.LikeUpdate(s.db.WithContext(c.Request.Context()), c.Param("id"), c.Param("updateID"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}

type addImageRequest struct {
	URL        string `json:"url"`
	Caption    string `json:"caption"`
	UploadedBy string `json:"uploadedBy"`
	Type       string `json:"type"`
}

func (s *server) handleAddImage(c *gin.Context) {
	var req addImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	img, err := project.AddImage(s.db.WithContext(c.Request.Context()), c.Param("id"), project.ImageOpts{
		URL:        req.URL,
		Caption:    req.Caption,
		UploadedBy: req.UploadedBy,
		Type:       req.Type,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}
