// Package project provides the construction project view model and its
// storage, filtering and search operations.
package project

import (
	"strings"
	"time"

	"github.com/zulandar/buildwatch/internal/models"
	"github.com/zulandar/buildwatch/internal/phase"
)

// Project types.
const (
	TypeNewBuild   = "New Build"
	TypeRenovation = "Renovation"
	TypeDemolition = "Demolition"
	TypeAddition   = "Addition"
)

// Permit statuses.
const (
	StatusActivePermit      = "ACTIVE PERMIT"
	StatusUnderConstruction = "UNDER CONSTRUCTION"
	StatusCompleted         = "COMPLETED"
	StatusOnHold            = "ON HOLD"
)

// Image types.
const (
	ImageProgress = "progress"
	ImageBefore   = "before"
	ImageAfter    = "after"
)

// ConstructionProject is the record handed to the display layer. Phases and
// CurrentPhase are derived from OverallProgress by Assemble and must not be
// edited directly.
type ConstructionProject struct {
	ID                  string        `json:"id"`
	Name                string        `json:"name"`
	Address             string        `json:"address"`
	ProjectType         string        `json:"projectType"`
	Description         string        `json:"description"`
	Value               float64       `json:"value"`
	PermitNumber        string        `json:"permitNumber"`
	PermitDate          string        `json:"permitDate"`
	Status              string        `json:"status"`
	Latitude            float64       `json:"latitude"`
	Longitude           float64       `json:"longitude"`
	Contractor          string        `json:"contractor"`
	EstimatedCompletion string        `json:"estimatedCompletion"`
	OverallProgress     int           `json:"overallProgress"`
	CurrentPhase        phase.Phase   `json:"currentPhase"`
	Phases              []phase.Phase `json:"phases"`
	Images              []Image       `json:"images"`
	BeforeImage         string        `json:"beforeImage,omitempty"`
	AfterImage          string        `json:"afterImage,omitempty"`
	Updates             []Update      `json:"updates"`
	Followers           int           `json:"followers"`
	IsFollowing         bool          `json:"isFollowing"`
}

// Image is photo metadata.
type Image struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Caption    string    `json:"caption,omitempty"`
	UploadedBy string    `json:"uploadedBy"`
	UploadedAt time.Time `json:"uploadedAt"`
	Type       string    `json:"type"`
}

// Update is a community comment.
type Update struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Likes     int       `json:"likes"`
}

// Assemble clamps OverallProgress and rebuilds Phases and CurrentPhase from it.
func Assemble(p ConstructionProject) ConstructionProject {
	p.OverallProgress = phase.Clamp(p.OverallProgress)
	p.Phases = phase.Derive(p.OverallProgress)
	p.CurrentPhase = phase.Current(p.Phases)
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.Updates == nil {
		p.Updates = []Update{}
	}
	return p
}

// FromModel converts a stored project to its assembled view.
func FromModel(m models.Project) ConstructionProject {
	p := ConstructionProject{
		ID:                  m.ID,
		Name:                m.Name,
		Address:             m.Address,
		ProjectType:         m.ProjectType,
		Description:         m.Description,
		Value:               m.Value,
		PermitNumber:        m.PermitNumber,
		PermitDate:          m.PermitDate,
		Status:              m.Status,
		Latitude:            m.Latitude,
		Longitude:           m.Longitude,
		Contractor:          m.Contractor,
		EstimatedCompletion: m.EstimatedCompletion,
		OverallProgress:     m.OverallProgress,
		BeforeImage:         m.BeforeImage,
		AfterImage:          m.AfterImage,
		Followers:           m.Followers,
	}
	for _, img := range m.Images {
		p.Images = append(p.Images, Image{
			ID:         localID(m.ID, img.ID),
			URL:        img.URL,
			Caption:    img.Caption,
			UploadedBy: img.UploadedBy,
			UploadedAt: img.UploadedAt,
			Type:       img.Type,
		})
	}
	for _, u := range m.Updates {
		p.Updates = append(p.Updates, Update{
			ID:        localID(m.ID, u.ID),
			Username:  u.Username,
			Avatar:    u.Avatar,
			Text:      u.Text,
			Timestamp: u.Timestamp,
			Likes:     u.Likes,
		})
	}
	return Assemble(p)
}

// ToModel converts a view to a storable project, tagging it with source.
func ToModel(p ConstructionProject, source string) models.Project {
	m := models.Project{
		ID:                  p.ID,
		Name:                p.Name,
		Address:             p.Address,
		ProjectType:         p.ProjectType,
		Description:         p.Description,
		Value:               p.Value,
		PermitNumber:        p.PermitNumber,
		PermitDate:          p.PermitDate,
		Status:              p.Status,
		Latitude:            p.Latitude,
		Longitude:           p.Longitude,
		Contractor:          p.Contractor,
		EstimatedCompletion: p.EstimatedCompletion,
		OverallProgress:     phase.Clamp(p.OverallProgress),
		BeforeImage:         p.BeforeImage,
		AfterImage:          p.AfterImage,
		Followers:           p.Followers,
		Source:              source,
	}
	for _, img := range p.Images {
		m.Images = append(m.Images, models.ProjectImage{
			ID:         scopedID(p.ID, img.ID),
			ProjectID:  p.ID,
			URL:        img.URL,
			Caption:    img.Caption,
			UploadedBy: img.UploadedBy,
			UploadedAt: img.UploadedAt,
			Type:       img.Type,
		})
	}
	for _, u := range p.Updates {
		m.Updates = append(m.Updates, models.ProjectUpdate{
			ID:        scopedID(p.ID, u.ID),
			ProjectID: p.ID,
			Username:  u.Username,
			Avatar:    u.Avatar,
			Text:      u.Text,
			Timestamp: u.Timestamp,
			Likes:     u.Likes,
		})
	}
	return m
}

// scopedID prefixes per-project child IDs (such as "img-1") with the project
// ID so they are unique across the table.
func scopedID(projectID, id string) string {
	return projectID + ":" + localID(projectID, id)
}

// localID strips the project prefix added by scopedID.
func localID(projectID, id string) string {
	return strings.TrimPrefix(id, projectID+":")
}

// ValidType reports whether t is a known project type.
func ValidType(t string) bool {
	switch t {
	case TypeNewBuild, TypeRenovation, TypeDemolition, TypeAddition:
		return true
	}
	return false
}
