package models

import "time"

// Project is a stored construction permit. Phases are not stored; they are
// derived from OverallProgress whenever the project is read.
type Project struct {
	ID                  string  `gorm:"primaryKey;size:64"`
	Name                string  `gorm:"size:256;not null"`
	Address             string  `gorm:"size:256;index"`
	ProjectType         string  `gorm:"size:32;index"`
	Description         string  `gorm:"type:text"`
	Value               float64 `gorm:"default:0"`
	PermitNumber        string  `gorm:"size:64;index"`
	PermitDate          string  `gorm:"size:32"`
	Status              string  `gorm:"size:32;index"`
	Latitude            float64
	Longitude           float64
	Contractor          string `gorm:"size:256"`
	EstimatedCompletion string `gorm:"size:32"`
	OverallProgress     int    `gorm:"default:0"`
	BeforeImage         string `gorm:"size:512"`
	AfterImage          string `gorm:"size:512"`
	Followers           int    `gorm:"default:0"`
	Source              string `gorm:"size:64"`
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Images  []ProjectImage  `gorm:"foreignKey:ProjectID"`
	Updates []ProjectUpdate `gorm:"foreignKey:ProjectID"`
}

// ProjectImage is photo metadata attached to a project.
// IDs are scoped as "<project id>:<local id>".
type ProjectImage struct {
	ID         string    `gorm:"primaryKey;size:160"`
	ProjectID  string    `gorm:"size:64;index;not null"`
	URL        string    `gorm:"size:512;not null"`
	Caption    string    `gorm:"size:256"`
	UploadedBy string    `gorm:"size:128"`
	UploadedAt time.Time `gorm:"index"`
	Type       string    `gorm:"size:16;default:progress"`
}

// ProjectUpdate is a community comment on a project.
type ProjectUpdate struct {
	ID        string    `gorm:"primaryKey;size:160"`
	ProjectID string    `gorm:"size:64;index;not null"`
	Username  string    `gorm:"size:128;not null"`
	Avatar    string    `gorm:"size:512"`
	Text      string    `gorm:"type:text"`
	Timestamp time.Time `gorm:"index"`
	Likes     int       `gorm:"default:0"`
}
