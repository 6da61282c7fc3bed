package project

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zulandar/buildwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxUpdateLength is the longest accepted community update, in characters.
const MaxUpdateLength = 500

// ErrNotFound is returned when a project or update does not exist.
var ErrNotFound = errors.New("project: not found")

// ErrInvalid marks caller input the store rejected.
var ErrInvalid = errors.New("project: invalid input")

// upsertColumns are refreshed from the source on conflict. Followers and
// community content are owned by this service and left alone.
var upsertColumns = []string{
	"name", "address", "project_type", "description", "value",
	"permit_number", "permit_date", "status", "latitude", "longitude",
	"contractor", "estimated_completion", "overall_progress",
	"before_image", "after_image", "source", "updated_at",
}

// Upsert stores projects from a source batch. Images and updates already
// present are kept as-is.
func Upsert(db *gorm.DB, projects []ConstructionProject, source string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, p := range projects {
			if p.ID == "" {
				return fmt.Errorf("project: id is required")
			}
			m := ToModel(p, source)
			images, updates := m.Images, m.Updates
			m.Images, m.Updates = nil, nil

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(upsertColumns),
			}).Create(&m).Error; err != nil {
				return fmt.Errorf("project: upsert %s: %w", p.ID, err)
			}
			if len(images) > 0 {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&images).Error; err != nil {
					return fmt.Errorf("project: upsert images for %s: %w", p.ID, err)
				}
			}
			if len(updates) > 0 {
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&updates).Error; err != nil {
					return fmt.Errorf("project: upsert updates for %s: %w", p.ID, err)
				}
			}
		}
		return nil
	})
}

// Prune deletes projects stored from any source other than keep, with their
// images and updates. It returns the number of projects removed.
func Prune(db *gorm.DB, keep string) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.Project{}).Select("id").Where("source <> ?", keep)
		if err := tx.Where("project_id IN (?)", stale).Delete(&models.ProjectImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id IN (?)", stale).Delete(&models.ProjectUpdate{}).Error; err != nil {
			return err
		}
		res := tx.Where("source <> ?", keep).Delete(&models.Project{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("project: prune sources other than %s: %w", keep, err)
	}
	return removed, nil
}

// Progress returns the stored overall progress for each of ids that exists.
func Progress(db *gorm.DB, ids []string) (map[string]int, error) {
	out := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Project
	if err := db.Select("id", "overall_progress").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("project: load progress: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.OverallProgress
	}
	return out, nil
}

func preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Images", func(tx *gorm.DB) *gorm.DB { return tx.Order("uploaded_at DESC") }).
		Preload("Updates", func(tx *gorm.DB) *gorm.DB { return tx.Order("timestamp DESC") })
}

// List returns every stored project, assembled, ordered by ID.
func List(db *gorm.DB) ([]ConstructionProject, error) {
	var rows []models.Project
	if err := preload(db).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("project: list: %w", err)
	}
	out := make([]ConstructionProject, len(rows))
	for i, r := range rows {
		out[i] = FromModel(r)
	}
	return out, nil
}

// Get returns one assembled project.
func Get(db *gorm.DB, id string) (*ConstructionProject, error) {
	var row models.Project
	if err := preload(db).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("project: get %s: %w", id, err)
	}
	p := FromModel(row)
	return &p, nil
}

// Count returns the number of stored projects.
func Count(db *gorm.DB) (int64, error) {
	var n int64
	if err := db.Model(&models.Project{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("project: count: %w", err)
	}
	return n, nil
}

func exists(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&models.Project{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("project: check %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// UpdateOpts holds the fields of a new community update.
type UpdateOpts struct {
	Username string
	Avatar   string
	Text     string
}

// AddUpdate posts a community update on a project.
func AddUpdate(db *gorm.DB, projectID string, opts UpdateOpts) (*Update, error) {
	text := strings.TrimSpace(opts.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: update text is required", ErrInvalid)
	}
	if len([]rune(text)) > MaxUpdateLength {
		return nil, fmt.Errorf("%w: update text exceeds %d characters", ErrInvalid, MaxUpdateLength)
	}
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		username = "Anonymous"
	}
	if err := exists(db, projectID); err != nil {
		return nil, err
	}

	id := "update-" + uuid.NewString()
	row := models.ProjectUpdate{
		ID:        scopedID(projectID, id),
		ProjectID: projectID,
		Username:  username,
		Avatar:    opts.Avatar,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("project: add update to %s: %w", projectID, err)
	}
	return &Update{
		ID:        id,
		Username:  row.Username,
		Avatar:    row.Avatar,
		Text:      row.Text,
		Timestamp: row.Timestamp,
	}, nil
}

// LikeUpdate increments an update's like count and returns the new count.
func LikeUpdate(db *gorm.DB, projectID, updateID string) (int, error) {
	id := scopedID(projectID, updateID)
	result := db.Model(&models.ProjectUpdate{}).
		Where("id = ? AND project_id = ?", id, projectID).
		Update("likes", gorm.Expr("likes + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("project: like %s: %w", updateID, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: update %s", ErrNotFound, updateID)
	}
	var row models.ProjectUpdate
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		return 0, fmt.Errorf("project: reload %s: %w", updateID, err)
	}
	return row.Likes, nil
}

// ImageOpts holds the metadata of a new photo.
type ImageOpts struct {
	URL        string
	Caption    string
	UploadedBy string
	Type       string
}

// AddImage records photo metadata on a project.
func AddImage(db *gorm.DB, projectID string, opts ImageOpts) (*Image, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("%w: image url is required", ErrInvalid)
	}
	if opts.Type == "" {
		opts.Type = ImageProgress
	}
	switch opts.Type {
	case ImageProgress, ImageBefore, ImageAfter:
	default:
		return nil, fmt.Errorf("%w: unknown image type %q", ErrInvalid, opts.Type)
	}
	if opts.UploadedBy == "" {
		opts.UploadedBy = "Anonymous"
	}
	if err := exists(db, projectID); err != nil {
		return nil, err
	}

	id := "img-" + uuid.NewString()
	row := models.ProjectImage{
		ID:         scopedID(projectID, id),
		ProjectID:  projectID,
		URL:        opts.URL,
		Caption:    opts.Caption,
		UploadedBy: opts.UploadedBy,
		UploadedAt: time.Now().UTC(),
		Type:       opts.Type,
	}
	if err := db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("project: add image to %s: %w", projectID, err)
	}
	return &Image{
		ID:         id,
		URL:        row.URL,
		Caption:    row.Caption,
		UploadedBy: row.UploadedBy,
		UploadedAt: row.UploadedAt,
		Type:       row.Type,
	}, nil
}

// AdjustFollowers adds delta to a project's follower count, never going
// below zero.
func AdjustFollowers(db *gorm.DB, projectID string, delta int) error {
	result := db.Model(&models.Project{}).Where("id = ?", projectID).
		UpdateColumn("followers", gorm.Expr("CASE WHEN followers + ? < 0 THEN 0 ELSE followers + ? END", delta, delta))
	if result.Error != nil {
		return fmt.Errorf("project: adjust followers for %s: %w", projectID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, projectID)
	}
	return nil
}

// LastRefresh returns the source and time of the most recently stored
// project. ok is false when the store is empty.
func LastRefresh(db *gorm.DB) (source string, at time.Time, ok bool, err error) {
	var row models.Project
	err = db.Select("source", "updated_at").Order("updated_at DESC").Limit(1).Find(&row).Error
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("project: last refresh: %w", err)
	}
	if row.UpdatedAt.IsZero() {
		return "", time.Time{}, false, nil
	}
	return row.Source, row.UpdatedAt, true, nil
}
