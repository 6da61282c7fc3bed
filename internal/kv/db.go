package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/buildwatch/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DB persists client state in the client_states table. Each client ID gets
// its own namespace via For.
type DB struct {
	db *gorm.DB
}

// NewDB wraps a gorm connection.
func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// For returns the Store for one client.
func (d *DB) For(clientID string) Store {
	return &clientStore{db: d.db, clientID: clientID}
}

// ClientsWithKey lists the client IDs that have a value stored under key.
func (d *DB) ClientsWithKey(ctx context.Context, key string) ([]string, error) {
	var ids []string
	if err := d.db.WithContext(ctx).Model(&models.ClientState{}).
		Where("state_key = ?", key).
		Order("client_id ASC").
		Pluck("client_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("kv: list clients with %s: %w", key, err)
	}
	return ids, nil
}

type clientStore struct {
	db       *gorm.DB
	clientID string
}

func (s *clientStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.ClientState
	err := s.db.WithContext(ctx).
		Where("client_id = ? AND state_key = ?", s.clientID, key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv: get %s/%s: %w", s.clientID, key, err)
	}
	return row.Value, true, nil
}

func (s *clientStore) Set(ctx context.Context, key, value string) error {
	row := models.ClientState{
		ClientID:  s.clientID,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}, {Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return fmt.Errorf("kv: set %s/%s: %w", s.clientID, key, err)
	}
	return nil
}

func (s *clientStore) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).
		Where("client_id = ? AND state_key = ?", s.clientID, key).
		Delete(&models.ClientState{}).Error; err != nil {
		return fmt.Errorf("kv: remove %s/%s: %w", s.clientID, key, err)
	}
	return nil
}
