package models

import "time"

// ClientState is one key/value entry of a browser client's saved state
// (favorites, notifications), namespaced by client ID.
type ClientState struct {
	ClientID  string `gorm:"primaryKey;size:64"`
	Key       string `gorm:"primaryKey;column:state_key;size:128"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}
