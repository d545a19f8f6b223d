package models

import "time"

// StoredResource holds one persisted registry resource when a database backend is used
type StoredResource struct {
	Name      string    `gorm:"primarykey;not null" json:"name"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
