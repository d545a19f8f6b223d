package db

import (
	"errors"
	"fmt"

	"github.com/nebari-dev/gatehouse/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrResourceNotFound is returned when no resource with the given name was stored
var ErrResourceNotFound = errors.New("resource not found")

// GetResource retrieves a stored resource by name
func GetResource(db *gorm.DB, name string) (*models.StoredResource, error) {
	var res models.StoredResource

	err := db.Where("name = ?", name).First(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to query resource %s: %w", name, err)
	}
	return &res, nil
}

// PutResource creates or replaces a stored resource
func PutResource(db *gorm.DB, name, content string) error {
	res := models.StoredResource{Name: name, Content: content}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&res).Error
	if err != nil {
		return fmt.Errorf("failed to store resource %s: %w", name, err)
	}
	return nil
}
