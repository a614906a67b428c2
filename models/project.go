package models

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          int       `gorm:"primary_key" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrProjectNotFound = errors.New("project not found")

// ListActiveProjects returns the candidate set handed to the classifier.
func ListActiveProjects(db *gorm.DB) ([]Project, error) {
	var projects []Project
	if err := db.Where("is_active = ?", true).Order("name").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// FindProjectByName resolves a model-reported project name, matching
// case-insensitively on the trimmed name.
func FindProjectByName(db *gorm.DB, name string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrProjectNotFound
	}
	var project Project
	err := db.Where("LOWER(name) = LOWER(?)", name).Take(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}
