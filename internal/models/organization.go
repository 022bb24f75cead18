package models

import "gorm.io/datatypes"

// Organization is the tenant boundary.
type Organization struct {
	BaseModel

	Name        string         `gorm:"not null" json:"name"`
	Slug        string         `gorm:"uniqueIndex;size:64;not null" json:"slug"`
	Description string         `json:"description"`
	Settings    datatypes.JSON `json:"settings,omitempty"`
}
