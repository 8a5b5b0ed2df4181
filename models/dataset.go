package models

// Dataset represents a named collection of images sharing a category taxonomy
// and filesystem roots. It corresponds to the 'datasets' table.
type Dataset struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null" json:"name"`
	Description *string `gorm:"" json:"description,omitempty"` // Nullable
	ImagePath   string  `gorm:"not null;unique" json:"image_path"`
	LabelPath   *string `gorm:"" json:"label_path,omitempty"` // Nullable
	IsActive    bool    `gorm:"not null;default:true" json:"is_active"`

	// cached aggregates, recounted transactionally on every relevant mutation
	TotalImages   int `gorm:"not null;default:0" json:"total_images"`
	LabeledImages int `gorm:"not null;default:0" json:"labeled_images"`

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp
	UpdatedAt int64 `gorm:"not null" json:"updated_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Dataset) TableName() string {
	return "datasets"
}
