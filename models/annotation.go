package models

// Annotation represents one normalized bounding box tying an image to a
// category. Geometry is center-based in a [0,1] coordinate space relative to
// the image dimensions, matching the usual single-object-detection label
// format. It corresponds to the 'annotations' table.
type Annotation struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID    uint    `gorm:"not null;index" json:"image_id"`
	CategoryID uint    `gorm:"not null;index" json:"category_id"`
	XCenter    float64 `gorm:"not null" json:"x_center"`
	YCenter    float64 `gorm:"not null" json:"y_center"`
	Width      float64 `gorm:"not null" json:"width"`
	Height     float64 `gorm:"not null" json:"height"`
	CreatedBy  uint    `gorm:"not null" json:"created_by"`
	CreatedAt  int64   `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Annotation) TableName() string {
	return "annotations"
}
