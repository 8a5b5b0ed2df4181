package models

// Image represents one image of a dataset in the annotation workflow.
// It corresponds to the 'images' table.
//
// Lifecycle: pending -> assigned -> {labeled | skipped}. An image is never
// assigned to more than one user at a time; the pending->assigned transition
// is claimed with a conditional update in the repository.
type Image struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID uint   `gorm:"not null;index;uniqueIndex:idx_dataset_filename" json:"dataset_id"`
	Filename  string `gorm:"not null;uniqueIndex:idx_dataset_filename" json:"filename"`
	FilePath  string `gorm:"not null" json:"file_path"`

	Width   *int   `gorm:"" json:"width,omitempty"`          // Nullable, unknown when decode failed
	Height  *int   `gorm:"" json:"height,omitempty"`         // Nullable
	TakenAt *int64 `gorm:"index" json:"taken_at,omitempty"`  // Nullable, Unix timestamp from EXIF

	Status     string `gorm:"not null;default:pending;index" json:"status"`
	AssignedTo *uint  `gorm:"index" json:"assigned_to,omitempty"` // Nullable user reference
	AssignedAt *int64 `gorm:"" json:"assigned_at,omitempty"`      // Nullable, Unix timestamp
	LabeledBy  *uint  `gorm:"" json:"labeled_by,omitempty"`       // Nullable user reference
	LabeledAt  *int64 `gorm:"" json:"labeled_at,omitempty"`       // Nullable, Unix timestamp

	PreviewPath        *string `gorm:"" json:"preview_path,omitempty"` // Nullable
	PreviewStatus      string  `gorm:"not null;default:pending" json:"preview_status"`
	PreviewProcessedAt *int64  `gorm:"" json:"preview_processed_at,omitempty"` // Nullable, Unix timestamp
	PreviewError       *string `gorm:"" json:"preview_error,omitempty"`        // Nullable

	CreatedAt int64 `gorm:"not null" json:"created_at"` // Unix timestamp

	// Relationships
	Annotations []Annotation `gorm:"foreignKey:ImageID" json:"annotations,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}
