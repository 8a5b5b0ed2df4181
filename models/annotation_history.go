package models

// AnnotationHistory is an append-only log entry recording one annotation
// mutation (create or delete) on an image. Data holds a JSON snapshot of the
// affected annotation's fields: the new values for a create, the pre-deletion
// values for a delete. Entries are written for client-side display/undo
// reference and are never mutated or replayed by the server.
type AnnotationHistory struct {
	ID        uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ImageID   uint   `gorm:"not null;index:idx_history_image_user" json:"image_id"`
	UserID    uint   `gorm:"not null;index:idx_history_image_user" json:"user_id"`
	Action    string `gorm:"not null" json:"action"` // create | delete
	Data      string `gorm:"not null" json:"data"`   // JSON snapshot
	CreatedAt int64  `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (AnnotationHistory) TableName() string {
	return "annotation_history"
}
