package models

// WorkStatistic holds one user's labeling throughput for one dataset on one
// calendar day. Rows are upserted: created on the first save of the day,
// incremented on every save after that. It corresponds to the
// 'work_statistics' table.
type WorkStatistic struct {
	ID                 uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID             uint   `gorm:"not null;uniqueIndex:idx_user_dataset_date" json:"user_id"`
	DatasetID          uint   `gorm:"not null;uniqueIndex:idx_user_dataset_date" json:"dataset_id"`
	Date               string `gorm:"not null;uniqueIndex:idx_user_dataset_date" json:"date"` // YYYY-MM-DD
	ImagesLabeled      int    `gorm:"not null;default:0" json:"images_labeled"`
	AnnotationsCreated int    `gorm:"not null;default:0" json:"annotations_created"`
}

// TableName explicitly sets the table name for GORM.
func (WorkStatistic) TableName() string {
	return "work_statistics"
}
