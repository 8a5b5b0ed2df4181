package models

// Category represents a labeled class scoped to one dataset, with an
// optional keyboard shortcut. It corresponds to the 'categories' table.
// (dataset_id, name) is unique; (dataset_id, shortcut_key) is unique when
// shortcut_key is non-null (enforced in the repository, since SQLite treats
// NULLs as distinct in unique indexes anyway).
type Category struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID   uint    `gorm:"not null;index;uniqueIndex:idx_dataset_name" json:"dataset_id"`
	Name        string  `gorm:"not null;uniqueIndex:idx_dataset_name" json:"name"`
	ShortcutKey *string `gorm:"" json:"shortcut_key,omitempty"` // Nullable
	Color       string  `gorm:"not null;default:'#FF0000'" json:"color"`
	SortOrder   int     `gorm:"not null;default:0" json:"sort_order"`
	CreatedAt   int64   `gorm:"not null" json:"created_at"` // Unix timestamp
}

// TableName explicitly sets the table name for GORM.
func (Category) TableName() string {
	return "categories"
}
