package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/models"
)

// CategoryRepository handles database operations for Category entities and
// validates category membership for annotations
type CategoryRepository struct {
	DB *gorm.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

func datasetExists(tx *gorm.DB, datasetID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.Dataset{}).Where("id = ?", datasetID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check dataset %d: %w", datasetID, err)
	}
	return count > 0, nil
}

// checkUniqueness verifies (dataset, name) and (dataset, shortcut_key)
// uniqueness, excluding excludeID when updating an existing row
func (r *CategoryRepository) checkUniqueness(tx *gorm.DB, datasetID uint, name string, shortcutKey *string, excludeID uint) error {
	query := tx.Model(&models.Category{}).Where("dataset_id = ? AND name = ?", datasetID, name)
	if excludeID != 0 {
		query = query.Where("id != ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check category name uniqueness: %w", err)
	}
	if count > 0 {
		return ErrCategoryNameTaken
	}

	if shortcutKey != nil && *shortcutKey != "" {
		query = tx.Model(&models.Category{}).Where("dataset_id = ? AND shortcut_key = ?", datasetID, *shortcutKey)
		if excludeID != 0 {
			query = query.Where("id != ?", excludeID)
		}
		if err := query.Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check shortcut key uniqueness: %w", err)
		}
		if count > 0 {
			return ErrShortcutKeyTaken
		}
	}
	return nil
}

// Create creates a category after verifying its dataset exists and its name
// and shortcut key are unused within that dataset
func (r *CategoryRepository) Create(category *models.Category) error {
	exists, err := datasetExists(r.DB, category.DatasetID)
	if err != nil {
		return err
	}
	if !exists {
		return gorm.ErrRecordNotFound
	}

	if err := r.checkUniqueness(r.DB, category.DatasetID, category.Name, category.ShortcutKey, 0); err != nil {
		return err
	}

	if category.CreatedAt == 0 {
		category.CreatedAt = time.Now().Unix()
	}
	if err := r.DB.Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category %s: %w", category.Name, err)
	}
	return nil
}

// BatchCreate creates several categories for one dataset in a single
// transaction. The payload must be non-empty and may not mix datasets.
func (r *CategoryRepository) BatchCreate(categories []*models.Category) error {
	if len(categories) == 0 {
		return fmt.Errorf("empty category batch")
	}
	datasetID := categories[0].DatasetID

	return r.DB.Transaction(func(tx *gorm.DB) error {
		exists, err := datasetExists(tx, datasetID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}

		now := time.Now().Unix()
		for _, category := range categories {
			if category.DatasetID != datasetID {
				return ErrMixedDatasets
			}
			if err := r.checkUniqueness(tx, datasetID, category.Name, category.ShortcutKey, 0); err != nil {
				return fmt.Errorf("category %s: %w", category.Name, err)
			}
			if category.CreatedAt == 0 {
				category.CreatedAt = now
			}
			if err := tx.Create(category).Error; err != nil {
				return fmt.Errorf("failed to create category %s: %w", category.Name, err)
			}
		}
		return nil
	})
}

// ListByDataset retrieves a dataset's categories in sort order
func (r *CategoryRepository) ListByDataset(datasetID uint) ([]models.Category, error) {
	exists, err := datasetExists(r.DB, datasetID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gorm.ErrRecordNotFound
	}

	var categories []models.Category
	err = r.DB.Where("dataset_id = ?", datasetID).Order("sort_order ASC, id ASC").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for dataset %d: %w", datasetID, err)
	}
	return categories, nil
}

// GetByID retrieves a category by its ID
func (r *CategoryRepository) GetByID(id uint) (*models.Category, error) {
	var category models.Category
	err := r.DB.First(&category, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get category by ID %d: %w", id, err)
	}
	return &category, nil
}

// Update updates a category's mutable fields; nil pointers leave a field
// untouched. A shortcutKey pointing at an empty string clears the shortcut.
func (r *CategoryRepository) Update(categoryID uint, name *string, shortcutKey *string, color *string, sortOrder *int) error {
	category, err := r.GetByID(categoryID)
	if err != nil {
		return err
	}

	checkName := category.Name
	if name != nil {
		checkName = *name
	}
	if err := r.checkUniqueness(r.DB, category.DatasetID, checkName, shortcutKey, categoryID); err != nil {
		return err
	}

	updates := map[string]interface{}{}
	if name != nil {
		updates["name"] = *name
	}
	if shortcutKey != nil {
		if *shortcutKey == "" {
			updates["shortcut_key"] = gorm.Expr("NULL")
		} else {
			updates["shortcut_key"] = *shortcutKey
		}
	}
	if color != nil {
		updates["color"] = *color
	}
	if sortOrder != nil {
		updates["sort_order"] = *sortOrder
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.DB.Model(&models.Category{}).Where("id = ?", categoryID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update category ID %d: %w", categoryID, result.Error)
	}
	return nil
}

// Delete removes a category by its ID
func (r *CategoryRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Validate checks that a category exists and belongs to the given dataset
func (r *CategoryRepository) Validate(categoryID, datasetID uint) error {
	return validateCategory(r.DB, categoryID, datasetID)
}

func validateCategory(tx *gorm.DB, categoryID, datasetID uint) error {
	var count int64
	err := tx.Model(&models.Category{}).
		Where("id = ? AND dataset_id = ?", categoryID, datasetID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to validate category %d: %w", categoryID, err)
	}
	if count == 0 {
		return ErrInvalidCategory
	}
	return nil
}

// ImportFrom copies the source dataset's categories into the target dataset.
// Categories whose name already exists in the target are skipped; a shortcut
// key colliding with one already present (original or imported earlier in this
// run) is cleared on the copy instead of failing it. The merge is best-effort:
// copies committed before an error stick.
func (r *CategoryRepository) ImportFrom(sourceDatasetID, targetDatasetID uint) (imported, skipped int, err error) {
	for _, datasetID := range []uint{targetDatasetID, sourceDatasetID} {
		exists, err := datasetExists(r.DB, datasetID)
		if err != nil {
			return 0, 0, err
		}
		if !exists {
			return 0, 0, fmt.Errorf("dataset %d: %w", datasetID, gorm.ErrRecordNotFound)
		}
	}

	var sourceCategories []models.Category
	err = r.DB.Where("dataset_id = ?", sourceDatasetID).Order("sort_order ASC, id ASC").Find(&sourceCategories).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list source categories for dataset %d: %w", sourceDatasetID, err)
	}
	if len(sourceCategories) == 0 {
		return 0, 0, ErrNoSourceCategories
	}

	var targetCategories []models.Category
	err = r.DB.Where("dataset_id = ?", targetDatasetID).Find(&targetCategories).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list target categories for dataset %d: %w", targetDatasetID, err)
	}

	existingNames := make(map[string]bool)
	existingKeys := make(map[string]bool)
	for _, category := range targetCategories {
		existingNames[category.Name] = true
		if category.ShortcutKey != nil {
			existingKeys[*category.ShortcutKey] = true
		}
	}

	now := time.Now().Unix()
	for _, source := range sourceCategories {
		if existingNames[source.Name] {
			skipped++
			continue
		}

		shortcutKey := source.ShortcutKey
		if shortcutKey != nil && existingKeys[*shortcutKey] {
			shortcutKey = nil // clear the colliding shortcut rather than failing the copy
		}

		clone := models.Category{
			DatasetID:   targetDatasetID,
			Name:        source.Name,
			ShortcutKey: shortcutKey,
			Color:       source.Color,
			SortOrder:   source.SortOrder,
			CreatedAt:   now,
		}
		if err := r.DB.Create(&clone).Error; err != nil {
			return imported, skipped, fmt.Errorf("failed to import category %s: %w", source.Name, err)
		}
		imported++

		existingNames[clone.Name] = true
		if clone.ShortcutKey != nil {
			existingKeys[*clone.ShortcutKey] = true
		}
	}

	return imported, skipped, nil
}
