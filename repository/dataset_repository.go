package repository

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

// DatasetRepository handles database operations for Dataset entities
type DatasetRepository struct {
	DB *gorm.DB
}

// NewDatasetRepository creates a new instance of DatasetRepository
func NewDatasetRepository(db *gorm.DB) *DatasetRepository {
	return &DatasetRepository{DB: db}
}

// DatasetProgress summarises the annotation state of one dataset. Progress is
// labeled/total*100 rounded to two decimals, zero when the dataset is empty.
type DatasetProgress struct {
	Total    int64   `json:"total"`
	Labeled  int64   `json:"labeled"`
	Skipped  int64   `json:"skipped"`
	Pending  int64   `json:"pending"`
	Progress float64 `json:"progress"`
}

// Create creates a new dataset record in the database
func (r *DatasetRepository) Create(dataset *models.Dataset) error {
	now := time.Now().Unix()
	if dataset.CreatedAt == 0 {
		dataset.CreatedAt = now
	}
	if dataset.UpdatedAt == 0 {
		dataset.UpdatedAt = now
	}
	dataset.ImagePath = filepath.ToSlash(dataset.ImagePath)

	var count int64
	if err := r.DB.Model(&models.Dataset{}).Where("image_path = ?", dataset.ImagePath).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check image path for dataset %s: %w", dataset.Name, err)
	}
	if count > 0 {
		return ErrImagePathTaken
	}

	if err := r.DB.Create(dataset).Error; err != nil {
		return fmt.Errorf("failed to create dataset %s: %w", dataset.Name, err)
	}
	return nil
}

// ListAll retrieves all active datasets, ordered by name
func (r *DatasetRepository) ListAll() ([]models.Dataset, error) {
	var datasets []models.Dataset
	err := r.DB.Where("is_active = ?", true).Order("name ASC").Find(&datasets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

// ListAllAdmin retrieves every dataset including inactive ones
func (r *DatasetRepository) ListAllAdmin() ([]models.Dataset, error) {
	var datasets []models.Dataset
	err := r.DB.Order("name ASC").Find(&datasets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets (admin): %w", err)
	}
	return datasets, nil
}

// GetByID retrieves a dataset by its ID
func (r *DatasetRepository) GetByID(id uint) (*models.Dataset, error) {
	var dataset models.Dataset
	err := r.DB.First(&dataset, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get dataset by ID %d: %w", id, err)
	}
	return &dataset, nil
}

// GetByImagePath retrieves a dataset by its filesystem image root
func (r *DatasetRepository) GetByImagePath(imagePath string) (*models.Dataset, error) {
	var dataset models.Dataset
	err := r.DB.Where("image_path = ?", filepath.ToSlash(imagePath)).First(&dataset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get dataset by image path %s: %w", imagePath, err)
	}
	return &dataset, nil
}

// Update updates a dataset's mutable fields; nil pointers leave a field untouched
func (r *DatasetRepository) Update(datasetID uint, name *string, description *string, imagePath *string, labelPath *string, isActive *bool) error {
	now := time.Now().Unix()
	updates := map[string]interface{}{
		"updated_at": now,
	}
	if name != nil {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if imagePath != nil {
		updates["image_path"] = filepath.ToSlash(*imagePath)
	}
	if labelPath != nil {
		if *labelPath == "" { // allow clearing the label path
			updates["label_path"] = gorm.Expr("NULL")
		} else {
			updates["label_path"] = *labelPath
		}
	}
	if isActive != nil {
		updates["is_active"] = *isActive
	}

	// if only updated_at is present, no actual fields were changed
	if len(updates) == 1 {
		return nil
	}

	result := r.DB.Model(&models.Dataset{}).Where("id = ?", datasetID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update dataset ID %d: %w", datasetID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// recountDatasetImages refreshes a dataset's cached total_images and
// labeled_images from exact counts. It runs on the given handle so callers can
// fold it into a larger transaction.
func recountDatasetImages(tx *gorm.DB, datasetID uint) error {
	var total, labeled int64
	if err := tx.Model(&models.Image{}).Where("dataset_id = ?", datasetID).Count(&total).Error; err != nil {
		return fmt.Errorf("failed to count images for dataset %d: %w", datasetID, err)
	}
	if err := tx.Model(&models.Image{}).
		Where("dataset_id = ? AND status = ?", datasetID, database.ImageStatusLabeled).
		Count(&labeled).Error; err != nil {
		return fmt.Errorf("failed to count labeled images for dataset %d: %w", datasetID, err)
	}

	err := tx.Model(&models.Dataset{}).Where("id = ?", datasetID).Updates(map[string]interface{}{
		"total_images":   total,
		"labeled_images": labeled,
		"updated_at":     time.Now().Unix(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update image counts for dataset %d: %w", datasetID, err)
	}
	return nil
}

// RecountImages refreshes the cached aggregate counters of a dataset
func (r *DatasetRepository) RecountImages(datasetID uint) error {
	return recountDatasetImages(r.DB, datasetID)
}

// Progress returns exact per-status image counts for a dataset
func (r *DatasetRepository) Progress(datasetID uint) (*DatasetProgress, error) {
	var count int64
	if err := r.DB.Model(&models.Dataset{}).Where("id = ?", datasetID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check dataset %d: %w", datasetID, err)
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	progress := &DatasetProgress{}
	if err := r.DB.Model(&models.Image{}).Where("dataset_id = ?", datasetID).Count(&progress.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count images for dataset %d: %w", datasetID, err)
	}

	statusCounts := map[string]*int64{
		database.ImageStatusLabeled: &progress.Labeled,
		database.ImageStatusSkipped: &progress.Skipped,
		database.ImageStatusPending: &progress.Pending,
	}
	for status, dest := range statusCounts {
		if err := r.DB.Model(&models.Image{}).
			Where("dataset_id = ? AND status = ?", datasetID, status).
			Count(dest).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s images for dataset %d: %w", status, datasetID, err)
		}
	}

	if progress.Total > 0 {
		pct := float64(progress.Labeled) / float64(progress.Total) * 100
		progress.Progress = math.Round(pct*100) / 100
	}
	return progress, nil
}

// Delete removes a dataset and all of its dependent rows
func (r *DatasetRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Dataset{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete dataset ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		imageIDs := tx.Model(&models.Image{}).Select("id").Where("dataset_id = ?", id)
		if err := tx.Where("image_id IN (?)", imageIDs).Delete(&models.Annotation{}).Error; err != nil {
			return fmt.Errorf("failed to delete annotations for dataset ID %d: %w", id, err)
		}
		if err := tx.Where("image_id IN (?)", imageIDs).Delete(&models.AnnotationHistory{}).Error; err != nil {
			return fmt.Errorf("failed to delete annotation history for dataset ID %d: %w", id, err)
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete images for dataset ID %d: %w", id, err)
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&models.Category{}).Error; err != nil {
			return fmt.Errorf("failed to delete categories for dataset ID %d: %w", id, err)
		}
		if err := tx.Where("dataset_id = ?", id).Delete(&models.WorkStatistic{}).Error; err != nil {
			return fmt.Errorf("failed to delete work statistics for dataset ID %d: %w", id, err)
		}
		return nil
	})
}
