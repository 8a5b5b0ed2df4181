package repository

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

// claimRetries bounds how often NextForUser reselects a pending candidate
// after losing the claim to a concurrent caller
const claimRetries = 5

// ImageRepository handles database operations for Image entities, including
// the pending->assigned work-assignment transition
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// Create inserts a new image record
func (r *ImageRepository) Create(image *models.Image) error {
	image.FilePath = filepath.ToSlash(image.FilePath)
	if image.Status == "" {
		image.Status = database.ImageStatusPending
	}
	if image.CreatedAt == 0 {
		image.CreatedAt = time.Now().Unix()
	}
	if err := r.DB.Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image record for %s: %w", image.Filename, err)
	}
	return nil
}

// CreateBatch inserts a set of image records in one short transaction,
// used by scans after filesystem enumeration has finished
func (r *ImageRepository) CreateBatch(images []*models.Image) error {
	if len(images) == 0 {
		return nil
	}
	now := time.Now().Unix()
	return r.DB.Transaction(func(tx *gorm.DB) error {
		for _, image := range images {
			image.FilePath = filepath.ToSlash(image.FilePath)
			if image.Status == "" {
				image.Status = database.ImageStatusPending
			}
			if image.CreatedAt == 0 {
				image.CreatedAt = now
			}
			if err := tx.Create(image).Error; err != nil {
				return fmt.Errorf("failed to create image record for %s: %w", image.Filename, err)
			}
		}
		return nil
	})
}

// GetByID retrieves an image by its ID
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image by ID %d: %w", id, err)
	}
	return &image, nil
}

// GetWithAnnotations retrieves an image together with its annotation set
func (r *ImageRepository) GetWithAnnotations(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.Preload("Annotations").First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image %d with annotations: %w", id, err)
	}
	return &image, nil
}

// ListFilenamesByDataset returns the set of filenames already recorded for a
// dataset, used by scans to dedupe
func (r *ImageRepository) ListFilenamesByDataset(datasetID uint) (map[string]bool, error) {
	var filenames []string
	err := r.DB.Model(&models.Image{}).Where("dataset_id = ?", datasetID).Pluck("filename", &filenames).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list filenames for dataset %d: %w", datasetID, err)
	}
	set := make(map[string]bool, len(filenames))
	for _, name := range filenames {
		set[name] = true
	}
	return set, nil
}

// NextForUser returns the user's next image to annotate in the dataset.
//
// An image the user already holds in 'assigned' status is returned unchanged,
// so re-requesting never loses in-progress work. Otherwise the lowest-id
// pending image is claimed with a conditional update; RowsAffected of zero
// means another caller won the claim, and the selection is retried. A nil
// image with nil error means the dataset is exhausted.
func (r *ImageRepository) NextForUser(datasetID, userID uint) (*models.Image, error) {
	var image *models.Image

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var dataset models.Dataset
		err := tx.Where("id = ? AND is_active = ?", datasetID, true).First(&dataset).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("failed to check dataset %d: %w", datasetID, err)
		}

		var held models.Image
		err = tx.Where("dataset_id = ? AND assigned_to = ? AND status = ?",
			datasetID, userID, database.ImageStatusAssigned).
			Order("id ASC").First(&held).Error
		if err == nil {
			image = &held
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up held assignment for user %d: %w", userID, err)
		}

		for attempt := 0; attempt < claimRetries; attempt++ {
			var candidate models.Image
			err := tx.Where("dataset_id = ? AND status = ?", datasetID, database.ImageStatusPending).
				Order("id ASC").First(&candidate).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // dataset exhausted
			}
			if err != nil {
				return fmt.Errorf("failed to select pending image in dataset %d: %w", datasetID, err)
			}

			now := time.Now().Unix()
			result := tx.Model(&models.Image{}).
				Where("id = ? AND status = ?", candidate.ID, database.ImageStatusPending).
				Updates(map[string]interface{}{
					"status":      database.ImageStatusAssigned,
					"assigned_to": userID,
					"assigned_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to claim image %d: %w", candidate.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				// lost the claim to a concurrent caller, reselect
				continue
			}

			candidate.Status = database.ImageStatusAssigned
			candidate.AssignedTo = &userID
			candidate.AssignedAt = &now
			image = &candidate
			return nil
		}
		return fmt.Errorf("failed to claim a pending image in dataset %d after %d attempts", datasetID, claimRetries)
	})
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, nil
	}

	if err := r.DB.Where("image_id = ?", image.ID).Find(&image.Annotations).Error; err != nil {
		return nil, fmt.Errorf("failed to load annotations for image %d: %w", image.ID, err)
	}
	return image, nil
}

// MarkPreviewProcessing updates the preview task status to 'processing' and
// clears its error
func (r *ImageRepository) MarkPreviewProcessing(imageID uint) error {
	result := r.DB.Model(&models.Image{}).Where("id = ?", imageID).Updates(map[string]interface{}{
		"preview_status": database.StatusProcessing,
		"preview_error":  gorm.Expr("NULL"),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to mark preview processing for image %d: %w", imageID, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePreviewResult records the outcome of a preview-generation task,
// together with any dimensions and EXIF capture time probed along the way
func (r *ImageRepository) UpdatePreviewResult(imageID uint, previewPath *string, takenAt *int64, width, height *int, taskErr error) error {
	now := time.Now().Unix()
	status := database.StatusDone
	var errStr *string

	if taskErr != nil {
		status = database.StatusError
		s := taskErr.Error()
		errStr = &s
	}

	updates := map[string]interface{}{
		"preview_status":       status,
		"preview_processed_at": &now,
		"preview_error":        errStr,
	}
	if taskErr == nil {
		updates["preview_path"] = previewPath
	}
	if takenAt != nil {
		updates["taken_at"] = takenAt
	}
	if width != nil {
		updates["width"] = width
	}
	if height != nil {
		updates["height"] = height
	}

	result := r.DB.Model(&models.Image{}).Where("id = ?", imageID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update preview result for image %d: %w", imageID, result.Error)
	}
	return nil
}

// GetImagesRequiringPreviews retrieves images whose preview task is still pending
func (r *ImageRepository) GetImagesRequiringPreviews() ([]models.Image, error) {
	var images []models.Image
	err := r.DB.Where("preview_status = ?", database.StatusPending).Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get images requiring previews: %w", err)
	}
	return images, nil
}
