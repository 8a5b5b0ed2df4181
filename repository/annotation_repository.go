package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

// AnnotationRepository handles database operations for Annotation and
// AnnotationHistory entities, including the transactional save/skip flow
type AnnotationRepository struct {
	DB *gorm.DB
}

// NewAnnotationRepository creates a new instance of AnnotationRepository
func NewAnnotationRepository(db *gorm.DB) *AnnotationRepository {
	return &AnnotationRepository{DB: db}
}

// AnnotationInput carries one submitted bounding box
type AnnotationInput struct {
	CategoryID uint    `json:"category_id"`
	XCenter    float64 `json:"x_center"`
	YCenter    float64 `json:"y_center"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// annotationSnapshot is the field set serialized into history entries
type annotationSnapshot struct {
	AnnotationID uint    `json:"annotation_id,omitempty"`
	CategoryID   uint    `json:"category_id"`
	XCenter      float64 `json:"x_center"`
	YCenter      float64 `json:"y_center"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
}

func appendHistory(tx *gorm.DB, imageID, userID uint, action string, snapshot annotationSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to serialize annotation snapshot: %w", err)
	}
	entry := models.AnnotationHistory{
		ImageID:   imageID,
		UserID:    userID,
		Action:    action,
		Data:      string(data),
		CreatedAt: time.Now().Unix(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to append %s history for image %d: %w", action, imageID, err)
	}
	return nil
}

// SaveForImage replaces the image's annotation set and completes the image.
//
// The whole flow runs in one transaction: every existing annotation is deleted
// (with a delete history entry capturing its pre-mutation fields), the
// submitted annotations are validated against the image's dataset and inserted
// (unless skip is set, which discards the payload), the image moves to
// labeled/skipped, the dataset's labeled_images counter is recounted, and the
// (user, dataset, today) work statistic is upserted. A failure anywhere rolls
// the whole save back.
func (r *AnnotationRepository) SaveForImage(imageID, userID uint, annotations []AnnotationInput, skip bool) (string, error) {
	newStatus := database.ImageStatusLabeled
	if skip {
		newStatus = database.ImageStatusSkipped
	}

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var image models.Image
		if err := tx.First(&image, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("failed to load image %d: %w", imageID, err)
		}

		// full replace: drop the old set before writing anything new, so a
		// retry with the same payload converges on the same state
		var existing []models.Annotation
		if err := tx.Where("image_id = ?", imageID).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to load existing annotations for image %d: %w", imageID, err)
		}
		for _, old := range existing {
			snapshot := annotationSnapshot{
				AnnotationID: old.ID,
				CategoryID:   old.CategoryID,
				XCenter:      old.XCenter,
				YCenter:      old.YCenter,
				Width:        old.Width,
				Height:       old.Height,
			}
			if err := appendHistory(tx, imageID, userID, database.HistoryActionDelete, snapshot); err != nil {
				return err
			}
		}
		if err := tx.Where("image_id = ?", imageID).Delete(&models.Annotation{}).Error; err != nil {
			return fmt.Errorf("failed to delete annotations for image %d: %w", imageID, err)
		}

		annotationCount := 0
		if !skip {
			now := time.Now().Unix()
			for _, input := range annotations {
				if err := validateCategory(tx, input.CategoryID, image.DatasetID); err != nil {
					return err
				}
				annotation := models.Annotation{
					ImageID:    imageID,
					CategoryID: input.CategoryID,
					XCenter:    input.XCenter,
					YCenter:    input.YCenter,
					Width:      input.Width,
					Height:     input.Height,
					CreatedBy:  userID,
					CreatedAt:  now,
				}
				if err := tx.Create(&annotation).Error; err != nil {
					return fmt.Errorf("failed to create annotation on image %d: %w", imageID, err)
				}
				if err := appendHistory(tx, imageID, userID, database.HistoryActionCreate, annotationSnapshot{
					CategoryID: input.CategoryID,
					XCenter:    input.XCenter,
					YCenter:    input.YCenter,
					Width:      input.Width,
					Height:     input.Height,
				}); err != nil {
					return err
				}
				annotationCount++
			}
		}

		now := time.Now().Unix()
		err := tx.Model(&models.Image{}).Where("id = ?", imageID).Updates(map[string]interface{}{
			"status":     newStatus,
			"labeled_by": userID,
			"labeled_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update status for image %d: %w", imageID, err)
		}

		if err := recountDatasetImages(tx, image.DatasetID); err != nil {
			return err
		}

		return upsertWorkStatistic(tx, userID, image.DatasetID, annotationCount)
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// upsertWorkStatistic increments the (user, dataset, today) row, creating it
// on the first save of the day. Runs on the caller's transaction.
func upsertWorkStatistic(tx *gorm.DB, userID, datasetID uint, annotationCount int) error {
	today := time.Now().Format("2006-01-02")

	var stat models.WorkStatistic
	err := tx.Where("user_id = ? AND dataset_id = ? AND date = ?", userID, datasetID, today).First(&stat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stat = models.WorkStatistic{
			UserID:             userID,
			DatasetID:          datasetID,
			Date:               today,
			ImagesLabeled:      1,
			AnnotationsCreated: annotationCount,
		}
		if err := tx.Create(&stat).Error; err != nil {
			return fmt.Errorf("failed to create work statistic for user %d: %w", userID, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load work statistic for user %d: %w", userID, err)
	}

	err = tx.Model(&models.WorkStatistic{}).Where("id = ?", stat.ID).Updates(map[string]interface{}{
		"images_labeled":      gorm.Expr("images_labeled + 1"),
		"annotations_created": gorm.Expr("annotations_created + ?", annotationCount),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to increment work statistic %d: %w", stat.ID, err)
	}
	return nil
}

// CreateOne inserts a single annotation outside the full save flow, for
// interactive adds. The category must belong to the image's dataset.
func (r *AnnotationRepository) CreateOne(imageID, userID uint, input AnnotationInput) (*models.Annotation, error) {
	var annotation models.Annotation

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		var image models.Image
		if err := tx.First(&image, imageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("failed to load image %d: %w", imageID, err)
		}

		if err := validateCategory(tx, input.CategoryID, image.DatasetID); err != nil {
			return err
		}

		annotation = models.Annotation{
			ImageID:    imageID,
			CategoryID: input.CategoryID,
			XCenter:    input.XCenter,
			YCenter:    input.YCenter,
			Width:      input.Width,
			Height:     input.Height,
			CreatedBy:  userID,
			CreatedAt:  time.Now().Unix(),
		}
		if err := tx.Create(&annotation).Error; err != nil {
			return fmt.Errorf("failed to create annotation on image %d: %w", imageID, err)
		}

		return appendHistory(tx, imageID, userID, database.HistoryActionCreate, annotationSnapshot{
			CategoryID: input.CategoryID,
			XCenter:    input.XCenter,
			YCenter:    input.YCenter,
			Width:      input.Width,
			Height:     input.Height,
		})
	})
	if err != nil {
		return nil, err
	}
	return &annotation, nil
}

// DeleteOne removes a single annotation, capturing its full field snapshot
// into history before removal
func (r *AnnotationRepository) DeleteOne(annotationID, userID uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var annotation models.Annotation
		if err := tx.First(&annotation, annotationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("failed to load annotation %d: %w", annotationID, err)
		}

		snapshot := annotationSnapshot{
			AnnotationID: annotation.ID,
			CategoryID:   annotation.CategoryID,
			XCenter:      annotation.XCenter,
			YCenter:      annotation.YCenter,
			Width:        annotation.Width,
			Height:       annotation.Height,
		}
		if err := appendHistory(tx, annotation.ImageID, userID, database.HistoryActionDelete, snapshot); err != nil {
			return err
		}

		if err := tx.Delete(&models.Annotation{}, annotationID).Error; err != nil {
			return fmt.Errorf("failed to delete annotation %d: %w", annotationID, err)
		}
		return nil
	})
}

// ListByImage retrieves all annotations on an image
func (r *AnnotationRepository) ListByImage(imageID uint) ([]models.Annotation, error) {
	var annotations []models.Annotation
	err := r.DB.Where("image_id = ?", imageID).Order("id ASC").Find(&annotations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list annotations for image %d: %w", imageID, err)
	}
	return annotations, nil
}

// HistoryForUser retrieves the user's history entries for an image,
// most recent first
func (r *AnnotationRepository) HistoryForUser(imageID, userID uint, limit int) ([]models.AnnotationHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.AnnotationHistory
	err := r.DB.Where("image_id = ? AND user_id = ?", imageID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list annotation history for image %d: %w", imageID, err)
	}
	return entries, nil
}
