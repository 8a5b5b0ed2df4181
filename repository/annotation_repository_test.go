package repository

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

func TestSaveForImageReplacesAnnotationSet(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", strPtr("1"))
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	// seed an old annotation that the save must replace
	old, err := repo.CreateOne(images[0].ID, user.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.1, YCenter: 0.1, Width: 0.2, Height: 0.2,
	})
	require.NoError(t, err)

	status, err := repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
		{CategoryID: category.ID, XCenter: 0.7, YCenter: 0.2, Width: 0.1, Height: 0.1},
	}, false)
	require.NoError(t, err)
	require.Equal(t, database.ImageStatusLabeled, status)

	annotations, err := repo.ListByImage(images[0].ID)
	require.NoError(t, err)
	require.Len(t, annotations, 2)
	for _, a := range annotations {
		require.NotEqual(t, old.ID, a.ID)
		require.Equal(t, user.ID, a.CreatedBy)
	}

	image, err := NewImageRepository(db).GetByID(images[0].ID)
	require.NoError(t, err)
	require.Equal(t, database.ImageStatusLabeled, image.Status)
	require.NotNil(t, image.LabeledBy)
	require.Equal(t, user.ID, *image.LabeledBy)
	require.NotNil(t, image.LabeledAt)
}

func TestSaveForImageAppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	_, err := repo.CreateOne(images[0].ID, user.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.1, YCenter: 0.1, Width: 0.2, Height: 0.2,
	})
	require.NoError(t, err)

	_, err = repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
	}, false)
	require.NoError(t, err)

	// CreateOne: 1 create. SaveForImage: 1 delete (old) + 1 create (new).
	history, err := repo.HistoryForUser(images[0].ID, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	actions := map[string]int{}
	for _, entry := range history {
		actions[entry.Action]++

		var snapshot map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(entry.Data), &snapshot))
		require.Contains(t, snapshot, "category_id")
	}
	require.Equal(t, 2, actions[database.HistoryActionCreate])
	require.Equal(t, 1, actions[database.HistoryActionDelete])
}

func TestSaveForImageSkip(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	// a skip discards any submitted boxes
	status, err := repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
	}, true)
	require.NoError(t, err)
	require.Equal(t, database.ImageStatusSkipped, status)

	annotations, err := repo.ListByImage(images[0].ID)
	require.NoError(t, err)
	require.Empty(t, annotations)

	var stat models.WorkStatistic
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&stat).Error)
	require.Equal(t, 1, stat.ImagesLabeled)
	require.Equal(t, 0, stat.AnnotationsCreated)
}

func TestSaveForImageRejectsForeignCategory(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	other := createTestDataset(t, db, "other")
	user := createTestUser(t, db, "alice")
	ownCategory := createTestCategory(t, db, dataset.ID, "car", nil)
	foreignCategory := createTestCategory(t, db, other.ID, "truck", nil)
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	existing, err := repo.CreateOne(images[0].ID, user.ID, AnnotationInput{
		CategoryID: ownCategory.ID, XCenter: 0.1, YCenter: 0.1, Width: 0.2, Height: 0.2,
	})
	require.NoError(t, err)

	_, err = repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: foreignCategory.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
	}, false)
	require.True(t, errors.Is(err, ErrInvalidCategory))

	// the rollback must leave the previous set and the image status intact
	annotations, err := repo.ListByImage(images[0].ID)
	require.NoError(t, err)
	require.Len(t, annotations, 1)
	require.Equal(t, existing.ID, annotations[0].ID)

	image, err := NewImageRepository(db).GetByID(images[0].ID)
	require.NoError(t, err)
	require.Equal(t, database.ImageStatusPending, image.Status)
}

func TestSaveForImageMissingImage(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")
	repo := NewAnnotationRepository(db)

	_, err := repo.SaveForImage(999, user.ID, nil, false)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestSaveForImageUpdatesWorkStatistics(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 2)
	repo := NewAnnotationRepository(db)

	_, err := repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
		{CategoryID: category.ID, XCenter: 0.2, YCenter: 0.2, Width: 0.1, Height: 0.1},
	}, false)
	require.NoError(t, err)

	_, err = repo.SaveForImage(images[1].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.4, YCenter: 0.4, Width: 0.2, Height: 0.2},
	}, false)
	require.NoError(t, err)

	// two saves on the same day accumulate into a single row
	var stats []models.WorkStatistic
	require.NoError(t, db.Where("user_id = ?", user.ID).Find(&stats).Error)
	require.Len(t, stats, 1)
	require.Equal(t, 2, stats[0].ImagesLabeled)
	require.Equal(t, 3, stats[0].AnnotationsCreated)
	require.Equal(t, time.Now().Format("2006-01-02"), stats[0].Date)
	require.Equal(t, dataset.ID, stats[0].DatasetID)
}

func TestSaveForImageRecountsDatasetCounters(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 3)
	repo := NewAnnotationRepository(db)

	_, err := repo.SaveForImage(images[0].ID, user.ID, []AnnotationInput{
		{CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3},
	}, false)
	require.NoError(t, err)

	_, err = repo.SaveForImage(images[1].ID, user.ID, nil, true)
	require.NoError(t, err)

	got, err := NewDatasetRepository(db).GetByID(dataset.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.TotalImages)
	require.Equal(t, 1, got.LabeledImages) // skipped does not count as labeled
}

func TestDeleteOneSnapshotsBeforeRemoval(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	annotation, err := repo.CreateOne(images[0].ID, user.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3,
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteOne(annotation.ID, user.ID))

	annotations, err := repo.ListByImage(images[0].ID)
	require.NoError(t, err)
	require.Empty(t, annotations)

	history, err := repo.HistoryForUser(images[0].ID, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, database.HistoryActionDelete, history[0].Action)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(history[0].Data), &snapshot))
	require.EqualValues(t, annotation.ID, snapshot["annotation_id"])
	require.EqualValues(t, 0.5, snapshot["x_center"])
}

func TestDeleteOneMissingAnnotation(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "alice")

	err := NewAnnotationRepository(db).DeleteOne(42, user.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateOneRejectsForeignCategory(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	other := createTestDataset(t, db, "other")
	user := createTestUser(t, db, "alice")
	foreignCategory := createTestCategory(t, db, other.ID, "truck", nil)
	images := createTestImages(t, db, dataset.ID, 1)

	_, err := NewAnnotationRepository(db).CreateOne(images[0].ID, user.ID, AnnotationInput{
		CategoryID: foreignCategory.ID, XCenter: 0.5, YCenter: 0.5, Width: 0.3, Height: 0.3,
	})
	require.True(t, errors.Is(err, ErrInvalidCategory))
}

func TestHistoryForUserIsScopedAndOrdered(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	category := createTestCategory(t, db, dataset.ID, "car", nil)
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewAnnotationRepository(db)

	_, err := repo.CreateOne(images[0].ID, alice.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.1, YCenter: 0.1, Width: 0.1, Height: 0.1,
	})
	require.NoError(t, err)
	_, err = repo.CreateOne(images[0].ID, bob.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.2, YCenter: 0.2, Width: 0.1, Height: 0.1,
	})
	require.NoError(t, err)
	_, err = repo.CreateOne(images[0].ID, alice.ID, AnnotationInput{
		CategoryID: category.ID, XCenter: 0.3, YCenter: 0.3, Width: 0.1, Height: 0.1,
	})
	require.NoError(t, err)

	history, err := repo.HistoryForUser(images[0].ID, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	for _, entry := range history {
		require.Equal(t, alice.ID, entry.UserID)
	}
	// most recent first
	require.Greater(t, history[0].ID, history[1].ID)
}
