package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

func TestNextForUserAssignsLowestPending(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	images := createTestImages(t, db, dataset.ID, 3)

	got, err := NewImageRepository(db).NextForUser(dataset.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, images[0].ID, got.ID)
	require.Equal(t, database.ImageStatusAssigned, got.Status)
	require.NotNil(t, got.AssignedTo)
	require.Equal(t, user.ID, *got.AssignedTo)
	require.NotNil(t, got.AssignedAt)
}

func TestNextForUserReturnsHeldAssignment(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	createTestImages(t, db, dataset.ID, 3)

	repo := NewImageRepository(db)
	first, err := repo.NextForUser(dataset.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// asking again must return the same image, not claim a second one
	second, err := repo.NextForUser(dataset.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, first.ID, second.ID)

	var assignedCount int64
	require.NoError(t, db.Model(&models.Image{}).
		Where("status = ?", database.ImageStatusAssigned).Count(&assignedCount).Error)
	require.EqualValues(t, 1, assignedCount)
}

func TestNextForUserTwoUsersGetDifferentImages(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestImages(t, db, dataset.ID, 3)

	repo := NewImageRepository(db)
	forAlice, err := repo.NextForUser(dataset.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, forAlice)

	forBob, err := repo.NextForUser(dataset.ID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, forBob)
	require.NotEqual(t, forAlice.ID, forBob.ID)
}

func TestNextForUserReselectsAfterLostClaim(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	alice := createTestUser(t, db, "alice")
	rival := createTestUser(t, db, "bob")
	images := createTestImages(t, db, dataset.ID, 3)

	// steal the first candidate between its selection and the conditional
	// claim update, so the claim hits zero rows and the loop reselects
	stolen := false
	err := db.Callback().Query().After("gorm:query").Register("steal_claim", func(tx *gorm.DB) {
		if stolen || tx.Error != nil {
			return
		}
		candidate, ok := tx.Statement.Dest.(*models.Image)
		if !ok || candidate.ID == 0 || candidate.Status != database.ImageStatusPending {
			return
		}
		stolen = true
		steal := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE images SET status = ?, assigned_to = ?, assigned_at = 1 WHERE id = ?",
				database.ImageStatusAssigned, rival.ID, candidate.ID)
		require.NoError(t, steal.Error)
	})
	require.NoError(t, err)

	got, err := NewImageRepository(db).NextForUser(dataset.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.True(t, stolen)
	require.Equal(t, images[1].ID, got.ID)
	require.NotNil(t, got.AssignedTo)
	require.Equal(t, alice.ID, *got.AssignedTo)

	var first models.Image
	require.NoError(t, db.First(&first, images[0].ID).Error)
	require.Equal(t, database.ImageStatusAssigned, first.Status)
	require.Equal(t, rival.ID, *first.AssignedTo)
}

func TestNextForUserExhaustedDataset(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")

	got, err := NewImageRepository(db).NextForUser(dataset.ID, user.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestNextForUserInactiveDataset(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	user := createTestUser(t, db, "alice")
	createTestImages(t, db, dataset.ID, 1)

	require.NoError(t, db.Model(&models.Dataset{}).
		Where("id = ?", dataset.ID).Update("is_active", false).Error)

	_, err := NewImageRepository(db).NextForUser(dataset.ID, user.ID)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestCreateBatchAndListFilenames(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	repo := NewImageRepository(db)

	images := createTestImages(t, db, dataset.ID, 2)
	require.Len(t, images, 2)

	existing, err := repo.ListFilenamesByDataset(dataset.ID)
	require.NoError(t, err)
	require.True(t, existing["img_001.jpg"])
	require.True(t, existing["img_002.jpg"])
	require.False(t, existing["img_003.jpg"])

	require.NoError(t, repo.CreateBatch(nil))
}

func TestPreviewLifecycle(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewImageRepository(db)

	pending, err := repo.GetImagesRequiringPreviews()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkPreviewProcessing(images[0].ID))

	previewPath := "/previews/abc.jpg"
	width, height := 640, 480
	require.NoError(t, repo.UpdatePreviewResult(images[0].ID, &previewPath, nil, &width, &height, nil))

	got, err := repo.GetByID(images[0].ID)
	require.NoError(t, err)
	require.Equal(t, database.StatusDone, got.PreviewStatus)
	require.NotNil(t, got.PreviewPath)
	require.Equal(t, previewPath, *got.PreviewPath)
	require.NotNil(t, got.Width)
	require.Equal(t, width, *got.Width)

	pending, err = repo.GetImagesRequiringPreviews()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestUpdatePreviewResultRecordsError(t *testing.T) {
	db := setupTestDB(t)
	dataset := createTestDataset(t, db, "plates")
	images := createTestImages(t, db, dataset.ID, 1)
	repo := NewImageRepository(db)

	require.NoError(t, repo.UpdatePreviewResult(images[0].ID, nil, nil, nil, nil, errors.New("decode failed")))

	got, err := repo.GetByID(images[0].ID)
	require.NoError(t, err)
	require.Equal(t, database.StatusError, got.PreviewStatus)
	require.NotNil(t, got.PreviewError)
	require.Contains(t, *got.PreviewError, "decode failed")
	require.Nil(t, got.PreviewPath)
}
