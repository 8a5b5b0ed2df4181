package repository

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// a single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrateModels(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username}
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestDataset(t *testing.T, db *gorm.DB, name string) *models.Dataset {
	t.Helper()
	dataset := &models.Dataset{
		Name:      name,
		ImagePath: "/data/" + name + "/images",
		IsActive:  true,
	}
	require.NoError(t, db.Create(dataset).Error)
	return dataset
}

func createTestCategory(t *testing.T, db *gorm.DB, datasetID uint, name string, shortcut *string) *models.Category {
	t.Helper()
	category := &models.Category{
		DatasetID:   datasetID,
		Name:        name,
		Color:       "#ff0000",
		ShortcutKey: shortcut,
	}
	require.NoError(t, db.Create(category).Error)
	return category
}

func createTestImages(t *testing.T, db *gorm.DB, datasetID uint, count int) []models.Image {
	t.Helper()
	images := make([]models.Image, 0, count)
	for i := 0; i < count; i++ {
		image := models.Image{
			DatasetID: datasetID,
			Filename:  fmt.Sprintf("img_%03d.jpg", i+1),
			FilePath:  fmt.Sprintf("/data/images/img_%03d.jpg", i+1),
			Status:    database.ImageStatusPending,
			CreatedAt: 1,
		}
		require.NoError(t, db.Create(&image).Error)
		images = append(images, image)
	}
	return images
}

func strPtr(s string) *string { return &s }
