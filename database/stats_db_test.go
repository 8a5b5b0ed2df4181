package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/labelsysbackend/models"
)

func setupStatsDB(t *testing.T) (*gorm.DB, *sql.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrateModels(db))
	return db, sqlDB
}

func seedStatsFixture(t *testing.T, db *gorm.DB) (plates, faces models.Dataset) {
	t.Helper()
	plates = models.Dataset{Name: "plates", ImagePath: "/data/plates", IsActive: true}
	require.NoError(t, db.Create(&plates).Error)
	faces = models.Dataset{Name: "faces", ImagePath: "/data/faces", IsActive: true}
	require.NoError(t, db.Create(&faces).Error)

	rows := []models.WorkStatistic{
		{UserID: 1, DatasetID: plates.ID, Date: "2026-08-29", ImagesLabeled: 3, AnnotationsCreated: 7},
		{UserID: 1, DatasetID: plates.ID, Date: "2026-08-30", ImagesLabeled: 5, AnnotationsCreated: 12},
		{UserID: 1, DatasetID: faces.ID, Date: "2026-08-30", ImagesLabeled: 2, AnnotationsCreated: 2},
		{UserID: 2, DatasetID: plates.ID, Date: "2026-08-30", ImagesLabeled: 9, AnnotationsCreated: 40},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}
	return plates, faces
}

func TestListUserWorkStatistics(t *testing.T) {
	db, sqlDB := setupStatsDB(t)
	plates, faces := seedStatsFixture(t, db)

	rows, err := ListUserWorkStatistics(sqlDB, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// most recent day first, dataset id ascending within a day, other
	// users' rows excluded
	require.Equal(t, "2026-08-30", rows[0].Date)
	require.Equal(t, "2026-08-30", rows[1].Date)
	require.Equal(t, "2026-08-29", rows[2].Date)
	require.EqualValues(t, plates.ID, rows[0].DatasetID)
	require.EqualValues(t, faces.ID, rows[1].DatasetID)

	// the dataset name comes from the join
	require.Equal(t, "plates", rows[0].DatasetName)
	require.Equal(t, "faces", rows[1].DatasetName)
	require.Equal(t, 5, rows[0].ImagesLabeled)
	require.Equal(t, 12, rows[0].AnnotationsCreated)
}

func TestListUserWorkStatisticsLimit(t *testing.T) {
	db, sqlDB := setupStatsDB(t)
	seedStatsFixture(t, db)

	rows, err := ListUserWorkStatistics(sqlDB, 1, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "2026-08-30", rows[0].Date)
}

func TestGetUserWorkTotals(t *testing.T) {
	db, sqlDB := setupStatsDB(t)
	seedStatsFixture(t, db)

	totals, err := GetUserWorkTotals(sqlDB, 1)
	require.NoError(t, err)
	require.Equal(t, 10, totals.ImagesLabeled)
	require.Equal(t, 21, totals.AnnotationsCreated)
}

func TestGetUserWorkTotalsEmpty(t *testing.T) {
	_, sqlDB := setupStatsDB(t)

	// COALESCE keeps the sums at zero instead of scanning NULL
	totals, err := GetUserWorkTotals(sqlDB, 42)
	require.NoError(t, err)
	require.Equal(t, 0, totals.ImagesLabeled)
	require.Equal(t, 0, totals.AnnotationsCreated)

	rows, err := ListUserWorkStatistics(sqlDB, 42, 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}
