package importer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/labelsysbackend/config"
	"github.com/camden-git/labelsysbackend/database"
	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
)

func testConfig() config.Config {
	return config.Config{
		AllowedImageExtensions: map[string]bool{".jpg": true, ".png": true},
	}
}

func setupImporter(t *testing.T) (*Importer, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrateModels(db))

	imp := NewImporter(testConfig(), repository.NewDatasetRepository(db), repository.NewImageRepository(db))
	return imp, db
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("not a real image"), 0644))
}

func TestScanDatasetImportsNewFiles(t *testing.T) {
	imp, db := setupImporter(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "img_2.jpg"))
	writeFile(t, filepath.Join(dir, "img_10.jpg"))
	writeFile(t, filepath.Join(dir, "notes.txt"))

	dataset := &models.Dataset{Name: "plates", ImagePath: dir, IsActive: true}
	require.NoError(t, db.Create(dataset).Error)

	result, err := imp.ScanDataset(dataset.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.FoundImages)
	require.Equal(t, 2, result.ImportedImages)
	require.Equal(t, 0, result.SkippedImages)

	// natural order puts img_2 before img_10
	var images []models.Image
	require.NoError(t, db.Where("dataset_id = ?", dataset.ID).Order("id ASC").Find(&images).Error)
	require.Len(t, images, 2)
	require.Equal(t, "img_2.jpg", images[0].Filename)
	require.Equal(t, "img_10.jpg", images[1].Filename)
	for _, image := range images {
		require.Equal(t, database.ImageStatusPending, image.Status)
	}

	var updated models.Dataset
	require.NoError(t, db.First(&updated, dataset.ID).Error)
	require.Equal(t, 2, updated.TotalImages)
}

func TestScanDatasetSkipsKnownFilenames(t *testing.T) {
	imp, db := setupImporter(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.jpg"))

	dataset := &models.Dataset{Name: "plates", ImagePath: dir, IsActive: true}
	require.NoError(t, db.Create(dataset).Error)

	_, err := imp.ScanDataset(dataset.ID)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "b.jpg"))
	result, err := imp.ScanDataset(dataset.ID)
	require.NoError(t, err)
	require.Equal(t, 2, result.FoundImages)
	require.Equal(t, 1, result.ImportedImages)
	require.Equal(t, 1, result.SkippedImages)
}

func TestScanDatasetMissingDirectory(t *testing.T) {
	imp, db := setupImporter(t)

	dataset := &models.Dataset{Name: "plates", ImagePath: "/does/not/exist", IsActive: true}
	require.NoError(t, db.Create(dataset).Error)

	_, err := imp.ScanDataset(dataset.ID)
	require.True(t, errors.Is(err, ErrNotADirectory))
}

func TestScanDatasetUnknownDataset(t *testing.T) {
	imp, _ := setupImporter(t)

	_, err := imp.ScanDataset(42)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func collectEvents(t *testing.T, imp *Importer, root string) []ProgressEvent {
	t.Helper()
	events := make(chan ProgressEvent, 64)
	go func() {
		imp.BatchImport(root, events)
		close(events)
	}()
	var collected []ProgressEvent
	for event := range events {
		collected = append(collected, event)
	}
	return collected
}

func TestBatchImportCreatesDatasets(t *testing.T) {
	imp, db := setupImporter(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cars", "images", "a.jpg"))
	writeFile(t, filepath.Join(root, "cars", "images", "b.jpg"))
	writeFile(t, filepath.Join(root, "trucks", "image", "c.png"))
	writeFile(t, filepath.Join(root, "empty", "images", "readme.txt"))

	events := collectEvents(t, imp, root)
	require.NotEmpty(t, events)
	require.Equal(t, StatusScanning, events[0].Status)

	final := events[len(events)-1]
	require.Equal(t, StatusDone, final.Status)
	require.Equal(t, 2, final.DatasetsCreated)
	require.Equal(t, 3, final.TotalImagesImported)

	var datasets []models.Dataset
	require.NoError(t, db.Order("name ASC").Find(&datasets).Error)
	require.Len(t, datasets, 2)
	require.Equal(t, "cars", datasets[0].Name)
	require.Equal(t, "trucks", datasets[1].Name)
	require.Equal(t, 2, datasets[0].TotalImages)

	// labels directories are created next to each imported image folder
	info, err := os.Stat(filepath.Join(root, "cars", "labels"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestBatchImportSkipsExistingDatasets(t *testing.T) {
	imp, db := setupImporter(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cars", "images", "a.jpg"))

	events := collectEvents(t, imp, root)
	require.Equal(t, StatusDone, events[len(events)-1].Status)

	// re-running the import on the same tree creates nothing new
	events = collectEvents(t, imp, root)
	final := events[len(events)-1]
	require.Equal(t, StatusDone, final.Status)
	require.Equal(t, 0, final.DatasetsCreated)
	require.Equal(t, 0, final.TotalImagesImported)

	var count int64
	require.NoError(t, db.Model(&models.Dataset{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestBatchImportStopsOnStoreFailure(t *testing.T) {
	imp, db := setupImporter(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cars", "images", "a.jpg"))

	// a broken store must end the stream with an error event, not be read
	// as "dataset absent" and imported into
	require.NoError(t, db.Exec("DROP TABLE datasets").Error)

	events := collectEvents(t, imp, root)
	final := events[len(events)-1]
	require.Equal(t, StatusError, final.Status)
	require.Equal(t, 0, final.DatasetsCreated)
}

func TestBatchImportBadRoot(t *testing.T) {
	imp, _ := setupImporter(t)

	events := collectEvents(t, imp, "/does/not/exist")
	require.Len(t, events, 1)
	require.Equal(t, StatusError, events[0].Status)
}

func TestBatchImportNoImportableFolders(t *testing.T) {
	imp, _ := setupImporter(t)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "readme.txt"))

	events := collectEvents(t, imp, root)
	final := events[len(events)-1]
	require.Equal(t, StatusDone, final.Status)
	require.Equal(t, 0, final.TotalFolders)
}

func TestFindImageFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "cars", "images", "a.jpg"))
	writeFile(t, filepath.Join(root, "nested", "trucks", "image", "b.jpg"))

	folders, err := FindImageFolders(root)
	require.NoError(t, err)
	require.Len(t, folders, 2)

	byName := map[string]ImageFolder{}
	for _, folder := range folders {
		byName[folder.DatasetName] = folder
	}
	require.Contains(t, byName, "cars")
	require.Contains(t, byName, "trucks")
	require.Equal(t, filepath.Join(root, "cars", "labels"), byName["cars"].LabelPath)
}

func TestHasImportableImages(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	require.False(t, HasImportableImages(cfg, dir))

	writeFile(t, filepath.Join(dir, "notes.txt"))
	require.False(t, HasImportableImages(cfg, dir))

	writeFile(t, filepath.Join(dir, "a.jpg"))
	require.True(t, HasImportableImages(cfg, dir))
}
