package importer

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/facette/natsort"
	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/config"
	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
	"github.com/camden-git/labelsysbackend/utils"
)

// ErrNotADirectory is returned when a configured image or import root does
// not exist or is not a directory
var ErrNotADirectory = errors.New("path does not exist or is not a directory")

// batch import stream statuses
const (
	StatusScanning  = "scanning"
	StatusImporting = "importing"
	StatusDone      = "done"
	StatusError     = "error"
)

// ProgressEvent is one entry of the batch-import progress stream
type ProgressEvent struct {
	Status              string `json:"status"`
	CurrentFolder       string `json:"current_folder,omitempty"`
	TotalFolders        int    `json:"total_folders"`
	ProcessedFolders    int    `json:"processed_folders"`
	CurrentDataset      string `json:"current_dataset,omitempty"`
	DatasetsCreated     int    `json:"datasets_created"`
	TotalImagesImported int    `json:"total_images_imported"`
	Message             string `json:"message,omitempty"`
}

// ScanResult summarises one dataset scan
type ScanResult struct {
	FoundImages    int `json:"found_images"`
	ImportedImages int `json:"imported_images"`
	SkippedImages  int `json:"skipped_images"`
}

// Importer discovers image files on disk and registers them as pending
// annotation work. Filesystem enumeration and dimension probing happen before
// any records are written, so slow walks never hold a store transaction open.
type Importer struct {
	Cfg         config.Config
	DatasetRepo repository.DatasetRepositoryInterface
	ImageRepo   repository.ImageRepositoryInterface
}

// NewImporter creates a new instance of Importer
func NewImporter(cfg config.Config, datasetRepo repository.DatasetRepositoryInterface, imageRepo repository.ImageRepositoryInterface) *Importer {
	return &Importer{Cfg: cfg, DatasetRepo: datasetRepo, ImageRepo: imageRepo}
}

// enumerate lists the allowed image files of a directory in natural filename
// order and probes their dimensions, tolerating per-file decode failures
func (imp *Importer) enumerate(imageDir string, datasetID uint, existing map[string]bool) (found int, skipped int, records []*models.Image, err error) {
	entries, err := os.ReadDir(imageDir)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("failed to read image directory %s: %w", imageDir, err)
	}

	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || !imp.Cfg.IsAllowedImage(entry.Name()) {
			continue
		}
		filenames = append(filenames, entry.Name())
	}
	// natural order keeps "img2" before "img10", giving a stable
	// earliest-imported-first assignment order
	natsort.Sort(filenames)

	for _, filename := range filenames {
		found++
		if existing[filename] {
			skipped++
			continue
		}

		filePath := filepath.Join(imageDir, filename)
		record := &models.Image{
			DatasetID: datasetID,
			Filename:  filename,
			FilePath:  filePath,
		}

		if w, h, err := utils.ProbeDimensions(filePath); err == nil {
			record.Width = &w
			record.Height = &h
		} else {
			// unreadable image still gets a record, with unknown dimensions
			log.Printf("importer: could not probe dimensions of %s: %v", filePath, err)
		}
		records = append(records, record)
	}
	return found, skipped, records, nil
}

// ScanDataset imports new image files from a dataset's filesystem root.
// Files already recorded (by filename) are skipped. The dataset's aggregate
// counters are recounted afterwards.
func (imp *Importer) ScanDataset(datasetID uint) (*ScanResult, error) {
	dataset, err := imp.DatasetRepo.GetByID(datasetID)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(dataset.ImagePath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("image path %s: %w", dataset.ImagePath, ErrNotADirectory)
	}

	existing, err := imp.ImageRepo.ListFilenamesByDataset(datasetID)
	if err != nil {
		return nil, err
	}

	found, skipped, records, err := imp.enumerate(dataset.ImagePath, datasetID, existing)
	if err != nil {
		return nil, err
	}

	if err := imp.ImageRepo.CreateBatch(records); err != nil {
		return nil, err
	}
	if err := imp.DatasetRepo.RecountImages(datasetID); err != nil {
		return nil, err
	}

	return &ScanResult{
		FoundImages:    found,
		ImportedImages: len(records),
		SkippedImages:  skipped,
	}, nil
}

// BatchImport walks root for image folders and registers each as a new
// dataset, emitting progress events as it goes. Each folder commits
// independently; a failure ends the stream with an error event but keeps
// everything imported before it. The caller owns the events channel and is
// expected to drain it; BatchImport never closes it.
func (imp *Importer) BatchImport(root string, events chan<- ProgressEvent) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		events <- ProgressEvent{Status: StatusError, Message: fmt.Sprintf("root path %s is not a directory", root)}
		return
	}

	events <- ProgressEvent{Status: StatusScanning, Message: "scanning directory tree for image folders"}

	candidates, err := FindImageFolders(root)
	if err != nil {
		events <- ProgressEvent{Status: StatusError, Message: err.Error()}
		return
	}

	var folders []ImageFolder
	for _, folder := range candidates {
		if HasImportableImages(imp.Cfg, folder.ImagePath) {
			folders = append(folders, folder)
		}
	}

	totalFolders := len(folders)
	if totalFolders == 0 {
		events <- ProgressEvent{Status: StatusDone, Message: "no image folders with importable files found"}
		return
	}

	events <- ProgressEvent{
		Status:       StatusImporting,
		TotalFolders: totalFolders,
		Message:      fmt.Sprintf("found %d dataset folder(s)", totalFolders),
	}

	datasetsCreated := 0
	totalImagesImported := 0

	for idx, folder := range folders {
		// image_path identifies a dataset more reliably than its name
		_, err := imp.DatasetRepo.GetByImagePath(folder.ImagePath)
		if err == nil {
			events <- ProgressEvent{
				Status:              StatusImporting,
				CurrentFolder:       folder.DatasetName,
				TotalFolders:        totalFolders,
				ProcessedFolders:    idx + 1,
				DatasetsCreated:     datasetsCreated,
				TotalImagesImported: totalImagesImported,
				Message:             fmt.Sprintf("skipping existing dataset: %s", folder.DatasetName),
			}
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			// a store failure is not "dataset absent"; stop instead of
			// creating a duplicate
			events <- ProgressEvent{Status: StatusError, Message: fmt.Sprintf("failed to check for existing dataset at %s: %v", folder.ImagePath, err)}
			return
		}

		if err := os.MkdirAll(folder.LabelPath, 0755); err != nil {
			events <- ProgressEvent{Status: StatusError, Message: fmt.Sprintf("failed to create labels directory %s: %v", folder.LabelPath, err)}
			return
		}

		description := fmt.Sprintf("Imported from %s", root)
		labelPath := folder.LabelPath
		dataset := models.Dataset{
			Name:        folder.DatasetName,
			Description: &description,
			ImagePath:   folder.ImagePath,
			LabelPath:   &labelPath,
		}
		if err := imp.DatasetRepo.Create(&dataset); err != nil {
			events <- ProgressEvent{Status: StatusError, Message: fmt.Sprintf("failed to create dataset %s: %v", folder.DatasetName, err)}
			return
		}
		datasetsCreated++

		events <- ProgressEvent{
			Status:              StatusImporting,
			CurrentFolder:       folder.DatasetName,
			CurrentDataset:      folder.DatasetName,
			TotalFolders:        totalFolders,
			ProcessedFolders:    idx,
			DatasetsCreated:     datasetsCreated,
			TotalImagesImported: totalImagesImported,
			Message:             fmt.Sprintf("importing: %s", folder.DatasetName),
		}

		_, _, records, err := imp.enumerate(folder.ImagePath, dataset.ID, nil)
		if err != nil {
			events <- ProgressEvent{Status: StatusError, Message: err.Error()}
			return
		}
		if err := imp.ImageRepo.CreateBatch(records); err != nil {
			events <- ProgressEvent{Status: StatusError, Message: err.Error()}
			return
		}
		if err := imp.DatasetRepo.RecountImages(dataset.ID); err != nil {
			events <- ProgressEvent{Status: StatusError, Message: err.Error()}
			return
		}
		totalImagesImported += len(records)

		events <- ProgressEvent{
			Status:              StatusImporting,
			CurrentFolder:       folder.DatasetName,
			TotalFolders:        totalFolders,
			ProcessedFolders:    idx + 1,
			DatasetsCreated:     datasetsCreated,
			TotalImagesImported: totalImagesImported,
			Message:             fmt.Sprintf("%s: imported %d image(s)", folder.DatasetName, len(records)),
		}
	}

	events <- ProgressEvent{
		Status:              StatusDone,
		TotalFolders:        totalFolders,
		ProcessedFolders:    totalFolders,
		DatasetsCreated:     datasetsCreated,
		TotalImagesImported: totalImagesImported,
		Message:             fmt.Sprintf("import finished: %d dataset(s), %d image(s)", datasetsCreated, totalImagesImported),
	}
}
