package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/labelsysbackend/importer"
	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
	"github.com/camden-git/labelsysbackend/workers"
)

type DatasetHandler struct {
	DatasetRepo repository.DatasetRepositoryInterface
	Importer    *importer.Importer
	PreviewGen  *workers.PreviewGenerator
}

func NewDatasetHandler(datasetRepo repository.DatasetRepositoryInterface, imp *importer.Importer, previewGen *workers.PreviewGenerator) *DatasetHandler {
	return &DatasetHandler{DatasetRepo: datasetRepo, Importer: imp, PreviewGen: previewGen}
}

type DatasetCreatePayload struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ImagePath   string  `json:"image_path"`
	LabelPath   *string `json:"label_path,omitempty"`
}

type DatasetUpdatePayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`
	LabelPath   *string `json:"label_path,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func datasetIDParam(r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "dataset_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// ListDatasets returns active datasets; administrators also see inactive ones
func (dh *DatasetHandler) ListDatasets(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var datasets []models.Dataset
	var err error
	if user != nil && user.IsAdmin {
		datasets, err = dh.DatasetRepo.ListAllAdmin()
	} else {
		datasets, err = dh.DatasetRepo.ListAll()
	}
	if err != nil {
		writeRepositoryError(w, err, "")
		return
	}
	if datasets == nil {
		datasets = []models.Dataset{}
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (dh *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	dataset, err := dh.DatasetRepo.GetByID(datasetID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}

	user := UserFromContext(r.Context())
	if !dataset.IsActive && (user == nil || !user.IsAdmin) {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "dataset is not active")
		return
	}

	writeJSON(w, http.StatusOK, dataset)
}

func (dh *DatasetHandler) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var payload DatasetCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if payload.Name == "" || payload.ImagePath == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "name and image_path are required")
		return
	}

	if info, err := os.Stat(payload.ImagePath); err != nil || !info.IsDir() {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "image path does not exist")
		return
	}
	if payload.LabelPath != nil && *payload.LabelPath != "" {
		if err := os.MkdirAll(*payload.LabelPath, 0755); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "could not create label directory: "+err.Error())
			return
		}
	}

	dataset := models.Dataset{
		Name:        payload.Name,
		Description: payload.Description,
		ImagePath:   payload.ImagePath,
		LabelPath:   payload.LabelPath,
		IsActive:    true,
	}
	if err := dh.DatasetRepo.Create(&dataset); err != nil {
		writeRepositoryError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, dataset)
}

func (dh *DatasetHandler) UpdateDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	var payload DatasetUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if payload.ImagePath != nil {
		if info, err := os.Stat(*payload.ImagePath); err != nil || !info.IsDir() {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "image path does not exist")
			return
		}
	}

	err := dh.DatasetRepo.Update(datasetID, payload.Name, payload.Description, payload.ImagePath, payload.LabelPath, payload.IsActive)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}

	dataset, err := dh.DatasetRepo.GetByID(datasetID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, dataset)
}

func (dh *DatasetHandler) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	if err := dh.DatasetRepo.Delete(datasetID); err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "dataset deleted"})
}

// ScanDataset imports new image files from the dataset's filesystem root
func (dh *DatasetHandler) ScanDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	result, err := dh.Importer.ScanDataset(datasetID)
	if err != nil {
		if errors.Is(err, importer.ErrNotADirectory) {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		writeRepositoryError(w, err, "dataset not found")
		return
	}

	// previews for newly imported images are generated in the background
	if dh.PreviewGen != nil {
		dh.PreviewGen.QueuePendingPreviews()
	}

	writeJSON(w, http.StatusOK, result)
}

// GetProgress reports per-status image counts for a dataset
func (dh *DatasetHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	progress, err := dh.DatasetRepo.Progress(datasetID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	writeJSON(w, http.StatusOK, progress)
}
