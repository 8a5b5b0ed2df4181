package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
)

type CategoryHandler struct {
	CategoryRepo repository.CategoryRepositoryInterface
}

func NewCategoryHandler(categoryRepo repository.CategoryRepositoryInterface) *CategoryHandler {
	return &CategoryHandler{CategoryRepo: categoryRepo}
}

type CategoryPayload struct {
	DatasetID   uint    `json:"dataset_id"`
	Name        string  `json:"name"`
	Color       string  `json:"color"`
	ShortcutKey *string `json:"shortcut_key,omitempty"`
	SortOrder   int     `json:"sort_order"`
}

type CategoryUpdatePayload struct {
	Name        *string `json:"name,omitempty"`
	Color       *string `json:"color,omitempty"`
	ShortcutKey *string `json:"shortcut_key,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

func categoryIDParam(r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "category_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (ch *CategoryHandler) ListByDataset(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	categories, err := ch.CategoryRepo.ListByDataset(datasetID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (ch *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var payload CategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if payload.DatasetID == 0 || payload.Name == "" {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "dataset_id and name are required")
		return
	}

	category := models.Category{
		DatasetID:   payload.DatasetID,
		Name:        payload.Name,
		Color:       payload.Color,
		ShortcutKey: payload.ShortcutKey,
		SortOrder:   payload.SortOrder,
	}
	if err := ch.CategoryRepo.Create(&category); err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// BatchCreateCategories inserts several categories in one transaction; all
// must belong to the same dataset
func (ch *CategoryHandler) BatchCreateCategories(w http.ResponseWriter, r *http.Request) {
	var payloads []CategoryPayload
	if err := json.NewDecoder(r.Body).Decode(&payloads); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(payloads) == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "at least one category is required")
		return
	}

	categories := make([]*models.Category, 0, len(payloads))
	for _, p := range payloads {
		if p.DatasetID == 0 || p.Name == "" {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "dataset_id and name are required for every category")
			return
		}
		categories = append(categories, &models.Category{
			DatasetID:   p.DatasetID,
			Name:        p.Name,
			Color:       p.Color,
			ShortcutKey: p.ShortcutKey,
			SortOrder:   p.SortOrder,
		})
	}

	if err := ch.CategoryRepo.BatchCreate(categories); err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}

	created := make([]models.Category, 0, len(categories))
	for _, c := range categories {
		created = append(created, *c)
	}
	writeJSON(w, http.StatusCreated, created)
}

func (ch *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := categoryIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid category ID format")
		return
	}

	var payload CategoryUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	err := ch.CategoryRepo.Update(categoryID, payload.Name, payload.ShortcutKey, payload.Color, payload.SortOrder)
	if err != nil {
		writeRepositoryError(w, err, "category not found")
		return
	}

	category, err := ch.CategoryRepo.GetByID(categoryID)
	if err != nil {
		writeRepositoryError(w, err, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (ch *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := categoryIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid category ID format")
		return
	}

	if err := ch.CategoryRepo.Delete(categoryID); err != nil {
		writeRepositoryError(w, err, "category not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "category deleted"})
}

type CategoryImportPayload struct {
	SourceDatasetID uint `json:"source_dataset_id"`
}

// ImportCategories copies categories from another dataset, skipping name
// collisions and dropping shortcut keys already in use
func (ch *CategoryHandler) ImportCategories(w http.ResponseWriter, r *http.Request) {
	targetDatasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	var payload CategoryImportPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if payload.SourceDatasetID == 0 {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "source_dataset_id is required")
		return
	}
	if payload.SourceDatasetID == targetDatasetID {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "source and target datasets must differ")
		return
	}

	imported, skipped, err := ch.CategoryRepo.ImportFrom(payload.SourceDatasetID, targetDatasetID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": imported,
		"skipped":  skipped,
	})
}
