package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/realtime"
	"github.com/camden-git/labelsysbackend/repository"
)

type ImageHandler struct {
	ImageRepo      repository.ImageRepositoryInterface
	AnnotationRepo repository.AnnotationRepositoryInterface
	Hub            *realtime.Hub
}

func NewImageHandler(imageRepo repository.ImageRepositoryInterface, annotationRepo repository.AnnotationRepositoryInterface, hub *realtime.Hub) *ImageHandler {
	return &ImageHandler{ImageRepo: imageRepo, AnnotationRepo: annotationRepo, Hub: hub}
}

func imageIDParam(r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "image_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// NextImage assigns the caller their next work item in the dataset. Returns
// 204 when no pending image remains.
func (ih *ImageHandler) NextImage(w http.ResponseWriter, r *http.Request) {
	datasetID, ok := datasetIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid dataset ID format")
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	image, err := ih.ImageRepo.NextForUser(datasetID, user.ID)
	if err != nil {
		writeRepositoryError(w, err, "dataset not found")
		return
	}
	if image == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if ih.Hub != nil {
		ih.Hub.Broadcast(realtime.Event{
			Type:      realtime.EventImageStatus,
			DatasetID: image.DatasetID,
			ImageID:   image.ID,
			Status:    image.Status,
		})
	}

	writeJSON(w, http.StatusOK, image)
}

func (ih *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	image, err := ih.ImageRepo.GetWithAnnotations(imageID)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}
	writeJSON(w, http.StatusOK, image)
}

// ServeImageFile streams the original image file from disk
func (ih *ImageHandler) ServeImageFile(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	image, err := ih.ImageRepo.GetByID(imageID)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}

	http.ServeFile(w, r, image.FilePath)
}

// ServeImagePreview streams the downscaled preview, falling back to the
// original file when no preview has been generated yet
func (ih *ImageHandler) ServeImagePreview(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	image, err := ih.ImageRepo.GetByID(imageID)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}

	if image.PreviewPath != nil && *image.PreviewPath != "" {
		http.ServeFile(w, r, *image.PreviewPath)
		return
	}
	http.ServeFile(w, r, image.FilePath)
}

type SaveAnnotationsPayload struct {
	Annotations []repository.AnnotationInput `json:"annotations"`
	Skip        bool                         `json:"skip"`
}

// SaveAnnotations replaces the image's annotations with the submitted set and
// finishes the work item. With skip=true the annotation list is ignored and
// the image is marked skipped instead.
func (ih *ImageHandler) SaveAnnotations(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var payload SaveAnnotationsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	status, err := ih.AnnotationRepo.SaveForImage(imageID, user.ID, payload.Annotations, payload.Skip)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}

	image, err := ih.ImageRepo.GetWithAnnotations(imageID)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}

	if ih.Hub != nil {
		ih.Hub.Broadcast(realtime.Event{
			Type:      realtime.EventImageStatus,
			DatasetID: image.DatasetID,
			ImageID:   image.ID,
			Status:    status,
		})
	}

	writeJSON(w, http.StatusOK, image)
}

// CreateAnnotation adds a single box without finishing the work item
func (ih *ImageHandler) CreateAnnotation(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var input repository.AnnotationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	annotation, err := ih.AnnotationRepo.CreateOne(imageID, user.ID, input)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}
	writeJSON(w, http.StatusCreated, annotation)
}

func (ih *ImageHandler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "annotation_id")
	annotationID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid annotation ID format")
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := ih.AnnotationRepo.DeleteOne(uint(annotationID), user.ID); err != nil {
		writeRepositoryError(w, err, "annotation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "annotation deleted"})
}

func (ih *ImageHandler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	annotations, err := ih.AnnotationRepo.ListByImage(imageID)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}
	if annotations == nil {
		annotations = []models.Annotation{}
	}
	writeJSON(w, http.StatusOK, annotations)
}

// AnnotationHistory lists the caller's create/delete history on an image
func (ih *ImageHandler) AnnotationHistory(w http.ResponseWriter, r *http.Request) {
	imageID, ok := imageIDParam(r)
	if !ok {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid image ID format")
		return
	}

	user := UserFromContext(r.Context())
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			WriteAPIError(w, http.StatusBadRequest, "bad_request", "Invalid limit")
			return
		}
		limit = parsed
	}

	history, err := ih.AnnotationRepo.HistoryForUser(imageID, user.ID, limit)
	if err != nil {
		writeRepositoryError(w, err, "image not found")
		return
	}
	if history == nil {
		history = []models.AnnotationHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}
