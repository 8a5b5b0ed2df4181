package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/camden-git/labelsysbackend/repository"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	resp := APIErrorResponse{
		Errors: []APIErrorDetail{
			{
				Code:   code,
				Status: strconv.Itoa(httpStatus),
				Detail: detail,
			},
		},
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Error encoding JSON response: %v", err)
		}
	}
}

// writeRepositoryError maps repository errors onto the API error taxonomy:
// missing rows become 404, uniqueness violations 409, domain rule violations
// 400, anything else 500.
func writeRepositoryError(w http.ResponseWriter, err error, notFoundDetail string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteAPIError(w, http.StatusNotFound, "not_found", notFoundDetail)
	case errors.Is(err, repository.ErrCategoryNameTaken),
		errors.Is(err, repository.ErrShortcutKeyTaken),
		errors.Is(err, repository.ErrImagePathTaken):
		WriteAPIError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, repository.ErrInvalidCategory),
		errors.Is(err, repository.ErrNoSourceCategories),
		errors.Is(err, repository.ErrMixedDatasets):
		WriteAPIError(w, http.StatusBadRequest, "bad_request", err.Error())
	default:
		log.Printf("internal error: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}
