package repository

import (
	"github.com/camden-git/labelsysbackend/models"
)

// DatasetRepositoryInterface defines the methods for dataset data operations
type DatasetRepositoryInterface interface {
	Create(dataset *models.Dataset) error
	ListAll() ([]models.Dataset, error)
	ListAllAdmin() ([]models.Dataset, error)
	GetByID(id uint) (*models.Dataset, error)
	GetByImagePath(imagePath string) (*models.Dataset, error)
	Update(datasetID uint, name *string, description *string, imagePath *string, labelPath *string, isActive *bool) error
	RecountImages(datasetID uint) error
	Progress(datasetID uint) (*DatasetProgress, error)
	Delete(id uint) error
}

// CategoryRepositoryInterface defines the methods for category data operations
type CategoryRepositoryInterface interface {
	Create(category *models.Category) error
	BatchCreate(categories []*models.Category) error
	ListByDataset(datasetID uint) ([]models.Category, error)
	GetByID(id uint) (*models.Category, error)
	Update(categoryID uint, name *string, shortcutKey *string, color *string, sortOrder *int) error
	Delete(id uint) error
	Validate(categoryID, datasetID uint) error
	ImportFrom(sourceDatasetID, targetDatasetID uint) (imported, skipped int, err error)
}

// ImageRepositoryInterface defines the methods for image data operations,
// including the work-assignment logic
type ImageRepositoryInterface interface {
	Create(image *models.Image) error
	CreateBatch(images []*models.Image) error
	GetByID(id uint) (*models.Image, error)
	GetWithAnnotations(id uint) (*models.Image, error)
	ListFilenamesByDataset(datasetID uint) (map[string]bool, error)
	NextForUser(datasetID, userID uint) (*models.Image, error)
	MarkPreviewProcessing(imageID uint) error
	UpdatePreviewResult(imageID uint, previewPath *string, takenAt *int64, width, height *int, taskErr error) error
	GetImagesRequiringPreviews() ([]models.Image, error)
}

// AnnotationRepositoryInterface defines the methods for annotation data
// operations, including the transactional save/skip flow
type AnnotationRepositoryInterface interface {
	SaveForImage(imageID, userID uint, annotations []AnnotationInput, skip bool) (status string, err error)
	CreateOne(imageID, userID uint, input AnnotationInput) (*models.Annotation, error)
	DeleteOne(annotationID, userID uint) error
	ListByImage(imageID uint) ([]models.Annotation, error)
	HistoryForUser(imageID, userID uint, limit int) ([]models.AnnotationHistory, error)
}

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	ListAll() ([]models.User, error)
	Delete(id uint) error
}
