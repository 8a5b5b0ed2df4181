package repository

import "errors"

// sentinel errors surfaced to handlers so they can map storage outcomes onto
// the API error taxonomy without string matching
var (
	// ErrCategoryNameTaken is returned when a category name already exists
	// within the target dataset.
	ErrCategoryNameTaken = errors.New("category name already exists in dataset")

	// ErrShortcutKeyTaken is returned when a shortcut key is already bound to
	// another category of the same dataset.
	ErrShortcutKeyTaken = errors.New("shortcut key already in use in dataset")

	// ErrInvalidCategory is returned when an annotation references a category
	// that does not belong to the image's dataset.
	ErrInvalidCategory = errors.New("category does not belong to the image's dataset")

	// ErrNoSourceCategories is returned by ImportFrom when the source dataset
	// has no categories to copy.
	ErrNoSourceCategories = errors.New("source dataset has no categories")

	// ErrMixedDatasets is returned by BatchCreate when the payload spans more
	// than one dataset.
	ErrMixedDatasets = errors.New("all categories must belong to the same dataset")

	// ErrImagePathTaken is returned when a dataset is created with an image
	// path that is already registered.
	ErrImagePathTaken = errors.New("image path already belongs to a dataset")
)
