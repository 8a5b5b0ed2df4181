package utils

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ProbeDimensions reads only the image header and returns pixel dimensions.
// It does not decode pixel data, so it stays cheap during large scans.
func ProbeDimensions(imagePath string) (width, height int, err error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open image %s: %w", imagePath, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image header %s: %w", imagePath, err)
	}
	return cfg.Width, cfg.Height, nil
}

// GeneratePreview creates a bounded-size JPEG preview with a UUID filename
// and returns the full path where the preview was saved
func GeneratePreview(originalImagePath, previewDir string, maxSize int) (string, error) {
	if err := os.MkdirAll(previewDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory %s: %w", previewDir, err)
	}

	img, err := imaging.Open(originalImagePath)
	if err != nil {
		return "", fmt.Errorf("failed to open image %s: %w", originalImagePath, err)
	}

	preview := imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)

	previewUUID, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate UUID for preview: %w", err)
	}
	previewFilename := previewUUID.String() + ".jpg"
	previewSavePath := filepath.Join(previewDir, previewFilename)

	if err := imaging.Save(preview, previewSavePath, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("failed to save preview to %s: %w", previewSavePath, err)
	}

	return previewSavePath, nil
}
