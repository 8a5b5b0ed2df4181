package utils

import (
	"fmt"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// GetTakenAt extracts the EXIF capture timestamp from an image file.
// A nil result with nil error means the file simply carries no usable
// EXIF date, which is common and not a failure.
func GetTakenAt(filePath string) (*int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	exifData, err := exif.Decode(file)
	if err != nil {
		// file might just lack EXIF data
		return nil, nil
	}

	dt, err := exifData.DateTime()
	if err != nil {
		return nil, nil
	}
	ts := dt.Unix()
	return &ts, nil
}
