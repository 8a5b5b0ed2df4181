package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const DefaultPreviewsSubDir = "previews"

const (
	defaultPreviewQueueSize  = 200
	defaultNumPreviewWorkers = 4
	defaultPreviewMaxSize    = 480
	defaultJWTExpiryHours    = 24
)

const defaultImageExtensions = ".jpg,.jpeg,.png,.gif,.bmp,.tif,.tiff,.webp"

type Config struct {
	// database path
	DatabasePath string

	// storage root for generated assets (image previews)
	MediaStoragePath string
	PreviewsPath     string // full-calculated path for previews

	// preview generation settings
	PreviewMaxSize int

	// worker settings
	PreviewQueueSize  int
	NumPreviewWorkers int

	// allow-list of image file extensions picked up by dataset scans,
	// lowercase with leading dot
	AllowedImageExtensions map[string]bool

	// auth settings
	JWTSecret      string
	JWTExpiryHours int
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func parseExtensionList(raw string) map[string]bool {
	exts := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		ext := strings.ToLower(strings.TrimSpace(part))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	return exts
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", "annotations.db")

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	previewSubDir := getEnvOrDefault("PREVIEWS_SUBDIR", DefaultPreviewsSubDir)
	absPreviewsPath := filepath.Join(absMediaStorage, previewSubDir)

	previewMaxSize := getEnvIntOrDefault("PREVIEW_MAX_SIZE", defaultPreviewMaxSize)
	queueSize := getEnvIntOrDefault("PREVIEW_QUEUE_SIZE", defaultPreviewQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_PREVIEW_WORKERS", defaultNumPreviewWorkers)

	exts := parseExtensionList(getEnvOrDefault("ALLOWED_IMAGE_EXTENSIONS", defaultImageExtensions))
	if len(exts) == 0 {
		return Config{}, fmt.Errorf("ALLOWED_IMAGE_EXTENSIONS parsed to an empty list")
	}

	jwtSecret := getEnvOrDefault("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Printf("Warning: JWT_SECRET not set, using an insecure development default")
		jwtSecret = "insecure-development-secret"
	}

	cfg := Config{
		DatabasePath:           dbPath,
		MediaStoragePath:       absMediaStorage,
		PreviewsPath:           absPreviewsPath,
		PreviewMaxSize:         previewMaxSize,
		PreviewQueueSize:       queueSize,
		NumPreviewWorkers:      numWorkers,
		AllowedImageExtensions: exts,
		JWTSecret:              jwtSecret,
		JWTExpiryHours:         getEnvIntOrDefault("JWT_EXPIRY_HOURS", defaultJWTExpiryHours),
	}

	return cfg, nil
}

// IsAllowedImage checks if the filename has an extension on the configured allow-list
func (c Config) IsAllowedImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return c.AllowedImageExtensions[ext]
}
