package importer

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/camden-git/labelsysbackend/config"
)

// ImageFolder is one importable dataset candidate found under a batch-import
// root: a folder named image/images, named after its parent, with a sibling
// labels directory.
type ImageFolder struct {
	DatasetName string
	ImagePath   string
	LabelPath   string
}

// FindImageFolders walks root recursively and collects every directory named
// 'image' or 'images'. The dataset name is the parent directory's base name
// and the label path is a 'labels' sibling of the image folder.
func FindImageFolders(root string) ([]ImageFolder, error) {
	var folders []ImageFolder

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtree, keep walking the rest
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if name != "image" && name != "images" {
			return nil
		}

		parent := filepath.Dir(path)
		folders = append(folders, ImageFolder{
			DatasetName: filepath.Base(parent),
			ImagePath:   path,
			LabelPath:   filepath.Join(parent, "labels"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return folders, nil
}

// HasImportableImages reports whether the folder contains at least one file
// with an allowed image extension
func HasImportableImages(cfg config.Config, dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if cfg.IsAllowedImage(entry.Name()) {
			return true
		}
	}
	return false
}
