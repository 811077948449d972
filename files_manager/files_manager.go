package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photoconv/contracts"
)

var typeHints = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
}

// TypeHint returns the MIME type implied by a file name, or "".
func TypeHint(name string) string {
	return typeHints[strings.ToLower(filepath.Ext(name))]
}

// IsImagePath reports whether name has a supported extension and is not an
// AppleDouble or hidden file.
func IsImagePath(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return TypeHint(base) != ""
}

// CheckProvidedDirs validates the input and output directories, creating
// the output directory when missing.
func CheckProvidedDirs(inputDir string, outputDir string) error {
	if inputDir == "" || outputDir == "" {
		return fmt.Errorf("input and output directories required")
	}
	if stat, err := os.Stat(inputDir); err != nil || !stat.IsDir() {
		return fmt.Errorf("input directory does not exist or is not a directory")
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	in, err := filepath.Abs(inputDir)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return err
	}
	sep := string(filepath.Separator)
	if in == out {
		return fmt.Errorf("input and output directories must be different")
	}
	if strings.HasPrefix(out+sep, in+sep) {
		return fmt.Errorf("output directory must not be inside the input directory")
	}
	return nil
}

// GetImagePaths lists the supported images directly inside dir, sorted by
// name, and their total size.
func GetImagePaths(dir string) ([]string, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, err
	}
	images := make([]string, 0, len(entries))
	var size int64 = 0
	for _, entry := range entries {
		if entry.IsDir() || !IsImagePath(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}
	return images, size, nil
}

// LoadInputFile reads path into an InputFile.
func LoadInputFile(path string) (contracts.InputFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contracts.InputFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return contracts.NewInputFile(filepath.Base(path), data, TypeHint(path)), nil
}

// LoadInputFiles reads every path. Unreadable files are returned separately
// so the batch can go ahead without them.
func LoadInputFiles(paths []string) ([]contracts.InputFile, []error) {
	files := make([]contracts.InputFile, 0, len(paths))
	var errs []error
	for _, p := range paths {
		f, err := LoadInputFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	return files, errs
}
