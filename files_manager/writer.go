package files_manager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"photoconv/contracts"
)

const thumbsDir = "thumbs"

// OutputWriter saves conversion results under a directory. Output names
// are the source base name plus the target extension; clashes get a
// numeric suffix. Thumbnails go to a thumbs/ subdirectory.
type OutputWriter struct {
	dir  string
	mu   sync.Mutex
	used map[string]bool
}

func NewOutputWriter(dir string) (*OutputWriter, error) {
	if err := os.MkdirAll(filepath.Join(dir, thumbsDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &OutputWriter{dir: dir, used: make(map[string]bool)}, nil
}

// Save writes res and its thumbnail and returns the output path.
func (w *OutputWriter) Save(res contracts.ConversionResult) (string, error) {
	name := w.reserve(res.FileName, res.Format.Extension())
	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, res.OutputBytes, 0644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	if len(res.ThumbnailBytes) > 0 {
		thumb := filepath.Join(w.dir, thumbsDir, strings.TrimSuffix(name, filepath.Ext(name))+".jpg")
		if err := os.WriteFile(thumb, res.ThumbnailBytes, 0644); err != nil {
			return "", fmt.Errorf("write thumbnail: %w", err)
		}
	}
	return path, nil
}

func (w *OutputWriter) reserve(source, ext string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		base = "image"
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	name := base + ext
	for i := 1; w.used[strings.ToLower(name)] || exists(filepath.Join(w.dir, name)); i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, ext)
	}
	w.used[strings.ToLower(name)] = true
	return name
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
