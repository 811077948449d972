package contracts

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// InputFile is one file handed to the pipeline by a byte source. It must not
// be mutated once it has been accepted into a batch.
type InputFile struct {
	ID       string
	Name     string
	Bytes    []byte
	TypeHint string
}

func NewInputFile(name string, data []byte, typeHint string) InputFile {
	return InputFile{
		ID:       uuid.New().String(),
		Name:     name,
		Bytes:    data,
		TypeHint: typeHint,
	}
}

// BaseName returns the file name without directory and extension.
func (f InputFile) BaseName() string {
	base := filepath.Base(f.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (f InputFile) Ext() string {
	return strings.ToLower(filepath.Ext(f.Name))
}
