package contracts

import (
	"errors"
	"fmt"
)

type TargetFormat string

const (
	FormatJPEG TargetFormat = "jpeg"
	FormatPNG  TargetFormat = "png"
	FormatPDF  TargetFormat = "pdf"
)

// Extension returns the output file extension including the dot.
func (f TargetFormat) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatPNG:
		return ".png"
	case FormatPDF:
		return ".pdf"
	}
	return ""
}

// MetadataPolicy is accepted on every request. Both values currently yield
// metadata-free output; keepBasic is reserved.
type MetadataPolicy string

const (
	MetadataStrip     MetadataPolicy = "strip"
	MetadataKeepBasic MetadataPolicy = "keepBasic"
)

// ConversionRequest describes the output wanted for every file of a batch.
// Quality is in (0,1]. TargetSizeBytes > 0 asks for a quality search and is
// honoured for JPEG only.
type ConversionRequest struct {
	TargetFormat    TargetFormat   `json:"targetFormat"`
	Quality         float64        `json:"quality"`
	TargetSizeBytes int            `json:"targetSizeBytes,omitempty"`
	MetadataPolicy  MetadataPolicy `json:"metadataPolicy"`
}

func (r ConversionRequest) HasTargetSize() bool {
	return r.TargetFormat == FormatJPEG && r.TargetSizeBytes > 0
}

func (r ConversionRequest) Validate() error {
	switch r.TargetFormat {
	case FormatJPEG, FormatPNG, FormatPDF:
	default:
		return fmt.Errorf("unsupported target format %q", r.TargetFormat)
	}
	if r.Quality <= 0 || r.Quality > 1 {
		return fmt.Errorf("quality %.2f out of range (0,1]", r.Quality)
	}
	if r.TargetSizeBytes < 0 {
		return errors.New("target size must not be negative")
	}
	switch r.MetadataPolicy {
	case "", MetadataStrip, MetadataKeepBasic: // empty means strip
	default:
		return fmt.Errorf("unsupported metadata policy %q", r.MetadataPolicy)
	}
	return nil
}

type ConversionResult struct {
	FileID             string
	FileName           string
	Format             TargetFormat
	OutputBytes        []byte
	AchievedQuality    *int
	AchievedSizeTarget *int
	ThumbnailBytes     []byte
	Width              int
	Height             int

	// Fallback is set when the calling context redid the work after the
	// worker asked for it.
	Fallback bool
}

// Converter runs decode and encode for a single file.
type Converter interface {
	Convert(file InputFile, md Metadata, req ConversionRequest) (ConversionResult, error)
}
