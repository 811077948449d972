// Package metadata probes source images for dimensions, EXIF orientation and
// capture date without producing errors: every failed step falls through to
// the next one and finally to a default.
package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/gen2brain/jpegn"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photoconv/contracts"
	"photoconv/logging"
	"photoconv/orientation"
)

// HEICDecoder fully decodes an HEIC container. It is used when the EXIF
// block of an HEIC file is missing or unreadable.
type HEICDecoder interface {
	DecodeHEIC(data []byte) (image.Image, error)
}

// Tag names for each container dialect.
type dialect struct {
	width, height string
}

var (
	heicDialect   = dialect{width: "ImageWidth", height: "ImageLength"}
	rasterDialect = dialect{width: "PixelXDimension", height: "PixelYDimension"}
)

type Extractor struct {
	heic HEICDecoder
	log  *logging.Logger
}

// NewExtractor returns an extractor. heic may be nil, in which case HEIC
// files without usable EXIF get the default metadata.
func NewExtractor(heic HEICDecoder, log *logging.Logger) *Extractor {
	return &Extractor{heic: heic, log: log}
}

// Extract returns the best metadata it can find. It never fails.
func (e *Extractor) Extract(data []byte, name, typeHint string) contracts.Metadata {
	isHEIC := IsHEIC(data, name, typeHint)
	d := rasterDialect
	if isHEIC {
		d = heicDialect
	}

	tags, err := e.readExif(data, d)
	if err == nil && tags.width > 0 && tags.height > 0 {
		return contracts.Metadata{
			Width:       tags.width,
			Height:      tags.height,
			Orientation: tags.orientation(),
			DateTaken:   tags.dateTaken,
		}
	}
	if err != nil {
		e.debug(name, &contracts.MetadataError{Step: "exif", Cause: err})
	}

	if isHEIC {
		md, err := e.decodeHEIC(data)
		if err == nil {
			return md
		}
		e.debug(name, &contracts.MetadataError{Step: "heic decode", Cause: err})
		return contracts.DefaultMetadata()
	}

	cfg, err := decodeConfig(data)
	if err != nil {
		e.debug(name, &contracts.MetadataError{Step: "header", Cause: err})
		return contracts.DefaultMetadata()
	}
	return contracts.Metadata{
		Width:       cfg.Width,
		Height:      cfg.Height,
		Orientation: tags.orientation(),
		DateTaken:   tags.dateTaken,
	}
}

func (e *Extractor) debug(name string, err error) {
	e.log.Debug("%s: %v", name, err)
}

type exifTags struct {
	width, height int
	orient        int
	dateTaken     string
}

func (t exifTags) orientation() int {
	if orientation.Valid(t.orient) {
		return t.orient
	}
	return 1
}

// readExif collects the EXIF block and reads the dialect's tags. Whatever
// was found before an error is still returned.
func (e *Extractor) readExif(data []byte, d dialect) (tags exifTags, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exif parser panic: %v", r)
		}
	}()

	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return tags, fmt.Errorf("EXIF not found: %w", err)
	}

	im := exifcommon.NewIfdMapping()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return tags, err
	}
	ti := exif.NewTagIndex()

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return tags, err
	}

	for _, ifd := range index.Ifds {
		if v, ok := intTag(ifd, d.width); ok && tags.width == 0 {
			tags.width = v
		}
		if v, ok := intTag(ifd, d.height); ok && tags.height == 0 {
			tags.height = v
		}
		if v, ok := intTag(ifd, "Orientation"); ok && tags.orient == 0 {
			tags.orient = v
		}
		if v, ok := stringTag(ifd, "DateTimeOriginal"); ok && tags.dateTaken == "" {
			tags.dateTaken = v
		}
	}
	return tags, nil
}

func intTag(ifd *exif.Ifd, name string) (int, bool) {
	tag, err := ifd.FindTagWithName(name)
	if err != nil || len(tag) == 0 {
		return 0, false
	}
	val, err := tag[0].Value()
	if err != nil {
		return 0, false
	}
	switch v := val.(type) {
	case []uint16:
		if len(v) > 0 {
			return int(v[0]), true
		}
	case []uint32:
		if len(v) > 0 {
			return int(v[0]), true
		}
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	}
	return 0, false
}

func stringTag(ifd *exif.Ifd, name string) (string, bool) {
	tag, err := ifd.FindTagWithName(name)
	if err != nil || len(tag) == 0 {
		return "", false
	}
	val, err := tag[0].Value()
	if err != nil {
		return "", false
	}
	s, ok := val.(string)
	return s, ok && s != ""
}

func (e *Extractor) decodeHEIC(data []byte) (md contracts.Metadata, err error) {
	if e.heic == nil {
		return md, errors.New("no HEIC decoder")
	}
	img, err := e.heic.DecodeHEIC(data)
	if err != nil {
		return md, err
	}
	b := img.Bounds()
	return contracts.Metadata{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Orientation: 1,
		Estimated:   true,
	}, nil
}

func decodeConfig(data []byte) (image.Config, error) {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return jpegn.DecodeConfig(bytes.NewReader(data))
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	return cfg, err
}
