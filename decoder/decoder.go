// Package decoder turns encoded image bytes into upright RGBA pixel buffers.
package decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"

	"github.com/gen2brain/jpegn"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"photoconv/contracts"
	"photoconv/logging"
	"photoconv/metadata"
	"photoconv/orientation"
)

type Options struct {
	// Native capabilities tried first for HEIC. Nil means the ones
	// compiled into the binary.
	Native []DecodeCapability
	// Bundled is the last-resort HEIC capability. Nil leaves it out, which
	// is how worker-side decoders are built.
	Bundled DecodeCapability
	Log     *logging.Logger
}

type Decoder struct {
	caps []DecodeCapability
	log  *logging.Logger
}

func New(opts Options) *Decoder {
	caps := opts.Native
	if caps == nil {
		caps = NativeCapabilities()
	}
	caps = append([]DecodeCapability(nil), caps...)
	if opts.Bundled != nil {
		caps = append(caps, opts.Bundled)
	}
	return &Decoder{caps: caps, log: opts.Log}
}

// NewFull returns a decoder with the native capabilities and the bundled
// HEIC decoder.
func NewFull(log *logging.Logger) *Decoder {
	return New(Options{Bundled: Bundled{}, Log: log})
}

// NewWorker returns a decoder limited to native capabilities.
func NewWorker(log *logging.Logger) *Decoder {
	return New(Options{Log: log})
}

// Decode decodes file and applies md.Orientation once.
func (d *Decoder) Decode(file contracts.InputFile, md contracts.Metadata) (contracts.PixelBuffer, error) {
	var (
		img image.Image
		err error
	)
	if metadata.IsHEIC(file.Bytes, file.Name, file.TypeHint) {
		img, err = d.DecodeHEIC(file.Bytes)
	} else {
		img, err = decodeGeneric(file.Bytes)
	}
	if err != nil {
		return contracts.PixelBuffer{}, &contracts.DecodeError{FileName: file.Name, Cause: err}
	}
	return contracts.NewPixelBuffer(orientation.Apply(img, md.Orientation)), nil
}

// DecodeHEIC tries each available capability in order and returns the
// first image decoded. The result is not orientation-corrected.
func (d *Decoder) DecodeHEIC(data []byte) (image.Image, error) {
	var errs []error
	for _, c := range d.caps {
		if !c.Available() {
			d.log.Debug("heic capability %s unavailable", c.Name())
			continue
		}
		img, err := c.Decode(data)
		if err == nil {
			d.log.Debug("heic decoded by %s", c.Name())
			return img, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
	}
	if len(errs) == 0 {
		return nil, ErrContainerUnsupported
	}
	return nil, fmt.Errorf("%w: %w", ErrContainerUnsupported, errors.Join(errs...))
}

func decodeGeneric(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8 {
		return jpegn.Decode(bytes.NewReader(data), &jpegn.Options{ToRGBA: true, AutoRotate: false})
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return img, nil
}
