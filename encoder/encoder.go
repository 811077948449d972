// Package encoder writes pixel buffers as JPEG, PNG or single-page PDF and
// produces the preview thumbnail for each result.
package encoder

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"photoconv/contracts"
)

type Options struct {
	Lossy            LossyEncoder // Default: Jpegli with 4:2:0 chroma.
	ThumbnailEdge    int          // Default: 160.
	ThumbnailQuality int          // Default: 70.
}

type Encoder struct {
	lossy        LossyEncoder
	thumbEdge    int
	thumbQuality int
}

func New(opts Options) *Encoder {
	e := &Encoder{
		lossy:        opts.Lossy,
		thumbEdge:    opts.ThumbnailEdge,
		thumbQuality: opts.ThumbnailQuality,
	}
	if e.lossy == nil {
		e.lossy = Jpegli{ChromaSubsampling: image.YCbCrSubsampleRatio420}
	}
	if e.thumbEdge <= 0 {
		e.thumbEdge = 160
	}
	if e.thumbQuality <= 0 {
		e.thumbQuality = 70
	}
	return e
}

type Encoded struct {
	Bytes              []byte
	Thumbnail          []byte
	AchievedQuality    *int
	AchievedSizeTarget *int
}

// Encode writes buf in req.TargetFormat. Both metadata policies produce
// output without any metadata.
func (e *Encoder) Encode(fileName string, buf contracts.PixelBuffer, req contracts.ConversionRequest) (Encoded, error) {
	wrap := func(err error) error {
		return &contracts.EncodeError{FileName: fileName, Format: req.TargetFormat, Cause: err}
	}
	if err := req.Validate(); err != nil {
		return Encoded{}, wrap(err)
	}
	if buf.Width <= 0 || buf.Height <= 0 {
		return Encoded{}, wrap(fmt.Errorf("empty image %dx%d", buf.Width, buf.Height))
	}
	img := buf.RGBA()

	var out Encoded
	switch req.TargetFormat {
	case contracts.FormatJPEG:
		if req.HasTargetSize() {
			res, err := SearchQuality(e.lossy, img, req.TargetSizeBytes)
			if err != nil {
				return Encoded{}, wrap(err)
			}
			target := req.TargetSizeBytes
			out.Bytes = res.Bytes
			out.AchievedQuality = &res.Quality
			out.AchievedSizeTarget = &target
		} else {
			data, err := e.lossy.EncodeLossy(img, req.Quality)
			if err != nil {
				return Encoded{}, wrap(err)
			}
			q := Percent(req.Quality)
			out.Bytes = data
			out.AchievedQuality = &q
		}

	case contracts.FormatPNG:
		var b bytes.Buffer
		if err := imaging.Encode(&b, img, imaging.PNG); err != nil {
			return Encoded{}, wrap(err)
		}
		out.Bytes = b.Bytes()

	case contracts.FormatPDF:
		data, err := encodePDF(img)
		if err != nil {
			return Encoded{}, wrap(err)
		}
		out.Bytes = data
	}

	thumb, err := e.Thumbnail(img)
	if err != nil {
		return Encoded{}, wrap(fmt.Errorf("thumbnail: %w", err))
	}
	out.Thumbnail = thumb
	return out, nil
}

// Thumbnail scales img down to fit the configured edge and encodes it as
// JPEG. Images already smaller are not enlarged.
func (e *Encoder) Thumbnail(img image.Image) ([]byte, error) {
	small := imaging.Fit(img, e.thumbEdge, e.thumbEdge, imaging.Lanczos)
	var b bytes.Buffer
	if err := imaging.Encode(&b, small, imaging.JPEG, imaging.JPEGQuality(e.thumbQuality)); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
