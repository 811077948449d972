package encoder

import (
	"bytes"
	"errors"
	"image"
	"math"

	"github.com/gen2brain/jpegli"
)

// LossyEncoder encodes img at quality in (0,1].
type LossyEncoder interface {
	EncodeLossy(img image.Image, quality float64) ([]byte, error)
}

// Jpegli is the JPEG encoder.
type Jpegli struct {
	ChromaSubsampling image.YCbCrSubsampleRatio
}

func (j Jpegli) EncodeLossy(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:           Percent(quality),
		ChromaSubsampling: j.ChromaSubsampling,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Percent converts a quality in (0,1] to an integer percentage in [1,100].
func Percent(quality float64) int {
	p := int(math.Round(quality * 100))
	return min(max(p, 1), 100)
}

const (
	searchLow        = 0.10
	searchHigh       = 1.00
	searchIterations = 10
)

// QualityResult is the candidate whose size came closest to the target.
type QualityResult struct {
	Bytes    []byte
	Quality  int // percent
	Distance int // |len(Bytes) - target|
}

// SearchQuality bisects quality over [0.10, 1.00] for exactly ten rounds and
// returns the closest candidate seen. Larger-than-target candidates move
// the upper bound down, everything else moves the lower bound up.
func SearchQuality(enc LossyEncoder, img image.Image, target int) (QualityResult, error) {
	if target <= 0 {
		return QualityResult{}, errors.New("target size must be positive")
	}

	var best QualityResult
	found := false
	low, high := searchLow, searchHigh
	for i := 0; i < searchIterations; i++ {
		mid := (low + high) / 2
		data, err := enc.EncodeLossy(img, mid)
		if err != nil {
			return QualityResult{}, err
		}

		size := len(data)
		dist := size - target
		if dist < 0 {
			dist = -dist
		}
		if !found || dist < best.Distance {
			best = QualityResult{Bytes: data, Quality: Percent(mid), Distance: dist}
			found = true
		}

		if size > target {
			high = mid
		} else {
			low = mid
		}
	}
	return best, nil
}
