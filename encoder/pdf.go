package encoder

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/phpdave11/gofpdf"
)

// A4 in points.
const (
	PageWidth  = 595.28
	PageHeight = 841.89
)

// pdfEpoch is stamped as the creation date so identical input yields
// identical documents.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Placement is an image rectangle on the page, in points from the top left.
type Placement struct {
	X, Y float64
	W, H float64
}

// FitToPage scales a w×h image to the largest size that fits an A4 page
// while keeping its aspect ratio, centred on both axes.
func FitToPage(w, h int) Placement {
	if w <= 0 || h <= 0 {
		return Placement{}
	}
	scale := min(PageWidth/float64(w), PageHeight/float64(h))
	dw, dh := float64(w)*scale, float64(h)*scale
	return Placement{
		X: (PageWidth - dw) / 2,
		Y: (PageHeight - dh) / 2,
		W: dw,
		H: dh,
	}
}

func encodePDF(img image.Image) ([]byte, error) {
	var pngBuf bytes.Buffer
	if err := imaging.Encode(&pngBuf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("png stage: %w", err)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{
		ImageType: "PNG",
		ReadDpi:   false,
	}
	pdf.RegisterImageOptionsReader("page", opts, &pngBuf)

	b := img.Bounds()
	p := FitToPage(b.Dx(), b.Dy())
	pdf.ImageOptions("page", p.X, p.Y, p.W, p.H, false, opts, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
