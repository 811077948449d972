// Package utils builds small in-memory images for tests: rasters, EXIF
// blocks and fake HEIC containers whose payload is a PNG.
package utils

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Gradient returns a w×h image in which every pixel has a distinct color.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// Noise returns an image that compresses poorly, for size-sensitive tests.
func Noise(w, h int, seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	s := seed | 1
	for i := 0; i < len(img.Pix); i += 4 {
		s ^= s << 13
		s ^= s >> 17
		s ^= s << 5
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = uint8(s), uint8(s>>8), uint8(s>>16), 255
	}
	return img
}

func PNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func JPEG(img image.Image, quality int) []byte {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// WithExif inserts an APP1 Exif segment holding tiff right after the SOI
// marker of a JPEG stream.
func WithExif(jpegData, tiff []byte) []byte {
	payload := append([]byte("Exif\x00\x00"), tiff...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))

	out := make([]byte, 0, len(jpegData)+len(seg)+len(payload))
	out = append(out, jpegData[:2]...)
	out = append(out, seg...)
	out = append(out, payload...)
	return append(out, jpegData[2:]...)
}

const (
	typeASCII = 2
	typeShort = 3
	typeLong  = 4

	tagExifPointer = 0x8769
)

// Tag is one IFD entry.
type Tag struct {
	ID    uint16
	Type  uint16
	Count uint32
	Data  []byte
}

func Short(id, v uint16) Tag {
	d := make([]byte, 2)
	binary.LittleEndian.PutUint16(d, v)
	return Tag{ID: id, Type: typeShort, Count: 1, Data: d}
}

func Long(id uint16, v uint32) Tag {
	d := make([]byte, 4)
	binary.LittleEndian.PutUint32(d, v)
	return Tag{ID: id, Type: typeLong, Count: 1, Data: d}
}

func ASCII(id uint16, s string) Tag {
	d := append([]byte(s), 0)
	return Tag{ID: id, Type: typeASCII, Count: uint32(len(d)), Data: d}
}

// Common tag IDs.
const (
	TagImageWidth       = 0x0100
	TagImageLength      = 0x0101
	TagOrientation      = 0x0112
	TagDateTimeOriginal = 0x9003
	TagPixelXDimension  = 0xA002
	TagPixelYDimension  = 0xA003
)

// TIFF builds a little-endian TIFF structure with IFD0 and, when exifIFD
// is not empty, an Exif sub-IFD.
func TIFF(ifd0, exifIFD []Tag) []byte {
	ifdSize := func(n int) int { return 2 + 12*n + 4 }

	n0 := len(ifd0)
	if len(exifIFD) > 0 {
		n0++
	}
	ifd0Off := 8
	exifOff := ifd0Off + ifdSize(n0)
	dataOff := exifOff
	if len(exifIFD) > 0 {
		dataOff += ifdSize(len(exifIFD))
	}

	var data []byte
	entries := func(tags []Tag) []byte {
		var b []byte
		for _, t := range tags {
			e := make([]byte, 12)
			binary.LittleEndian.PutUint16(e[0:], t.ID)
			binary.LittleEndian.PutUint16(e[2:], t.Type)
			binary.LittleEndian.PutUint32(e[4:], t.Count)
			if len(t.Data) <= 4 {
				copy(e[8:], t.Data)
			} else {
				binary.LittleEndian.PutUint32(e[8:], uint32(dataOff+len(data)))
				data = append(data, t.Data...)
				if len(data)%2 == 1 {
					data = append(data, 0)
				}
			}
			b = append(b, e...)
		}
		return b
	}
	writeIFD := func(tags []Tag) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(len(tags)))
		b = append(b, entries(tags)...)
		return append(b, 0, 0, 0, 0)
	}

	tags0 := append([]Tag(nil), ifd0...)
	if len(exifIFD) > 0 {
		tags0 = append(tags0, Long(tagExifPointer, uint32(exifOff)))
	}

	out := []byte{'I', 'I', 0x2A, 0x00, 8, 0, 0, 0}
	out = append(out, writeIFD(tags0)...)
	if len(exifIFD) > 0 {
		out = append(out, writeIFD(exifIFD)...)
	}
	return append(out, data...)
}

func box(kind string, payload []byte) []byte {
	b := make([]byte, 8, 8+len(payload))
	binary.BigEndian.PutUint32(b, uint32(8+len(payload)))
	copy(b[4:], kind)
	return append(b, payload...)
}

// FakeHEIC wraps payload in a minimal ISO-BMFF file branded "heic". A
// non-empty tiff is stored in an Exif box ahead of the payload.
func FakeHEIC(tiff, payload []byte) []byte {
	ftyp := box("ftyp", []byte("heic\x00\x00\x00\x00mif1heic"))
	out := append([]byte(nil), ftyp...)
	if len(tiff) > 0 {
		out = append(out, box("Exif", append([]byte{0, 0, 0, 0}, tiff...))...)
	}
	return append(out, box("mdat", payload)...)
}

// HEICPayload returns the mdat content of a FakeHEIC file.
func HEICPayload(data []byte) ([]byte, bool) {
	for off := 0; off+8 <= len(data); {
		size := int(binary.BigEndian.Uint32(data[off:]))
		if size < 8 || off+size > len(data) {
			return nil, false
		}
		if string(data[off+4:off+8]) == "mdat" {
			return data[off+8 : off+size], true
		}
		off += size
	}
	return nil, false
}
