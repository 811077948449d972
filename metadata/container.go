package metadata

import (
	"bytes"
	"path/filepath"
	"strings"
)

// HEVC-coded HEIF brands. The generic mif1/msf1 brands are shared with AVIF
// and do not count on their own.
var heicBrands = map[string]bool{
	"heic": true,
	"heix": true,
	"hevc": true,
	"hevx": true,
	"heim": true,
	"heis": true,
}

// IsHEIC reports whether a file is an HEIC/HEIF container, judged by the
// ISO-BMFF ftyp brands, the type hint or the file extension.
func IsHEIC(data []byte, name, typeHint string) bool {
	switch strings.ToLower(typeHint) {
	case "image/heic", "image/heif", "image/heic-sequence", "image/heif-sequence":
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".heic", ".heif":
		return true
	}
	return hasHEICBrand(data)
}

func hasHEICBrand(data []byte) bool {
	if len(data) < 12 || !bytes.Equal(data[4:8], []byte("ftyp")) {
		return false
	}
	size := int(data[0])<<24 | int(data[1])<<16 | int(data[2])<<8 | int(data[3])
	if size < 12 || size > len(data) {
		size = min(len(data), 64)
	}
	switch major := string(data[8:12]); {
	case major == "avif" || major == "avis":
		return false
	case heicBrands[major]:
		return true
	}
	// Compatible brands follow the 4-byte minor version.
	for off := 16; off+4 <= size; off += 4 {
		if heicBrands[string(data[off:off+4])] {
			return true
		}
	}
	return false
}
