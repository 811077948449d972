package decoder

import (
	"bytes"
	"errors"
	"image"
	"sync"

	"github.com/gen2brain/heic"
)

// ErrContainerUnsupported is the cause of a decode failure when no HEIC
// capability was available or every available one failed.
var ErrContainerUnsupported = errors.New("no decoder available for container")

// DecodeCapability is one way of decoding an HEIC container. Available is
// probed on every decode so a capability may come and go at runtime.
type DecodeCapability interface {
	Name() string
	Available() bool
	Decode(data []byte) (image.Image, error)
}

var (
	nativeMu sync.Mutex
	native   []DecodeCapability
)

// registerNative is called from init by capabilities compiled in with
// build tags (libheif, vips, imagick).
func registerNative(c DecodeCapability) {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	native = append(native, c)
}

// NativeCapabilities returns the platform codecs compiled into this binary,
// in registration order.
func NativeCapabilities() []DecodeCapability {
	nativeMu.Lock()
	defer nativeMu.Unlock()
	return append([]DecodeCapability(nil), native...)
}

// Bundled is the software HEIC decoder shipped with the binary (libheif
// compiled to WebAssembly). It needs no system libraries.
type Bundled struct{}

func (Bundled) Name() string    { return "bundled-heic" }
func (Bundled) Available() bool { return true }

func (Bundled) Decode(data []byte) (image.Image, error) {
	return heic.Decode(bytes.NewReader(data))
}
