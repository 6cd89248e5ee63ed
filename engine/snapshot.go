package engine

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/Carmen-Shannon/oxy-trace/common"
	"github.com/chewxy/math32"
	"github.com/x448/float16"
)

// Snapshot is the accumulated image as read back from the GPU.
type Snapshot struct {
	Extent common.Extent
	// Texels holds Width*Height RGBA16F texels, rows tightly packed, little endian.
	Texels []byte
}

func (e *engine) Snapshot() (Snapshot, error) {
	extent := e.scheduler.Extent()
	texels, err := e.gpu.ReadTexture(e.scheduler.Read(), extent)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read accumulation texture: %w", err)
	}
	return Snapshot{Extent: extent, Texels: texels}, nil
}

// At returns the linear RGBA value of the texel at x, y.
func (s Snapshot) At(x, y int) [4]float32 {
	off := (y*int(s.Extent.Width) + x) * 8
	var out [4]float32
	for c := range 4 {
		out[c] = float16.Frombits(binary.LittleEndian.Uint16(s.Texels[off+2*c:])).Float32()
	}
	return out
}

// Image converts the snapshot the way the present pass does: Reinhard tone mapping per channel,
// then gamma 2.2. Alpha is opaque.
func (s Snapshot) Image() (*image.NRGBA, error) {
	w, h := int(s.Extent.Width), int(s.Extent.Height)
	if len(s.Texels) < w*h*8 {
		return nil, fmt.Errorf("snapshot holds %d bytes, want %d for %dx%d", len(s.Texels), w*h*8, w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			px := s.At(x, y)
			img.SetNRGBA(x, y, color.NRGBA{R: toSRGB8(px[0]), G: toSRGB8(px[1]), B: toSRGB8(px[2]), A: 0xff})
		}
	}
	return img, nil
}

func toSRGB8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	mapped := v / (v + 1)
	return uint8(math32.Round(math32.Pow(mapped, 1/2.2) * 255))
}
