package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// DecodePNG reads a rendered label back into an image.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG: %w", err)
	}
	return img, nil
}

// ToESCPOS converts an image to a GS v 0 raster block. Dark pixels print.
func ToESCPOS(img image.Image) []byte {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// ESC/POS width must be divisible by 8
	if width%8 != 0 {
		width = width - (width % 8)
	}

	rowBytes := width / 8
	raster := make([]byte, rowBytes*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			gray := (r + g + b) / 3
			if gray < 0x8000 {
				raster[y*rowBytes+x/8] |= 1 << (7 - uint(x%8))
			}
		}
	}

	header := []byte{
		0x1D, 0x76, 0x30, 0x00,
		byte(rowBytes), byte(rowBytes >> 8),
		byte(height), byte(height >> 8),
	}
	return append(header, raster...)
}

// ResizeToWidth scales with nearest-neighbour sampling, keeping the aspect
// ratio. The result is at least one row tall.
func ResizeToWidth(src image.Image, targetWidth int) image.Image {
	b := src.Bounds()
	if b.Dx() == targetWidth || b.Dx() == 0 || targetWidth <= 0 {
		return src
	}
	h := max(1, b.Dy()*targetWidth/b.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
