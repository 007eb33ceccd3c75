// Package imagingtest provides small valid images for tests.
package imagingtest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"go-attack-planner/internal/imaging"
)

// PNG encodes a 4x4 solid image.
func PNG(t testing.TB) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{200, 40, 40, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// Image returns a decoded PNG image labelled name.
func Image(t testing.TB, name string) imaging.Image {
	t.Helper()
	img, err := imaging.NewDecoder(0).FromBytes(name, PNG(t))
	if err != nil {
		t.Fatalf("Failed to build test image: %v", err)
	}
	return img
}
