package camera

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

// Frame is one captured image. Frames handed out by a backend are
// immutable: the backend allocates a fresh pixel buffer per capture
// and never writes into a delivered one, so callers may keep them
// without copying.
type Frame struct {
	// Seq increases by one per captured frame of a handle.
	Seq uint64
	// Timestamp is the capture time; non-decreasing across frames of
	// one handle.
	Timestamp time.Time

	Width     int
	Height    int
	ColorMode config.ColorMode
	// Pixels is packed pixel data of length
	// Width*Height*ColorMode.BytesPerPixel().
	Pixels []byte
}

// FrameFromImage packs img into a Frame with the given color mode.
// Only Mono8 and RGB8 conversions are provided; other modes come
// straight off the wire from their backends.
func FrameFromImage(img image.Image, mode config.ColorMode) (*Frame, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	f := &Frame{
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		ColorMode: mode,
	}

	switch mode {
	case config.RGB8:
		f.Pixels = make([]byte, 0, w*h*3)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := img.At(x, y).RGBA()
				f.Pixels = append(f.Pixels, byte(r>>8), byte(g>>8), byte(b>>8))
			}
		}
	case config.Mono8:
		f.Pixels = make([]byte, 0, w*h)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				f.Pixels = append(f.Pixels, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			}
		}
	default:
		return nil, fmt.Errorf("%w: conversion to %s", ErrUnsupportedOperation, mode)
	}

	return f, nil
}

// Image rebuilds a standard image from the packed pixels, for encoding
// or display.
func (f *Frame) Image() (image.Image, error) {
	switch f.ColorMode {
	case config.RGB8:
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for i := 0; i < f.Width*f.Height; i++ {
			img.Pix[i*4+0] = f.Pixels[i*3+0]
			img.Pix[i*4+1] = f.Pixels[i*3+1]
			img.Pix[i*4+2] = f.Pixels[i*3+2]
			img.Pix[i*4+3] = 0xFF
		}
		return img, nil
	case config.Mono8:
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		copy(img.Pix, f.Pixels)
		return img, nil
	}
	return nil, fmt.Errorf("%w: display of %s", ErrUnsupportedOperation, f.ColorMode)
}

// CopyTo fills buf with the frame's packed pixels.
func (f *Frame) CopyTo(buf []byte) error {
	if len(buf) < len(f.Pixels) {
		return fmt.Errorf("%w: buffer of %d bytes, frame has %d", ErrInvalidValue, len(buf), len(f.Pixels))
	}
	copy(buf, f.Pixels)
	return nil
}
