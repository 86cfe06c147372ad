package camera

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestFrameFromImageRGB8(t *testing.T) {
	f, err := FrameFromImage(gradient(640, 480), config.RGB8)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Pixels) != 640*480*3 {
		t.Fatalf("pixel buffer is %d bytes, want %d", len(f.Pixels), 640*480*3)
	}
	if f.Pixels[0] != 0 || f.Pixels[2] != 128 {
		t.Fatalf("unexpected first pixel: %v", f.Pixels[:3])
	}

	img, err := f.Image()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 480 {
		t.Fatalf("rebuilt image is %v", img.Bounds())
	}
}

func TestFrameFromImageMono8(t *testing.T) {
	f, err := FrameFromImage(gradient(32, 16), config.Mono8)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Pixels) != 32*16 {
		t.Fatalf("pixel buffer is %d bytes, want %d", len(f.Pixels), 32*16)
	}
}

func TestFrameFromImageRejectsWireModes(t *testing.T) {
	if _, err := FrameFromImage(gradient(8, 8), config.YUV422); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
}

func TestFrameCopyTo(t *testing.T) {
	f, err := FrameFromImage(gradient(8, 8), config.RGB8)
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 8*8*3)
	if err := f.CopyTo(buf); err != nil {
		t.Fatal(err)
	}
	if buf[2] != 128 {
		t.Fatalf("unexpected copy: %v", buf[:3])
	}

	if err := f.CopyTo(make([]byte, 4)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue for a short buffer", err)
	}
}
