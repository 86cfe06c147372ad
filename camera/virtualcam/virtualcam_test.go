package virtualcam

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/placeholder"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

func writeFrames(t *testing.T, dir string, count, width, height int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < count; i++ {
		img, err := placeholder.Create(
			width, height,
			color.RGBA{A: 255},
			color.RGBA{R: 255, G: 255, B: 255, A: 255},
			fmt.Sprintf("frame %d", i),
			false,
		)
		if err != nil {
			t.Fatal(err)
		}
		file, err := os.Create(filepath.Join(dir, fmt.Sprintf("frame.%04d.jpg", i)))
		if err != nil {
			t.Fatal(err)
		}
		if err := jpeg.Encode(file, img, nil); err != nil {
			t.Fatal(err)
		}
		if err := file.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func setup(t *testing.T, frameCount int) (string, *Camera) {
	t.Helper()

	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	writeFrames(t, frames, frameCount, 640, 480)

	conf := fmt.Sprintf(`
[[camera]]
index = 0
type = "virtual"
role = "master"
interface = "usb"
source = %q
color_mode = "RGB8"
image_width = "640"
image_height = "480"
frame_rate = "30"
`, frames)
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	return dir, New()
}

func TestOpenBeforeInitFails(t *testing.T) {
	_, cam := setup(t, 1)

	err := cam.Open()
	if !errors.Is(err, camera.ErrOpen) || !errors.Is(err, camera.ErrInit) {
		t.Fatalf("got %v, want ErrOpen wrapping ErrInit", err)
	}
	if cam.IsOpen() {
		t.Fatal("a failed open must leave the handle closed")
	}
}

func TestLifecycle(t *testing.T) {
	dir, cam := setup(t, 3)

	if cam.IsInitialized() || cam.IsOpen() {
		t.Fatal("fresh handle must be uninitialized")
	}

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if !cam.IsInitialized() {
		t.Fatal("init must set the initialized flag")
	}

	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	if !cam.IsOpen() {
		t.Fatal("open must set the open flag")
	}

	if err := cam.Close(); err != nil {
		t.Fatal(err)
	}
	if cam.IsOpen() {
		t.Fatal("close must clear the open flag")
	}
	if _, err := cam.GetFrame(true); !errors.Is(err, camera.ErrNotOpen) {
		t.Fatalf("got %v, want ErrNotOpen after close", err)
	}

	// close is an idempotent no-op
	if err := cam.Close(); err != nil {
		t.Fatal(err)
	}

	// CLOSED → OPEN without another Init
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	if _, err := cam.GetFrame(true); err != nil {
		t.Fatal(err)
	}
	if err := cam.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInitFailsOnBadConfiguration(t *testing.T) {
	_, cam := setup(t, 1)

	if err := cam.Init(t.TempDir(), 0); !errors.Is(err, camera.ErrInit) {
		t.Fatalf("got %v, want ErrInit for a missing file", err)
	}
	if cam.IsInitialized() {
		t.Fatal("a failed init must leave the handle uninitialized")
	}
}

func TestFrameGeometry(t *testing.T) {
	dir, cam := setup(t, 2)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	width, err := cam.GetProperty(camera.PropImageWidth)
	if err != nil {
		t.Fatal(err)
	}
	if w, ok := width.Int(); !ok || w != 640 {
		t.Fatalf("image width = %s, want 640", width)
	}

	frame, err := cam.GetFrame(true)
	if err != nil {
		t.Fatal(err)
	}
	if len(frame.Pixels) != 640*480*3 {
		t.Fatalf("pixel buffer is %d bytes, want %d", len(frame.Pixels), 640*480*3)
	}
	if frame.ColorMode != config.RGB8 {
		t.Fatalf("color mode = %s", frame.ColorMode)
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	dir, cam := setup(t, 3)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	a, err := cam.GetFrame(true)
	if err != nil {
		t.Fatal(err)
	}
	b, err := cam.GetFrame(true)
	if err != nil {
		t.Fatal(err)
	}
	if b.Timestamp.Before(a.Timestamp) {
		t.Fatal("capture timestamps went backwards")
	}
	if b.Seq <= a.Seq {
		t.Fatalf("sequence went from %d to %d", a.Seq, b.Seq)
	}
}

func TestNumberOfImages(t *testing.T) {
	dir, cam := setup(t, 12)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	if n := cam.GetNumberOfImages(); n != 12 {
		t.Fatalf("got %d stored frames, want 12", n)
	}
}

func TestReplayLoopsAndResets(t *testing.T) {
	dir, cam := setup(t, 2)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	first, err := cam.GetFrame(false)
	if err != nil {
		t.Fatal(err)
	}

	// two more reads wrap the two-frame directory around
	if _, err := cam.GetFrame(false); err != nil {
		t.Fatal(err)
	}
	wrapped, err := cam.GetFrame(false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(wrapped.Pixels, first.Pixels) {
		t.Fatal("replay did not wrap to the first stored frame")
	}

	if err := cam.ResetImages(); err != nil {
		t.Fatal(err)
	}
	reset, err := cam.GetFrame(false)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reset.Pixels, first.Pixels) {
		t.Fatal("reset did not rewind the replay")
	}
}

func TestSetPathToImages(t *testing.T) {
	dir, cam := setup(t, 2)

	other := filepath.Join(dir, "other")
	writeFrames(t, other, 5, 640, 480)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	if err := cam.SetPathToImages(other); err != nil {
		t.Fatal(err)
	}
	if n := cam.GetNumberOfImages(); n != 5 {
		t.Fatalf("got %d stored frames after repointing, want 5", n)
	}
}

func TestNumberOfImagesOnUnreadableDirectory(t *testing.T) {
	dir, cam := setup(t, 2)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.SetPathToImages(filepath.Join(dir, "missing")); err != nil {
		t.Fatal(err)
	}
	if n := cam.GetNumberOfImages(); n != 0 {
		t.Fatalf("got %d for an unreadable directory, want 0", n)
	}
}

func TestInvalidPropertyKeepsPreviousValue(t *testing.T) {
	dir, cam := setup(t, 1)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}

	err := cam.SetProperty(camera.PropImageWidth, config.Number(-640))
	if !errors.Is(err, camera.ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue", err)
	}

	v, err := cam.GetProperty(camera.PropImageWidth)
	if err != nil {
		t.Fatal(err)
	}
	if w, ok := v.Int(); !ok || w != 640 {
		t.Fatalf("image width = %s, the previous value must survive", v)
	}
}

func TestGetColorImage(t *testing.T) {
	dir, cam := setup(t, 1)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	buf := make([]byte, 640*480*3)
	if err := cam.GetColorImage(buf, true); err != nil {
		t.Fatal(err)
	}

	if err := cam.GetColorImage(make([]byte, 16), true); !errors.Is(err, camera.ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue for a short buffer", err)
	}
}

func TestOpenRejectsGeometryMismatch(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	writeFrames(t, frames, 1, 320, 240)

	conf := fmt.Sprintf(`
[[camera]]
index = 0
type = "virtual"
interface = "usb"
source = %q
image_width = "640"
image_height = "480"
`, frames)
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	cam := New()
	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); !errors.Is(err, camera.ErrOpen) {
		t.Fatalf("got %v, want ErrOpen for mismatched stored frames", err)
	}
}

func TestSaveParametersRoundTrip(t *testing.T) {
	dir, cam := setup(t, 1)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.SetProperty(camera.PropGain, config.Number(12)); err != nil {
		t.Fatal(err)
	}

	saved := filepath.Join(dir, "saved.toml")
	if err := cam.SaveParameters(saved); err != nil {
		t.Fatal(err)
	}

	p, err := config.Load(saved, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := p.Gain.Float(); !ok || n != 12 {
		t.Fatalf("gain = %s after the round trip, want 12", p.Gain)
	}
}

func TestExercise(t *testing.T) {
	dir, cam := setup(t, 3)

	var out bytes.Buffer
	if err := camera.Exercise(cam, dir, 0, &out); err != nil {
		t.Fatalf("%v\n%s", err, out.String())
	}
	if out.Len() == 0 {
		t.Fatal("exercise produced no output")
	}
}
