package axiscam

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/placeholder"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

// fakeAxis serves the two VAPIX endpoints the backend talks to: the
// MJPEG stream CGI and param.cgi.
type fakeAxis struct {
	frameCount  int
	corruptPart bool

	mu      sync.Mutex
	updates []string
}

func (f *fakeAxis) recordedUpdates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

func (f *fakeAxis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case paramPath:
		f.mu.Lock()
		f.updates = append(f.updates, r.URL.RawQuery)
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	case streamPath:
		writer := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+writer.Boundary())
		w.WriteHeader(http.StatusOK)

		if f.corruptPart {
			part, err := writer.CreatePart(textproto.MIMEHeader{
				"Content-Type": {"image/jpeg"},
			})
			if err != nil {
				return
			}
			if _, err := part.Write([]byte("not a jpeg")); err != nil {
				return
			}
		}

		for i := 0; i < f.frameCount; i++ {
			img, err := placeholder.Create(
				320, 240,
				color.RGBA{A: 255},
				color.RGBA{R: 255, A: 255},
				fmt.Sprintf("axis %d", i),
				false,
			)
			if err != nil {
				return
			}
			var frame bytes.Buffer
			if err := jpeg.Encode(&frame, img, nil); err != nil {
				return
			}

			part, err := writer.CreatePart(textproto.MIMEHeader{
				"Content-Type":   {"image/jpeg"},
				"Content-Length": {fmt.Sprint(frame.Len())},
			})
			if err != nil {
				return
			}
			if _, err := part.Write(frame.Bytes()); err != nil {
				return
			}
			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
		_ = writer.Close()
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func setup(t *testing.T, device *fakeAxis) (string, *Camera) {
	t.Helper()

	server := httptest.NewServer(device)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	conf := fmt.Sprintf(`
[[camera]]
index = 0
type = "axis"
role = "slave"
interface = "ethernet"
ip = %q
color_mode = "RGB8"
frame_rate = "10"
buffer_size = 8
`, strings.TrimPrefix(server.URL, "http://"))
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	return dir, New()
}

func TestLifecycleAndAcquisition(t *testing.T) {
	device := &fakeAxis{frameCount: 6}
	dir, cam := setup(t, device)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	a, err := cam.GetFrame(false)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Pixels) != 320*240*3 {
		t.Fatalf("pixel buffer is %d bytes", len(a.Pixels))
	}

	b, err := cam.GetFrame(false)
	if err != nil {
		t.Fatal(err)
	}
	if b.Seq <= a.Seq {
		t.Fatalf("next delivered %d after %d", b.Seq, a.Seq)
	}
	if b.Timestamp.Before(a.Timestamp) {
		t.Fatal("capture timestamps went backwards")
	}

	latest, err := cam.GetFrame(true)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Seq <= b.Seq {
		t.Fatalf("latest delivered %d after %d", latest.Seq, b.Seq)
	}

	if n := cam.GetNumberOfImages(); n != camera.ImageCountUnbounded {
		t.Fatalf("got %d, a network stream must report the unbounded sentinel", n)
	}

	// the explicit frame rate was committed to the device at open
	committed := false
	for _, update := range device.recordedUpdates() {
		if strings.Contains(update, "Image.I0.Stream.FPS") {
			committed = true
		}
	}
	if !committed {
		t.Fatalf("frame rate never reached the device: %v", device.recordedUpdates())
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
}

func TestLivePropertyUpdate(t *testing.T) {
	device := &fakeAxis{frameCount: 2}
	dir, cam := setup(t, device)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	if err := cam.SetProperty(camera.PropBrightness, config.Number(77)); err != nil {
		t.Fatal(err)
	}

	found := false
	for _, update := range device.recordedUpdates() {
		if strings.Contains(update, "Brightness") && strings.Contains(update, "77") {
			found = true
		}
	}
	if !found {
		t.Fatalf("brightness never reached the device: %v", device.recordedUpdates())
	}

	v, err := cam.GetProperty(camera.PropBrightness)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.Float(); !ok || n != 77 {
		t.Fatalf("brightness = %s, want 77", v)
	}
}

func TestInvalidValueNeverReachesDevice(t *testing.T) {
	device := &fakeAxis{frameCount: 1}
	dir, cam := setup(t, device)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}

	err := cam.SetProperty(camera.PropBrightness, config.Number(-1))
	if !errors.Is(err, camera.ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue", err)
	}
	if len(device.recordedUpdates()) != 0 {
		t.Fatal("a rejected value must not be sent to the device")
	}
}

func TestInitRejectsUnsupportedColorMode(t *testing.T) {
	dir := t.TempDir()
	conf := `
[[camera]]
index = 0
type = "axis"
interface = "ethernet"
ip = "10.0.0.9"
color_mode = "Mono16"
`
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New().Init(dir, 0); !errors.Is(err, camera.ErrInit) {
		t.Fatalf("got %v, want ErrInit for a color mode the stream cannot deliver", err)
	}
}

func TestStreamSurvivesUndecodablePart(t *testing.T) {
	device := &fakeAxis{frameCount: 3, corruptPart: true}
	dir, cam := setup(t, device)

	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = cam.Close()
	}()

	// the corrupt leading part is skipped, the stream keeps delivering
	for i := 0; i < 3; i++ {
		if _, err := cam.GetFrame(false); err != nil {
			t.Fatalf("frame %d after a corrupt part: %v", i, err)
		}
	}
}

func TestInitRejectsWrongInterface(t *testing.T) {
	dir := t.TempDir()
	conf := `
[[camera]]
index = 0
type = "axis"
interface = "usb"
`
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	if err := New().Init(dir, 0); !errors.Is(err, camera.ErrInit) {
		t.Fatalf("got %v, want ErrInit", err)
	}
}

func TestOpenFailsWhenDeviceAbsent(t *testing.T) {
	dir := t.TempDir()
	conf := `
[[camera]]
index = 0
type = "axis"
interface = "ethernet"
ip = "127.0.0.1:1"
`
	if err := os.WriteFile(filepath.Join(dir, config.DefaultFilename), []byte(conf), 0644); err != nil {
		t.Fatal(err)
	}

	cam := New()
	if err := cam.Init(dir, 0); err != nil {
		t.Fatal(err)
	}
	if err := cam.Open(); !errors.Is(err, camera.ErrOpen) {
		t.Fatalf("got %v, want ErrOpen", err)
	}
	if cam.IsOpen() {
		t.Fatal("a failed open must leave the handle closed")
	}
}
