// Package virtualcam replays stored frames from a directory, standing
// in for a live camera during development and testing.
package virtualcam

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

var l = gogger.New("camera.virtual")

// Camera is the filesystem-backed replay camera. The image directory
// comes from the configuration's source field or SetPathToImages. The
// replay loops over the directory, so both the latest and the next
// frame advance the read position.
type Camera struct {
	camera.Base

	dir   string
	files []string
	pos   int
	seq   uint64
	last  *camera.Frame
}

func New() *Camera {
	return &Camera{Base: camera.NewBase(config.CameraTypeVirtual)}
}

func (c *Camera) Init(directory string, cameraIndex int) error {
	if err := c.LoadParameters(directory, cameraIndex); err != nil {
		return fmt.Errorf("%w: %w", camera.ErrInit, err)
	}
	if c.dir == "" {
		c.dir = c.Params().Source
	}
	c.SetInitialized(true)
	return nil
}

func (c *Camera) Open() error {
	if err := c.EnsureInitialized(); err != nil {
		return err
	}
	if c.IsOpen() {
		return nil
	}

	files, err := listImages(c.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no images in %s", camera.ErrOpen, c.dir)
	}

	first, err := decode(files[0])
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	size := first.Bounds().Size()

	params := c.Params()
	if w, ok := params.ImageWidth.Int(); ok && w != size.X {
		return fmt.Errorf("%w: stored frames are %d wide, configured %d", camera.ErrOpen, size.X, w)
	}
	if h, ok := params.ImageHeight.Int(); ok && h != size.Y {
		return fmt.Errorf("%w: stored frames are %d high, configured %d", camera.ErrOpen, size.Y, h)
	}
	params.ImageWidth = config.Int(size.X)
	params.ImageHeight = config.Int(size.Y)

	c.files = files
	c.pos = 0
	c.SetOpen(true)

	l.Info().Printf("replaying %d frames from %s", len(files), c.dir)

	return nil
}

func (c *Camera) Close() error {
	if !c.IsOpen() {
		return nil
	}
	c.SetOpen(false)
	c.last = nil
	return nil
}

func (c *Camera) GetFrame(getLatest bool) (*camera.Frame, error) {
	if !c.IsOpen() {
		return nil, camera.ErrNotOpen
	}
	_ = getLatest // a directory has no capture backlog to skip

	img, err := decode(c.files[c.pos])
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.files[c.pos], err)
	}

	frame, err := camera.FrameFromImage(img, c.Params().ColorMode)
	if err != nil {
		return nil, err
	}
	c.seq++
	frame.Seq = c.seq

	c.pos = (c.pos + 1) % len(c.files)
	c.last = frame

	return frame, nil
}

func (c *Camera) GetColorImage(buf []byte, getLatest bool) error {
	frame, err := c.GetFrame(getLatest)
	if err != nil {
		return err
	}
	return frame.CopyTo(buf)
}

func (c *Camera) GetNumberOfImages() int {
	if c.files != nil {
		return len(c.files)
	}
	files, err := listImages(c.dir)
	if err != nil {
		l.Warn().Println("counting images:", err)
		return 0
	}
	return len(files)
}

// SetPathToImages points the replay at another directory. An open
// camera rescans immediately.
func (c *Camera) SetPathToImages(path string) error {
	c.dir = path
	if !c.IsOpen() {
		return nil
	}
	files, err := listImages(path)
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no images in %s", camera.ErrOpen, path)
	}
	c.files = files
	c.pos = 0
	return nil
}

// ResetImages rewinds the replay to the first stored frame.
func (c *Camera) ResetImages() error {
	c.pos = 0
	return nil
}

func listImages(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("image directory is not set")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	img, _, err := image.Decode(file)
	return img, err
}
