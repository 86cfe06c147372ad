// Package ueyecam drives IDS uEye USB cameras. The uEye daemon exposes
// the sensor as a V4L2 node, so capture goes through OpenCV by device
// index while the property domains follow the uEye register layout.
package ueyecam

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/config"
	"gocv.io/x/gocv"
)

var l = gogger.New("camera.ueye")

// uEye master gain runs 0..100 percent, exposure 0.01..2000 ms.
const (
	maxGain     = 100
	minExposure = 0.01
	maxExposure = 2000.0
)

type Camera struct {
	camera.Base

	locker sync.Mutex

	webcam *gocv.VideoCapture
	mat    *gocv.Mat

	lastFrame   *camera.Frame
	lastCapture time.Time
	interpolate time.Duration
	seq         uint64
}

func New() *Camera {
	return &Camera{Base: camera.NewBase(config.CameraTypeIDSuEye)}
}

func (c *Camera) Init(directory string, cameraIndex int) error {
	if err := c.LoadParameters(directory, cameraIndex); err != nil {
		return fmt.Errorf("%w: %w", camera.ErrInit, err)
	}
	params := c.Params()
	if params.Interface != config.InterfaceUSB {
		return fmt.Errorf("%w: ueye camera requires a usb interface, got %q",
			camera.ErrInit, params.Interface)
	}
	if params.Source != "" {
		if _, err := strconv.Atoi(params.Source); err != nil {
			return fmt.Errorf("%w: ueye source must be a device index, got %q",
				camera.ErrInit, params.Source)
		}
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

	params := c.Params()

	index := 0
	if params.Source != "" {
		index, _ = strconv.Atoi(params.Source)
	}

	webcam, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}

	if w, ok := params.ImageWidth.Float(); ok {
		webcam.Set(gocv.VideoCaptureFrameWidth, w)
	}
	if h, ok := params.ImageHeight.Float(); ok {
		webcam.Set(gocv.VideoCaptureFrameHeight, h)
	}
	if fps, ok := params.FrameRate.Float(); ok {
		webcam.Set(gocv.VideoCaptureFPS, fps)
	}
	if exp, ok := params.ExposureTime.Float(); ok {
		webcam.Set(gocv.VideoCaptureAutoExposure, 0)
		webcam.Set(gocv.VideoCaptureExposure, exp)
	} else {
		webcam.Set(gocv.VideoCaptureAutoExposure, 1)
	}
	if gain, ok := params.Gain.Float(); ok {
		webcam.Set(gocv.VideoCaptureGain, gain)
	}

	mat := gocv.NewMat()
	c.webcam = webcam
	c.mat = &mat
	c.lastFrame = nil
	c.interpolate = time.Duration(float64(time.Second) / params.FrameRate.Or(25))
	c.SetOpen(true)

	l.Info().Printf("ueye device %d open", index)

	return nil
}

func (c *Camera) Close() error {
	if !c.IsOpen() {
		return nil
	}
	c.SetOpen(false)

	c.locker.Lock()
	defer c.locker.Unlock()

	if err := c.mat.Close(); err != nil {
		l.Warn().Println("closing mat:", err)
	}
	c.mat = nil

	err := c.webcam.Close()
	c.webcam = nil
	if err != nil {
		l.Warn().Println("closing capture:", err)
	}
	return nil
}

func (c *Camera) GetFrame(getLatest bool) (*camera.Frame, error) {
	if !c.IsOpen() {
		return nil, camera.ErrNotOpen
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	now := time.Now()
	if c.lastFrame != nil && now.Before(c.lastCapture.Add(c.interpolate)) {
		if getLatest {
			return c.lastFrame, nil
		}
		time.Sleep(time.Until(c.lastCapture.Add(c.interpolate)))
	}

	if ok := c.webcam.Read(c.mat); !ok || c.mat.Empty() {
		return nil, fmt.Errorf("%w: failed to read frame", camera.ErrTimeout)
	}

	img, err := c.mat.ToImage()
	if err != nil {
		return nil, err
	}
	frame, err := camera.FrameFromImage(img, c.Params().ColorMode)
	if err != nil {
		return nil, err
	}

	c.seq++
	frame.Seq = c.seq
	c.lastFrame = frame
	c.lastCapture = time.Now()

	return frame, nil
}

func (c *Camera) SetProperty(id camera.PropertyID, value config.Value) error {
	if n, ok := value.Float(); ok {
		switch {
		case id == camera.PropGain && n > maxGain:
			return fmt.Errorf("%w: ueye gain %g above %d%%", camera.ErrInvalidValue, n, maxGain)
		case id == camera.PropExposureTime && (n < minExposure || n > maxExposure):
			return fmt.Errorf("%w: ueye exposure %gms outside [%g, %g]",
				camera.ErrInvalidValue, n, minExposure, maxExposure)
		}
	}
	if err := camera.ValidateProperty(id, value); err != nil {
		return err
	}

	if c.IsOpen() {
		c.locker.Lock()
		switch id {
		case camera.PropExposureTime:
			if n, explicit := value.Float(); explicit {
				c.webcam.Set(gocv.VideoCaptureAutoExposure, 0)
				c.webcam.Set(gocv.VideoCaptureExposure, n)
			} else {
				c.webcam.Set(gocv.VideoCaptureAutoExposure, 1)
			}
		case camera.PropGain:
			if n, explicit := value.Float(); explicit {
				c.webcam.Set(gocv.VideoCaptureGain, n)
			}
		case camera.PropFrameRate:
			if n, explicit := value.Float(); explicit {
				c.webcam.Set(gocv.VideoCaptureFPS, n)
				c.interpolate = time.Duration(float64(time.Second) / n)
			}
		case camera.PropBrightness:
			if n, explicit := value.Float(); explicit {
				c.webcam.Set(gocv.VideoCaptureBrightness, n)
			}
		}
		c.locker.Unlock()
	}

	return camera.SetParameter(c.Params(), id, value)
}

// SetPropertyDefaults restores the uEye auto modes: auto exposure on,
// unity gain, sensor default frame rate.
func (c *Camera) SetPropertyDefaults() error {
	if err := c.Base.SetPropertyDefaults(); err != nil {
		return err
	}
	if !c.IsOpen() {
		return nil
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	c.webcam.Set(gocv.VideoCaptureAutoExposure, 1)
	c.webcam.Set(gocv.VideoCaptureGain, 0)

	return nil
}
