// Package opencvcam captures through OpenCV's VideoCapture, covering
// any device, file or URL the local OpenCV build can open.
package opencvcam

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

var l = gogger.New("camera.opencv")

// gocvProps maps contract properties to OpenCV capture properties.
// Unmapped properties stage into the parameter store only.
var gocvProps = map[camera.PropertyID]gocv.VideoCaptureProperties{
	camera.PropFrameRate:     gocv.VideoCaptureFPS,
	camera.PropBrightness:    gocv.VideoCaptureBrightness,
	camera.PropSaturation:    gocv.VideoCaptureSaturation,
	camera.PropHue:           gocv.VideoCaptureHue,
	camera.PropGain:          gocv.VideoCaptureGain,
	camera.PropGamma:         gocv.VideoCaptureGamma,
	camera.PropExposureTime:  gocv.VideoCaptureExposure,
	camera.PropWhiteBalanceU: gocv.VideoCaptureWhiteBalanceBlueU,
	camera.PropWhiteBalanceV: gocv.VideoCaptureWhiteBalanceRedV,
	camera.PropImageWidth:    gocv.VideoCaptureFrameWidth,
	camera.PropImageHeight:   gocv.VideoCaptureFrameHeight,
}

// Camera reads frames on demand, interpolating repeated requests
// within one frame interval to spare the device.
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
	return &Camera{Base: camera.NewBase(config.CameraTypeOpenCV)}
}

func (c *Camera) Init(directory string, cameraIndex int) error {
	if err := c.LoadParameters(directory, cameraIndex); err != nil {
		return fmt.Errorf("%w: %w", camera.ErrInit, err)
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

	src := params.Source
	if src == "" {
		src = "0"
	}

	var webcam *gocv.VideoCapture
	var err error
	if index, atoiErr := strconv.Atoi(src); atoiErr == nil {
		webcam, err = gocv.OpenVideoCapture(index)
	} else {
		webcam, err = gocv.OpenVideoCapture(src)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}

	// commit staged explicit properties to the device
	for id, prop := range gocvProps {
		v, _ := camera.GetParameter(params, id)
		if n, ok := v.Float(); ok {
			webcam.Set(prop, n)
		}
	}

	mat := gocv.NewMat()
	c.webcam = webcam
	c.mat = &mat
	c.lastFrame = nil
	c.interpolate = time.Duration(float64(time.Second) / params.FrameRate.Or(30))
	c.SetOpen(true)

	l.Info().Println("capture open on", src)

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
	withinWindow := c.lastFrame != nil && now.Before(c.lastCapture.Add(c.interpolate))

	if withinWindow {
		if getLatest {
			// the last read is still the freshest frame the device has
			return c.lastFrame, nil
		}
		// a strictly newer frame is wanted, let the interval pass
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

func (c *Camera) GetProperty(id camera.PropertyID) (config.Value, error) {
	if c.IsOpen() {
		if prop, ok := gocvProps[id]; ok {
			c.locker.Lock()
			defer c.locker.Unlock()
			if c.webcam != nil {
				return config.Number(c.webcam.Get(prop)), nil
			}
		}
	}
	return c.Base.GetProperty(id)
}

func (c *Camera) SetProperty(id camera.PropertyID, value config.Value) error {
	if err := camera.ValidateProperty(id, value); err != nil {
		return err
	}
	if c.IsOpen() {
		if prop, ok := gocvProps[id]; ok {
			if n, explicit := value.Float(); explicit {
				c.locker.Lock()
				c.webcam.Set(prop, n)
				c.locker.Unlock()
			}
		}
	}
	return camera.SetParameter(c.Params(), id, value)
}

// SetPropertyDefaults stages DEFAULT for every property; the device
// restores its factory values at the next Open, since OpenCV exposes
// no reset call.
func (c *Camera) SetPropertyDefaults() error {
	return c.Base.SetPropertyDefaults()
}
