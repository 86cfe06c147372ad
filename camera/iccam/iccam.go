// Package iccam drives Imaging Source FireWire cameras through the
// shared IEEE1394 capture pipeline.
package iccam

import (
	"fmt"
	"slices"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/firewire"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

var l = gogger.New("camera.ic")

// Imaging Source gain and shutter registers are 8 bit; the family tops
// out at ISO 400 on legacy 1394a buses.
const (
	maxGain         = 255
	maxShutter      = 255
	defaultIsoSpeed = 400
)

type Camera struct {
	camera.Base

	pipeline firewire.Pipeline
}

func New() *Camera {
	return &Camera{Base: camera.NewBase(config.CameraTypeIC)}
}

func (c *Camera) Init(directory string, cameraIndex int) error {
	if err := c.LoadParameters(directory, cameraIndex); err != nil {
		return fmt.Errorf("%w: %w", camera.ErrInit, err)
	}

	params := c.Params()
	if params.Interface != config.InterfaceFireWire {
		return fmt.Errorf("%w: ic camera requires a firewire interface, got %q",
			camera.ErrInit, params.Interface)
	}
	if err := firewire.CheckColorMode(params.ColorMode); err != nil {
		return fmt.Errorf("%w: %v", camera.ErrInit, err)
	}
	if !params.IsoSpeed.IsExplicit() {
		params.IsoSpeed = config.Int(defaultIsoSpeed)
	}

	c.pipeline = firewire.Pipeline{
		Command:    firewire.DefaultCommand(params),
		ColorMode:  params.ColorMode,
		BufferSize: c.BufferSize(),
		Sync:       firewire.SyncLine(params),
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
	if err := c.pipeline.Start(); err != nil {
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	c.SetOpen(true)
	l.Info().Println("ic pipeline started")
	return nil
}

func (c *Camera) Close() error {
	if !c.IsOpen() {
		return nil
	}
	c.SetOpen(false)
	if err := c.pipeline.Stop(); err != nil {
		l.Warn().Println("stopping pipeline:", err)
	}
	return nil
}

func (c *Camera) GetFrame(getLatest bool) (*camera.Frame, error) {
	if !c.IsOpen() {
		return nil, camera.ErrNotOpen
	}
	return c.pipeline.Acquire(getLatest)
}

// SetProperty stages the value; a running pipeline is restarted with
// the new capture arguments.
func (c *Camera) SetProperty(id camera.PropertyID, value config.Value) error {
	if n, ok := value.Float(); ok {
		switch {
		case id == camera.PropGain && n > maxGain:
			return fmt.Errorf("%w: ic gain %g above %d", camera.ErrInvalidValue, n, maxGain)
		case id == camera.PropShutter && n > maxShutter:
			return fmt.Errorf("%w: ic shutter %g above %d", camera.ErrInvalidValue, n, maxShutter)
		}
	}
	if err := camera.SetParameter(c.Params(), id, value); err != nil {
		return err
	}
	return c.applyRunning()
}

func (c *Camera) SetPropertyDefaults() error {
	if err := c.Base.SetPropertyDefaults(); err != nil {
		return err
	}
	return c.applyRunning()
}

// applyRunning restarts a running pipeline only when the staged
// parameters change its command line; properties the capture command
// does not consume take effect without a stream gap.
func (c *Camera) applyRunning() error {
	if !c.IsOpen() {
		return nil
	}
	if slices.Equal(firewire.DefaultCommand(c.Params()), c.pipeline.Command) {
		return nil
	}
	return c.restart()
}

func (c *Camera) restart() error {
	if err := c.pipeline.Stop(); err != nil {
		l.Warn().Println("stopping pipeline:", err)
	}
	c.pipeline.Command = firewire.DefaultCommand(c.Params())
	if err := c.pipeline.Start(); err != nil {
		c.SetOpen(false)
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	return nil
}
