// Package axiscam drives Axis network cameras over their HTTP (VAPIX)
// interface: MJPEG acquisition from the mjpg CGI and property updates
// through param.cgi.
package axiscam

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

var l = gogger.New("camera.axis")

const (
	streamPath = "/axis-cgi/mjpg/video.cgi"
	paramPath  = "/axis-cgi/param.cgi"
)

// vapixNames maps contract properties to the VAPIX parameter namespace.
// Properties outside this map are staged into the parameter store and
// take effect at the next Open.
var vapixNames = map[camera.PropertyID]string{
	camera.PropBrightness:    "ImageSource.I0.Sensor.Brightness",
	camera.PropSaturation:    "ImageSource.I0.Sensor.ColorLevel",
	camera.PropExposureTime:  "ImageSource.I0.Sensor.Exposure",
	camera.PropGain:          "ImageSource.I0.Sensor.Gain",
	camera.PropWhiteBalanceU: "ImageSource.I0.Sensor.WhiteBalanceRed",
	camera.PropWhiteBalanceV: "ImageSource.I0.Sensor.WhiteBalanceBlue",
	camera.PropFrameRate:     "Image.I0.Stream.FPS",
}

type Camera struct {
	camera.Base

	// NextTimeout bounds the GetFrame wait for a new frame.
	NextTimeout time.Duration

	client *http.Client
	cancel context.CancelFunc
	body   io.ReadCloser
	ring   *camera.Ring
}

func New() *Camera {
	return &Camera{
		Base:        camera.NewBase(config.CameraTypeAxis),
		NextTimeout: camera.DefaultNextTimeout,
		client:      &http.Client{},
	}
}

func (c *Camera) Init(directory string, cameraIndex int) error {
	if err := c.LoadParameters(directory, cameraIndex); err != nil {
		return fmt.Errorf("%w: %w", camera.ErrInit, err)
	}
	if c.Params().Interface != config.InterfaceEthernet {
		return fmt.Errorf("%w: axis camera requires an ethernet interface, got %q",
			camera.ErrInit, c.Params().Interface)
	}
	switch c.Params().ColorMode {
	case config.RGB8, config.Mono8:
	default:
		return fmt.Errorf("%w: mjpeg stream delivers %s or %s frames, configured %s",
			camera.ErrInit, config.RGB8, config.Mono8, c.Params().ColorMode)
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

	// commit staged explicit properties to the device first
	for id, name := range vapixNames {
		v, _ := camera.GetParameter(params, id)
		if !v.IsExplicit() {
			continue
		}
		if err := c.updateParam(name, v); err != nil {
			return fmt.Errorf("%w: committing %s: %v", camera.ErrOpen, id, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.streamURL(), nil)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return fmt.Errorf("%w: %v", camera.ErrOpen, err)
	}
	if resp.StatusCode != http.StatusOK {
		cancel()
		_ = resp.Body.Close()
		return fmt.Errorf("%w: stream returned %s", camera.ErrOpen, resp.Status)
	}

	mediaType, attrs, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") || attrs["boundary"] == "" {
		cancel()
		_ = resp.Body.Close()
		return fmt.Errorf("%w: unexpected stream content type %q", camera.ErrOpen, resp.Header.Get("Content-Type"))
	}

	c.cancel = cancel
	c.body = resp.Body
	c.ring = camera.NewRing(c.BufferSize())
	c.SetOpen(true)

	go c.consume(multipart.NewReader(resp.Body, attrs["boundary"]))

	l.Info().Printf("streaming from %s", params.IP)

	return nil
}

func (c *Camera) consume(parts *multipart.Reader) {
	mode := c.Params().ColorMode
	for {
		part, err := parts.NextPart()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
				l.Error().Println("stream ended:", err)
			}
			return
		}
		data, err := io.ReadAll(part)
		if err != nil {
			l.Verbose().Println("read part:", err)
			continue
		}
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			l.Verbose().Println("decode part:", err)
			continue
		}
		frame, err := camera.FrameFromImage(img, mode)
		if err != nil {
			l.Error().Println("convert part:", err)
			continue
		}
		c.ring.Push(frame)
	}
}

func (c *Camera) Close() error {
	if !c.IsOpen() {
		return nil
	}
	c.SetOpen(false)
	c.cancel()
	if err := c.body.Close(); err != nil {
		l.Warn().Println("closing stream:", err)
	}
	c.ring.Close()
	return nil
}

func (c *Camera) GetFrame(getLatest bool) (*camera.Frame, error) {
	if !c.IsOpen() {
		return nil, camera.ErrNotOpen
	}
	if getLatest {
		return c.ring.Latest(c.NextTimeout)
	}
	return c.ring.Next(c.NextTimeout)
}

func (c *Camera) SetProperty(id camera.PropertyID, value config.Value) error {
	if err := camera.ValidateProperty(id, value); err != nil {
		return err
	}
	if c.IsOpen() {
		if name, ok := vapixNames[id]; ok {
			if err := c.updateParam(name, value); err != nil {
				return err
			}
		}
	}
	return camera.SetParameter(c.Params(), id, value)
}

// SetPropertyDefaults sweeps every property back to AUTO, which is the
// device default for the Axis sensor pipeline. The first property the
// device rejects aborts the sweep.
func (c *Camera) SetPropertyDefaults() error {
	for _, id := range camera.PropertyIDs() {
		if err := c.SetProperty(id, config.Default()); err != nil {
			return fmt.Errorf("defaulting %s: %w", id, err)
		}
	}
	return nil
}

func (c *Camera) streamURL() string {
	query := url.Values{}
	params := c.Params()
	if w, ok := params.ImageWidth.Int(); ok {
		if h, ok := params.ImageHeight.Int(); ok {
			query.Set("resolution", fmt.Sprintf("%dx%d", w, h))
		}
	}
	if fps, ok := params.FrameRate.Float(); ok {
		query.Set("fps", fmt.Sprintf("%g", fps))
	}
	u := fmt.Sprintf("http://%s%s", params.IP, streamPath)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Camera) updateParam(name string, value config.Value) error {
	query := url.Values{}
	query.Set("action", "update")
	query.Set("root."+name, value.Normalized().String())

	resp, err := c.client.Get(fmt.Sprintf("http://%s%s?%s", c.Params().IP, paramPath, query.Encode()))
	if err != nil {
		return fmt.Errorf("update %s: %w", name, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: device rejected %s: %s", camera.ErrInvalidValue, name, resp.Status)
	}
	return nil
}
