package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/allape/gogger"
	"github.com/pelletier/go-toml/v2"
)

var l = gogger.New("config")

// DefaultFilename is the fixed configuration file name looked up inside
// the directory passed to Camera.Init.
const DefaultFilename = "cameraSensors.toml"

var (
	ErrConfig = errors.New("config: bad or missing configuration")
	ErrIO     = errors.New("config: io failure")
)

type CameraType string

const (
	CameraTypeVirtual CameraType = "virtual"
	CameraTypeIC      CameraType = "ic"
	CameraTypeAxis    CameraType = "axis"
	CameraTypeAVTPike CameraType = "avt_pike"
	CameraTypeOpenCV  CameraType = "opencv"
	CameraTypeIDSuEye CameraType = "ids_ueye"
)

type Role string

const (
	RoleMaster Role = "master"
	RoleSlave  Role = "slave"
)

type InterfaceKind string

const (
	InterfaceUSB      InterfaceKind = "usb"
	InterfaceEthernet InterfaceKind = "ethernet"
	InterfaceFireWire InterfaceKind = "firewire"
)

type ColorMode string

const (
	Mono8   ColorMode = "Mono8"
	Mono16S ColorMode = "Mono16S"
	Mono16  ColorMode = "Mono16"
	YUV411  ColorMode = "YUV411"
	YUV422  ColorMode = "YUV422"
	Raw16   ColorMode = "Raw16"
	RGB8    ColorMode = "RGB8"
)

// BytesPerPixel returns the packed pixel stride of the mode, or 0 for
// an unknown mode.
func (m ColorMode) BytesPerPixel() int {
	switch m {
	case Mono8:
		return 1
	case Mono16S, Mono16, Raw16, YUV422:
		return 2
	case RGB8:
		return 3
	case YUV411:
		return 2 // 12 bits per pixel, rounded up to the packed pair stride
	}
	return 0
}

func (m ColorMode) Valid() bool {
	return m.BytesPerPixel() != 0
}

// CameraParameters is the per-camera slice of the configuration file.
// Scalar capture settings are tri-state Values (AUTO, DEFAULT or a
// number), matching the original text-typed camera configuration.
type CameraParameters struct {
	Index     int           `toml:"index"`
	Type      CameraType    `toml:"type"`
	Role      Role          `toml:"role"`
	Interface InterfaceKind `toml:"interface"`
	IP        string        `toml:"ip,omitempty"`

	// Source is backend defined: an image directory for the virtual
	// camera, a device index or URL for OpenCV style capture.
	Source string `toml:"source,omitempty"`
	// Pipeline is the external capture command for FireWire backends.
	Pipeline []string `toml:"pipeline,omitempty"`

	VideoFormat Value     `toml:"video_format"`
	VideoMode   Value     `toml:"video_mode"`
	ColorMode   ColorMode `toml:"color_mode"`
	IsoSpeed    Value     `toml:"iso_speed"`

	FrameRate     Value `toml:"frame_rate"`
	Shutter       Value `toml:"shutter"`
	WhiteBalanceU Value `toml:"white_balance_u"`
	WhiteBalanceV Value `toml:"white_balance_v"`
	Hue           Value `toml:"hue"`
	Saturation    Value `toml:"saturation"`
	Gamma         Value `toml:"gamma"`
	ExposureTime  Value `toml:"exposure_time"`
	Gain          Value `toml:"gain"`
	Brightness    Value `toml:"brightness"`

	ImageWidth  Value `toml:"image_width"`
	ImageHeight Value `toml:"image_height"`

	BufferSize int `toml:"buffer_size,omitempty"`

	TriggerPort string `toml:"trigger_port,omitempty"`
	TriggerBaud int    `toml:"trigger_baud,omitempty"`
}

type file struct {
	Cameras []CameraParameters `toml:"camera"`
}

// Load reads the configuration file at path and returns the parameters
// of the camera with the given index. Several cameras of the same type
// may share one file.
func Load(path string, cameraIndex int) (CameraParameters, error) {
	var params CameraParameters

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}

	var f file
	if err := toml.Unmarshal(data, &f); err != nil {
		return params, fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
	}

	found := false
	for _, c := range f.Cameras {
		if c.Index == cameraIndex {
			params = c
			found = true
			break
		}
	}
	if !found {
		return params, fmt.Errorf("%w: no camera with index %d in %s", ErrConfig, cameraIndex, path)
	}

	if err := params.Validate(); err != nil {
		return CameraParameters{}, err
	}

	params.applyAutoDefaults()

	l.Verbose().Printf("loaded camera %d from %s", cameraIndex, path)

	return params, nil
}

// LoadFromDirectory resolves the fixed configuration filename inside
// directory before loading.
func LoadFromDirectory(directory string, cameraIndex int) (CameraParameters, error) {
	return Load(filepath.Join(directory, DefaultFilename), cameraIndex)
}

// Save writes the parameters back to path in the loadable schema,
// merging with any cameras already stored there. Unset and DEFAULT
// values are normalized to AUTO.
func (p CameraParameters) Save(path string) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var f file
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("%w: parse %s: %v", ErrConfig, path, err)
		}
	}

	p.applyAutoDefaults()

	replaced := false
	for i, c := range f.Cameras {
		if c.Index == p.Index {
			f.Cameras[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		f.Cameras = append(f.Cameras, p)
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}

	l.Verbose().Printf("saved camera %d to %s", p.Index, path)

	return nil
}

// Validate checks the fields that have cross-backend domains. Backend
// specific restrictions are enforced by the backends themselves.
func (p CameraParameters) Validate() error {
	switch p.Role {
	case RoleMaster, RoleSlave, "":
	default:
		return fmt.Errorf("%w: unknown role %q", ErrConfig, p.Role)
	}

	switch p.Interface {
	case InterfaceUSB, InterfaceFireWire:
	case InterfaceEthernet:
		if p.IP == "" {
			return fmt.Errorf("%w: ethernet camera without ip", ErrConfig)
		}
	case "":
		return fmt.Errorf("%w: interface is required", ErrConfig)
	default:
		return fmt.Errorf("%w: unknown interface %q", ErrConfig, p.Interface)
	}

	if p.ColorMode != "" && !p.ColorMode.Valid() {
		return fmt.Errorf("%w: unknown color mode %q", ErrConfig, p.ColorMode)
	}

	for _, dim := range []struct {
		name string
		v    Value
	}{
		{"image_width", p.ImageWidth},
		{"image_height", p.ImageHeight},
	} {
		if n, ok := dim.v.Int(); ok && n <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrConfig, dim.name, n)
		}
	}

	if p.BufferSize < 0 {
		return fmt.Errorf("%w: buffer_size must not be negative", ErrConfig)
	}

	return nil
}

// applyAutoDefaults turns unset optional scalars into AUTO so the
// invariant "every field is unset, AUTO or explicit" collapses to the
// latter two once a configuration is loaded.
func (p *CameraParameters) applyAutoDefaults() {
	for _, v := range []*Value{
		&p.VideoFormat, &p.VideoMode, &p.IsoSpeed,
		&p.FrameRate, &p.Shutter,
		&p.WhiteBalanceU, &p.WhiteBalanceV,
		&p.Hue, &p.Saturation, &p.Gamma,
		&p.ExposureTime, &p.Gain, &p.Brightness,
		&p.ImageWidth, &p.ImageHeight,
	} {
		if !v.IsSet() {
			*v = Auto()
		}
	}
	if p.Role == "" {
		p.Role = RoleMaster
	}
	if p.ColorMode == "" {
		p.ColorMode = RGB8
	}
}
