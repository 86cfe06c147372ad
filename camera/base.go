package camera

import (
	"fmt"
	"io"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

// Base carries the lifecycle flags and the parameter store every
// backend shares, plus the default implementations of the contract's
// optional operations. Backends embed it and override what their
// device supports.
type Base struct {
	camType     config.CameraType
	initialized bool
	open        bool
	params      config.CameraParameters
	configDir   string
	cameraIndex int
}

// NewBase seeds a backend's state with its camera type. Construction
// never touches hardware.
func NewBase(t config.CameraType) Base {
	return Base{camType: t}
}

func (b *Base) IsInitialized() bool {
	return b.initialized
}

func (b *Base) IsOpen() bool {
	return b.open
}

func (b *Base) SetInitialized(v bool) {
	b.initialized = v
}

func (b *Base) SetOpen(v bool) {
	b.open = v
}

// EnsureInitialized guards Open against a handle whose Init never
// succeeded. The failure carries both the open and the init sentinel.
func (b *Base) EnsureInitialized() error {
	if !b.initialized {
		return fmt.Errorf("%w: %w", ErrOpen, ErrInit)
	}
	return nil
}

// Params exposes the in-memory parameter store. Property updates while
// the device is not open stage into it.
func (b *Base) Params() *config.CameraParameters {
	return &b.params
}

// LoadParameters fills the store from the fixed configuration file in
// directory, keyed by cameraIndex. Init implementations call this and
// wrap failures into ErrInit.
func (b *Base) LoadParameters(directory string, cameraIndex int) error {
	params, err := config.LoadFromDirectory(directory, cameraIndex)
	if err != nil {
		return err
	}
	if params.Type == "" {
		params.Type = b.camType
	} else if b.camType != "" && params.Type != b.camType {
		return fmt.Errorf("camera %d is configured as %q, handle is %q", cameraIndex, params.Type, b.camType)
	}
	// a stored value obeys the same domains SetProperty enforces
	for _, id := range PropertyIDs() {
		v, _ := GetParameter(&params, id)
		if err := ValidateProperty(id, v); err != nil {
			return err
		}
	}
	b.params = params
	b.configDir = directory
	b.cameraIndex = cameraIndex
	return nil
}

func (b *Base) ConfigDir() string {
	return b.configDir
}

func (b *Base) CameraIndex() int {
	return b.cameraIndex
}

// BufferSize returns the configured internal frame buffer size,
// never less than 1.
func (b *Base) BufferSize() int {
	if b.params.BufferSize < 1 {
		return 1
	}
	return b.params.BufferSize
}

// GetProperty reads from the parameter store. Backends that can query
// the live device override this for the OPEN state.
func (b *Base) GetProperty(id PropertyID) (config.Value, error) {
	return GetParameter(&b.params, id)
}

// SetProperty stages into the parameter store. Backends override this
// to also push the value to the live device when OPEN.
func (b *Base) SetProperty(id PropertyID, value config.Value) error {
	return SetParameter(&b.params, id, value)
}

// SetPropertyDefaults resets every property to DEFAULT in one sweep.
// Backends with device defaults override this; the base sweep cannot
// partially fail.
func (b *Base) SetPropertyDefaults() error {
	for _, id := range PropertyIDs() {
		if err := SetParameter(&b.params, id, config.Default()); err != nil {
			return fmt.Errorf("defaulting %s: %w", id, err)
		}
	}
	return nil
}

// SaveParameters persists the store to filename in the loadable
// schema.
func (b *Base) SaveParameters(filename string) error {
	return b.params.Save(filename)
}

// PrintCameraInformation writes the parameter dump shared by all
// backends.
func (b *Base) PrintCameraInformation(w io.Writer) error {
	p := &b.params
	_, err := fmt.Fprintf(w,
		"camera %d (%s)\n  role: %s\n  interface: %s", p.Index, p.Type, p.Role, p.Interface)
	if err != nil {
		return err
	}
	if p.Interface == config.InterfaceEthernet {
		if _, err = fmt.Fprintf(w, " (%s)", p.IP); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(w,
		"\n  format/mode: %s/%s\n  color mode: %s\n  iso speed: %s\n",
		p.VideoFormat, p.VideoMode, p.ColorMode, p.IsoSpeed); err != nil {
		return err
	}
	for _, id := range PropertyIDs() {
		v, _ := GetParameter(p, id)
		if _, err = fmt.Fprintf(w, "  %s: %s\n", id, v); err != nil {
			return err
		}
	}
	return nil
}

// GetColorImage is the legacy raw buffer overload; backends without
// raw delivery inherit this failing stub.
func (b *Base) GetColorImage([]byte, bool) error {
	return fmt.Errorf("%w: raw buffer delivery", ErrUnsupportedOperation)
}

// GetNumberOfImages reports an unbounded stream; finite sources
// override it.
func (b *Base) GetNumberOfImages() int {
	return ImageCountUnbounded
}

// SetPathToImages is meaningful for replay backends only.
func (b *Base) SetPathToImages(string) error {
	return nil
}

// ResetImages is meaningful for replay backends only.
func (b *Base) ResetImages() error {
	return nil
}

func (b *Base) GetCameraType() config.CameraType {
	return b.camType
}
