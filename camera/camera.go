// Package camera defines the hardware-abstraction contract shared by
// every color/mono camera backend: a lifecycle state machine
// (Init → Open → acquire → Close), a typed property interface and the
// frame acquisition semantics. Concrete transports (FireWire, USB,
// GigE, filesystem replay) live in the sub-packages and all honor this
// contract identically.
package camera

import (
	"io"
	"math"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

// ImageCountUnbounded is returned by GetNumberOfImages for live,
// unbounded streams.
const ImageCountUnbounded = math.MaxInt

// Camera is the flat capability contract every backend implements.
//
// A handle is owned by a single logical caller: Init, Open, Close,
// property mutation and frame acquisition on the same handle must be
// serialized externally unless a backend documents otherwise.
type Camera interface {
	// Init loads the parameter store from directory (fixed filename,
	// keyed by cameraIndex) and applies backend specific parameter
	// handling. UNINITIALIZED → INITIALIZED on success; the state is
	// left unchanged on failure.
	Init(directory string, cameraIndex int) error
	// Open commits the loaded parameters to the live device.
	// INITIALIZED → OPEN, or CLOSED → OPEN when reopening.
	Open() error
	// Close releases the device. Calling Close when not open is a
	// successful no-op; secondary release errors are logged, never
	// propagated in a way that leaks the resource.
	Close() error

	IsInitialized() bool
	IsOpen() bool

	// GetFrame acquires a frame, requiring OPEN. With getLatest the
	// most recently captured frame is returned and older buffered
	// frames are discarded; otherwise the next frame strictly after
	// the last delivered one is returned, blocking up to the backend's
	// bounded wait.
	GetFrame(getLatest bool) (*Frame, error)
	// GetColorImage fills buf with packed pixel data. Backends without
	// raw buffer delivery fail with ErrUnsupportedOperation.
	GetColorImage(buf []byte, getLatest bool) error
	// GetNumberOfImages returns the count for finite sources and
	// ImageCountUnbounded for live streams.
	GetNumberOfImages() int

	GetProperty(id PropertyID) (config.Value, error)
	SetProperty(id PropertyID, value config.Value) error
	// SetPropertyDefaults resets every property to the backend default
	// in one sweep, reporting the first property that failed.
	SetPropertyDefaults() error

	GetCameraType() config.CameraType
	// PrintCameraInformation writes a human readable parameter dump.
	// Diagnostic only, not machine parseable.
	PrintCameraInformation(w io.Writer) error
	// SaveParameters persists the current parameter store to filename
	// in the loadable schema.
	SaveParameters(filename string) error

	// SetPathToImages and ResetImages are meaningful for replay style
	// backends only; others treat them as successful no-ops.
	SetPathToImages(path string) error
	ResetImages() error
}
