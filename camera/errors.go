package camera

import "errors"

var (
	// ErrInit wraps every Init failure, including configuration errors.
	ErrInit = errors.New("camera: init failed")
	// ErrOpen wraps Open failures: device absent, busy, permission
	// denied or unsupported mode.
	ErrOpen = errors.New("camera: open failed")
	// ErrNotOpen rejects acquisition and live property access before
	// Open (or after Close).
	ErrNotOpen = errors.New("camera: not open")
	// ErrUnsupportedProperty rejects unknown property identifiers.
	ErrUnsupportedProperty = errors.New("camera: unsupported property")
	// ErrInvalidValue rejects values outside a property's domain. The
	// previous value stays intact.
	ErrInvalidValue = errors.New("camera: invalid property value")
	// ErrTimeout signals that no frame arrived within the bounded wait.
	ErrTimeout = errors.New("camera: frame wait timed out")
	// ErrUnsupportedOperation signals an operation a backend does not
	// implement, such as raw buffer delivery.
	ErrUnsupportedOperation = errors.New("camera: unsupported operation")
)
