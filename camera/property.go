package camera

import (
	"fmt"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

// PropertyID names a single runtime-tunable camera property.
type PropertyID string

const (
	PropFrameRate     PropertyID = "frame_rate"
	PropShutter       PropertyID = "shutter"
	PropWhiteBalanceU PropertyID = "white_balance_u"
	PropWhiteBalanceV PropertyID = "white_balance_v"
	PropHue           PropertyID = "hue"
	PropSaturation    PropertyID = "saturation"
	PropGamma         PropertyID = "gamma"
	PropExposureTime  PropertyID = "exposure_time"
	PropGain          PropertyID = "gain"
	PropBrightness    PropertyID = "brightness"
	PropImageWidth    PropertyID = "image_width"
	PropImageHeight   PropertyID = "image_height"
)

type propertySpec struct {
	min, max float64
	integer  bool
	get      func(*config.CameraParameters) config.Value
	set      func(*config.CameraParameters, config.Value)
}

// Cross-backend property domains. Backends may restrict these further
// but never widen them.
var properties = map[PropertyID]propertySpec{
	PropFrameRate: {min: 0.01, max: 240,
		get: func(p *config.CameraParameters) config.Value { return p.FrameRate },
		set: func(p *config.CameraParameters, v config.Value) { p.FrameRate = v }},
	PropShutter: {min: 0, max: 4095,
		get: func(p *config.CameraParameters) config.Value { return p.Shutter },
		set: func(p *config.CameraParameters, v config.Value) { p.Shutter = v }},
	PropWhiteBalanceU: {min: 0, max: 1023,
		get: func(p *config.CameraParameters) config.Value { return p.WhiteBalanceU },
		set: func(p *config.CameraParameters, v config.Value) { p.WhiteBalanceU = v }},
	PropWhiteBalanceV: {min: 0, max: 1023,
		get: func(p *config.CameraParameters) config.Value { return p.WhiteBalanceV },
		set: func(p *config.CameraParameters, v config.Value) { p.WhiteBalanceV = v }},
	PropHue: {min: -180, max: 180,
		get: func(p *config.CameraParameters) config.Value { return p.Hue },
		set: func(p *config.CameraParameters, v config.Value) { p.Hue = v }},
	PropSaturation: {min: 0, max: 1023,
		get: func(p *config.CameraParameters) config.Value { return p.Saturation },
		set: func(p *config.CameraParameters, v config.Value) { p.Saturation = v }},
	PropGamma: {min: 0, max: 10,
		get: func(p *config.CameraParameters) config.Value { return p.Gamma },
		set: func(p *config.CameraParameters, v config.Value) { p.Gamma = v }},
	PropExposureTime: {min: 0, max: 1 << 20,
		get: func(p *config.CameraParameters) config.Value { return p.ExposureTime },
		set: func(p *config.CameraParameters, v config.Value) { p.ExposureTime = v }},
	PropGain: {min: 0, max: 4095,
		get: func(p *config.CameraParameters) config.Value { return p.Gain },
		set: func(p *config.CameraParameters, v config.Value) { p.Gain = v }},
	PropBrightness: {min: 0, max: 4095,
		get: func(p *config.CameraParameters) config.Value { return p.Brightness },
		set: func(p *config.CameraParameters, v config.Value) { p.Brightness = v }},
	PropImageWidth: {min: 1, max: 1 << 16, integer: true,
		get: func(p *config.CameraParameters) config.Value { return p.ImageWidth },
		set: func(p *config.CameraParameters, v config.Value) { p.ImageWidth = v }},
	PropImageHeight: {min: 1, max: 1 << 16, integer: true,
		get: func(p *config.CameraParameters) config.Value { return p.ImageHeight },
		set: func(p *config.CameraParameters, v config.Value) { p.ImageHeight = v }},
}

// PropertyIDs lists every property of the base contract in a stable
// order.
func PropertyIDs() []PropertyID {
	return []PropertyID{
		PropFrameRate, PropShutter,
		PropWhiteBalanceU, PropWhiteBalanceV,
		PropHue, PropSaturation, PropGamma,
		PropExposureTime, PropGain, PropBrightness,
		PropImageWidth, PropImageHeight,
	}
}

// ValidateProperty checks id against the base contract and value
// against the property's domain. AUTO and DEFAULT are valid for every
// property.
func ValidateProperty(id PropertyID, value config.Value) error {
	spec, ok := properties[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedProperty, id)
	}
	n, explicit := value.Float()
	if !explicit {
		return nil
	}
	if n < spec.min || n > spec.max {
		return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrInvalidValue, id, n, spec.min, spec.max)
	}
	if spec.integer && n != float64(int(n)) {
		return fmt.Errorf("%w: %s=%g must be an integer", ErrInvalidValue, id, n)
	}
	return nil
}

// GetParameter reads one property out of a parameter store.
func GetParameter(p *config.CameraParameters, id PropertyID) (config.Value, error) {
	spec, ok := properties[id]
	if !ok {
		return config.Value{}, fmt.Errorf("%w: %q", ErrUnsupportedProperty, id)
	}
	return spec.get(p), nil
}

// SetParameter validates and stores one property. The update is atomic
// per property: on failure the stored value is untouched.
func SetParameter(p *config.CameraParameters, id PropertyID, value config.Value) error {
	if err := ValidateProperty(id, value); err != nil {
		return err
	}
	properties[id].set(p, value)
	return nil
}

// ParsePropertyID maps a property name to its PropertyID.
func ParsePropertyID(name string) (PropertyID, error) {
	id := PropertyID(name)
	if _, ok := properties[id]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProperty, name)
	}
	return id, nil
}
