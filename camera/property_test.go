package camera

import (
	"errors"
	"testing"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

func TestValidateProperty(t *testing.T) {
	if err := ValidateProperty(PropGain, config.Number(100)); err != nil {
		t.Fatal(err)
	}
	if err := ValidateProperty(PropGain, config.Auto()); err != nil {
		t.Fatal("AUTO must be valid for every property:", err)
	}
	if err := ValidateProperty(PropGain, config.Default()); err != nil {
		t.Fatal("DEFAULT must be valid for every property:", err)
	}

	if err := ValidateProperty("focus", config.Number(1)); !errors.Is(err, ErrUnsupportedProperty) {
		t.Fatalf("got %v, want ErrUnsupportedProperty", err)
	}
	if err := ValidateProperty(PropImageWidth, config.Number(-640)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue", err)
	}
	if err := ValidateProperty(PropImageWidth, config.Number(640.5)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue for a fractional dimension", err)
	}
}

func TestSetParameterIsAtomic(t *testing.T) {
	var p config.CameraParameters

	if err := SetParameter(&p, PropBrightness, config.Number(200)); err != nil {
		t.Fatal(err)
	}
	if err := SetParameter(&p, PropBrightness, config.Number(-5)); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("got %v, want ErrInvalidValue", err)
	}

	v, err := GetParameter(&p, PropBrightness)
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.Float(); !ok || n != 200 {
		t.Fatalf("brightness = %s, the previous value must survive a rejected set", v)
	}
}

func TestParsePropertyID(t *testing.T) {
	id, err := ParsePropertyID("exposure_time")
	if err != nil {
		t.Fatal(err)
	}
	if id != PropExposureTime {
		t.Fatalf("got %q", id)
	}
	if _, err := ParsePropertyID("zoom"); !errors.Is(err, ErrUnsupportedProperty) {
		t.Fatalf("got %v, want ErrUnsupportedProperty", err)
	}
}

func TestBaseDefaultsSweep(t *testing.T) {
	b := NewBase(config.CameraTypeVirtual)

	if err := b.SetProperty(PropGain, config.Number(42)); err != nil {
		t.Fatal(err)
	}
	if err := b.SetPropertyDefaults(); err != nil {
		t.Fatal(err)
	}

	for _, id := range PropertyIDs() {
		v, err := b.GetProperty(id)
		if err != nil {
			t.Fatal(err)
		}
		if !v.IsDefault() {
			t.Fatalf("%s = %s after the defaults sweep", id, v)
		}
	}
}

func TestBaseStubs(t *testing.T) {
	b := NewBase(config.CameraTypeAxis)

	if b.GetCameraType() != config.CameraTypeAxis {
		t.Fatalf("camera type = %q", b.GetCameraType())
	}
	if b.IsInitialized() || b.IsOpen() {
		t.Fatal("a fresh handle must be uninitialized and closed")
	}
	if err := b.EnsureInitialized(); !errors.Is(err, ErrOpen) || !errors.Is(err, ErrInit) {
		t.Fatalf("got %v, want ErrOpen wrapping ErrInit", err)
	}
	if err := b.GetColorImage(nil, true); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("got %v, want ErrUnsupportedOperation", err)
	}
	if n := b.GetNumberOfImages(); n != ImageCountUnbounded {
		t.Fatalf("got %d, want the unbounded sentinel", n)
	}
	if err := b.SetPathToImages("/tmp"); err != nil {
		t.Fatal(err)
	}
	if err := b.ResetImages(); err != nil {
		t.Fatal(err)
	}
}
