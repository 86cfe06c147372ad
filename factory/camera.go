// Package factory provides the named constructors producing camera
// handles. Construction allocates an UNINITIALIZED handle and never
// touches hardware.
package factory

import (
	"fmt"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/axiscam"
	"github.com/ipa-rmb-ds/cob-driver/camera/iccam"
	"github.com/ipa-rmb-ds/cob-driver/camera/opencvcam"
	"github.com/ipa-rmb-ds/cob-driver/camera/pikecam"
	"github.com/ipa-rmb-ds/cob-driver/camera/ueyecam"
	"github.com/ipa-rmb-ds/cob-driver/camera/virtualcam"
	"github.com/ipa-rmb-ds/cob-driver/config"
)

var l = gogger.New("factory")

func NewVirtualCam() camera.Camera {
	return virtualcam.New()
}

func NewICCam() camera.Camera {
	return iccam.New()
}

func NewAxisCam() camera.Camera {
	return axiscam.New()
}

func NewAVTPikeCam() camera.Camera {
	return pikecam.New()
}

func NewOpenCVCam() camera.Camera {
	return opencvcam.New()
}

func NewIDSuEyeCam() camera.Camera {
	return ueyecam.New()
}

// FromType builds the backend for a configured camera type.
func FromType(t config.CameraType) (camera.Camera, error) {
	switch t {
	case config.CameraTypeVirtual:
		return NewVirtualCam(), nil
	case config.CameraTypeIC:
		return NewICCam(), nil
	case config.CameraTypeAxis:
		return NewAxisCam(), nil
	case config.CameraTypeAVTPike:
		return NewAVTPikeCam(), nil
	case config.CameraTypeOpenCV:
		return NewOpenCVCam(), nil
	case config.CameraTypeIDSuEye:
		return NewIDSuEyeCam(), nil
	}
	return nil, fmt.Errorf("unknown camera type: %q", t)
}

// FromConfig reads the camera type out of the configuration directory
// and builds the matching uninitialized backend. The caller still runs
// Init to load the parameters into the handle.
func FromConfig(directory string, cameraIndex int) (camera.Camera, error) {
	params, err := config.LoadFromDirectory(directory, cameraIndex)
	if err != nil {
		return nil, err
	}
	l.Info().Printf("camera %d is a %q camera", cameraIndex, params.Type)
	return FromType(params.Type)
}
