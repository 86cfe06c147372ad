package camera

import (
	"fmt"
	"io"

	"github.com/ipa-rmb-ds/cob-driver/config"
)

// Exercise drives a handle through the full lifecycle once and writes
// what happened to w. It is the smoke test every backend can run
// against a real configuration directory.
func Exercise(cam Camera, directory string, cameraIndex int, w io.Writer) error {
	if err := cam.Init(directory, cameraIndex); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	fmt.Fprintln(w, "initialized:", cam.IsInitialized())

	if err := cam.Open(); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			fmt.Fprintln(w, "close:", err)
		}
	}()
	fmt.Fprintln(w, "open:", cam.IsOpen())

	if err := cam.PrintCameraInformation(w); err != nil {
		return fmt.Errorf("print information: %w", err)
	}

	frame, err := cam.GetFrame(true)
	if err != nil {
		return fmt.Errorf("get latest frame: %w", err)
	}
	fmt.Fprintf(w, "frame %d: %dx%d %s, %d bytes\n",
		frame.Seq, frame.Width, frame.Height, frame.ColorMode, len(frame.Pixels))

	for _, id := range []PropertyID{PropBrightness, PropGain} {
		v, err := cam.GetProperty(id)
		if err != nil {
			return fmt.Errorf("get %s: %w", id, err)
		}
		if err := cam.SetProperty(id, v); err != nil {
			return fmt.Errorf("set %s back to %s: %w", id, v, err)
		}
	}

	if n := cam.GetNumberOfImages(); n != ImageCountUnbounded {
		fmt.Fprintln(w, "stored images:", n)
	} else {
		fmt.Fprintln(w, "stored images: unbounded")
	}

	if err := cam.SetProperty(PropBrightness, config.Auto()); err != nil {
		return fmt.Errorf("set brightness to auto: %w", err)
	}

	return nil
}
