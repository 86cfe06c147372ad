package firewire

import (
	"fmt"

	"github.com/ipa-rmb-ds/cob-driver/config"
	"github.com/ipa-rmb-ds/cob-driver/trigger"
	"github.com/ipa-rmb-ds/cob-driver/trigger/serialport"
)

// DefaultCommand builds the ffmpeg/libdc1394 capture command unless
// the configuration carries an explicit pipeline.
func DefaultCommand(params *config.CameraParameters) []string {
	if len(params.Pipeline) > 0 {
		return params.Pipeline
	}

	src := params.Source
	if src == "" {
		src = "/dev/fw0"
	}

	cmd := []string{"ffmpeg", "-f", "libdc1394"}
	if fps, ok := params.FrameRate.Float(); ok {
		cmd = append(cmd, "-framerate", fmt.Sprintf("%g", fps))
	}
	if w, ok := params.ImageWidth.Int(); ok {
		if h, ok := params.ImageHeight.Int(); ok {
			cmd = append(cmd, "-video_size", fmt.Sprintf("%dx%d", w, h))
		}
	}
	cmd = append(cmd, "-i", src, "-f", "mjpeg", "-")
	return cmd
}

// CheckColorMode rejects color modes the decoded pipeline cannot
// deliver.
func CheckColorMode(mode config.ColorMode) error {
	switch mode {
	case config.RGB8, config.Mono8:
		return nil
	}
	return fmt.Errorf("pipeline capture delivers %s or %s frames, configured %s",
		config.RGB8, config.Mono8, mode)
}

// SyncLine builds the master-role trigger, or nil when none is
// configured.
func SyncLine(params *config.CameraParameters) trigger.Trigger {
	if params.Role != config.RoleMaster || params.TriggerPort == "" {
		return nil
	}
	return serialport.New(params.TriggerPort, params.TriggerBaud)
}
