// Package firewire runs the external IEEE1394 capture pipeline shared
// by the AVT Pike and Imaging Source backends. The pipeline command
// (libdc1394 grab tool, ffmpeg, ...) writes MJPEG to stdout; frames
// are scanned out of the stream into a bounded ring buffer.
package firewire

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/mjpeg"
	"github.com/ipa-rmb-ds/cob-driver/config"
	"github.com/ipa-rmb-ds/cob-driver/trigger"
)

var l = gogger.New("camera.firewire")

// Pipeline owns the capture process and its frame buffer.
type Pipeline struct {
	locker sync.Mutex

	Command     []string
	ColorMode   config.ColorMode
	BufferSize  int
	NextTimeout time.Duration

	// Sync is the optional master-role synchronization line, pulsed
	// once per acquisition request.
	Sync trigger.Trigger

	process *exec.Cmd
	ring    *camera.Ring
}

func (p *Pipeline) Start() error {
	p.locker.Lock()
	defer p.locker.Unlock()

	if p.process != nil {
		return nil
	}
	if len(p.Command) == 0 {
		return fmt.Errorf("capture pipeline is not configured")
	}
	if p.NextTimeout == 0 {
		p.NextTimeout = camera.DefaultNextTimeout
	}

	cmd := exec.Command(p.Command[0], p.Command[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	ring := camera.NewRing(p.BufferSize)

	go func() {
		scanner := mjpeg.NewJPEGScanner()
		err := scanner.Scan(stdout, func(data []byte) {
			img, err := jpeg.Decode(bytes.NewReader(data))
			if err != nil {
				l.Verbose().Println("decode frame:", err)
				return
			}
			frame, err := camera.FrameFromImage(img, p.ColorMode)
			if err != nil {
				l.Error().Println("convert frame:", err)
				return
			}
			ring.Push(frame)
		})
		if err != nil {
			l.Verbose().Println("pipeline stdout:", err)
		}
	}()

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := stderr.Read(buf)
			if err != nil {
				return
			}
			l.Verbose().Print(string(buf[:n]))
		}
	}()

	if p.Sync != nil {
		if err := p.Sync.Open(); err != nil {
			return fmt.Errorf("open sync line: %w", err)
		}
	}

	l.Verbose().Println("starting", p.Command)

	if err := cmd.Start(); err != nil {
		if p.Sync != nil {
			_ = p.Sync.Close()
		}
		return err
	}

	p.process = cmd
	p.ring = ring

	return nil
}

func (p *Pipeline) Stop() error {
	p.locker.Lock()
	defer p.locker.Unlock()

	if p.process == nil {
		return nil
	}

	if p.Sync != nil {
		if err := p.Sync.Close(); err != nil {
			l.Warn().Println("closing sync line:", err)
		}
	}

	err := p.process.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		err = nil
	}
	go func(cmd *exec.Cmd) {
		// reap, the exit status is uninteresting
		_ = cmd.Wait()
	}(p.process)

	p.process = nil
	p.ring.Close()

	return err
}

// Acquire returns the latest or the next frame, pulsing the sync line
// first when one is attached.
func (p *Pipeline) Acquire(getLatest bool) (*camera.Frame, error) {
	p.locker.Lock()
	ring := p.ring
	p.locker.Unlock()

	if ring == nil {
		return nil, camera.ErrNotOpen
	}

	if p.Sync != nil {
		if err := p.Sync.Fire(); err != nil {
			return nil, fmt.Errorf("sync pulse: %w", err)
		}
	}

	if getLatest {
		return ring.Latest(p.NextTimeout)
	}
	return ring.Next(p.NextTimeout)
}
