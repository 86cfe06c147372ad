// Package serialport pulses the camera synchronization line through a
// serial trigger box.
package serialport

import (
	"errors"
	"sync"

	"github.com/allape/gogger"
	"github.com/ipa-rmb-ds/cob-driver/trigger"
	"go.bug.st/serial"
)

var l = gogger.New("trigger.serialport")

// Pulse is the byte the trigger box interprets as one sync edge.
var Pulse = []byte{'T'}

type Trigger struct {
	trigger.Trigger

	openLocker  sync.Mutex
	writeLocker sync.Mutex

	port serial.Port

	Name string
	Baud int
}

func New(name string, baud int) *Trigger {
	if baud == 0 {
		baud = 9600
	}
	return &Trigger{Name: name, Baud: baud}
}

func (t *Trigger) Open() error {
	t.openLocker.Lock()
	defer t.openLocker.Unlock()

	if t.port != nil {
		return errors.New("trigger port already open")
	}

	port, err := serial.Open(t.Name, &serial.Mode{BaudRate: t.Baud})
	if err != nil {
		return err
	}
	t.port = port

	// drain whatever the box echoes back
	go func(port serial.Port) {
		buf := make([]byte, 64)
		for {
			n, err := port.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				l.Warn().Println("EOF")
				return
			}
			l.Verbose().Printf("> %q", buf[:n])
		}
	}(port)

	l.Info().Println("sync line open on", t.Name)

	return nil
}

func (t *Trigger) Fire() error {
	t.writeLocker.Lock()
	defer t.writeLocker.Unlock()

	if t.port == nil {
		return errors.New("trigger port is not open")
	}

	_, err := t.port.Write(Pulse)
	return err
}

func (t *Trigger) Close() error {
	t.openLocker.Lock()
	defer t.openLocker.Unlock()

	if t.port == nil {
		return nil
	}

	err := t.port.Close()
	t.port = nil
	return err
}
