// Package trigger abstracts the hardware synchronization line a
// master-role camera pulses to clock its slaves.
package trigger

type Trigger interface {
	Open() error
	// Fire emits one synchronization pulse.
	Fire() error
	Close() error
}
