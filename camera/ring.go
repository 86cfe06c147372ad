package camera

import (
	"fmt"
	"sync"
	"time"
)

// DefaultNextTimeout bounds the wait for a not-yet-captured frame.
const DefaultNextTimeout = 2 * time.Second

// Ring is the bounded frame buffer shared by the streaming backends.
// Producers push captured frames, the handle's caller consumes them
// with latest/next semantics. The buffer is owned by the backend;
// frames handed out are never overwritten in place.
type Ring struct {
	mu        sync.Mutex
	frames    []*Frame
	size      int
	seq       uint64
	delivered uint64
	notify    chan struct{}
	closed    bool
}

func NewRing(size int) *Ring {
	if size < 1 {
		size = 1
	}
	return &Ring{
		size:   size,
		notify: make(chan struct{}, 1),
	}
}

// Push stamps f with the next sequence number and appends it, dropping
// the oldest frame when the buffer is full.
func (r *Ring) Push(f *Frame) {
	r.mu.Lock()
	r.seq++
	f.Seq = r.seq
	r.frames = append(r.frames, f)
	if len(r.frames) > r.size {
		r.frames = r.frames[1:]
	}
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Close wakes pending waiters; they fail with ErrNotOpen.
func (r *Ring) Close() {
	r.mu.Lock()
	r.closed = true
	r.frames = nil
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Latest returns the most recently captured frame, discarding older
// buffered frames, waiting up to timeout for the first capture.
func (r *Ring) Latest(timeout time.Duration) (*Frame, error) {
	return r.wait(timeout, func() *Frame {
		if len(r.frames) == 0 {
			return nil
		}
		f := r.frames[len(r.frames)-1]
		r.frames = r.frames[:0]
		r.delivered = f.Seq
		return f
	})
}

// Next returns the first buffered frame strictly after the last
// delivered one; no frame is ever delivered twice. It waits up to
// timeout for a new capture and fails with ErrTimeout after that.
func (r *Ring) Next(timeout time.Duration) (*Frame, error) {
	return r.wait(timeout, func() *Frame {
		for len(r.frames) > 0 {
			f := r.frames[0]
			r.frames = r.frames[1:]
			if f.Seq > r.delivered {
				r.delivered = f.Seq
				return f
			}
		}
		return nil
	})
}

func (r *Ring) wait(timeout time.Duration, take func() *Frame) (*Frame, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrNotOpen
		}
		f := take()
		r.mu.Unlock()

		if f != nil {
			return f, nil
		}

		select {
		case <-r.notify:
		case <-deadline.C:
			return nil, fmt.Errorf("%w: no frame within %s", ErrTimeout, timeout)
		}
	}
}
