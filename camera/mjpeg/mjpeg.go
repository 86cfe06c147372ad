// Package mjpeg extracts JPEG frames out of a raw byte stream, as
// produced by external capture pipelines writing MJPEG to stdout.
package mjpeg

import (
	"bytes"
	"errors"
	"io"
)

var (
	// SOI and EOI are the JPEG start/end-of-image markers.
	SOI = []byte{0xFF, 0xD8}
	EOI = []byte{0xFF, 0xD9}
)

// Scanner splits a stream on start/end markers and hands every
// complete frame to the emit callback. Emitted slices are fresh
// copies, never reused by the scanner.
type Scanner struct {
	Start []byte
	End   []byte
}

// NewJPEGScanner scans on the JPEG image markers.
func NewJPEGScanner() *Scanner {
	return &Scanner{Start: SOI, End: EOI}
}

// Scan reads r until EOF or error, emitting every complete frame.
// Markers may straddle read boundaries. The EOF ending the stream is
// not reported as an error; a trailing incomplete frame is dropped.
func (s *Scanner) Scan(r io.Reader, emit func(frame []byte)) error {
	var pending []byte
	started := false

	buf := make([]byte, 32*1024)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)

			for {
				if !started {
					index := bytes.Index(pending, s.Start)
					if index == -1 {
						// keep a possible marker prefix at the tail
						if keep := len(s.Start) - 1; len(pending) > keep {
							pending = append(pending[:0], pending[len(pending)-keep:]...)
						}
						break
					}
					pending = pending[index:]
					started = true
				}

				index := bytes.Index(pending[len(s.Start):], s.End)
				if index == -1 {
					break
				}

				end := len(s.Start) + index + len(s.End)
				frame := make([]byte, end)
				copy(frame, pending[:end])
				emit(frame)

				pending = append(pending[:0], pending[end:]...)
				started = false
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
