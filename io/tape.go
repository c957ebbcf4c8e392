package io

import (
	"errors"
	"io"
)

// Tape provides sequential byte I/O over an io.Reader for input and an
// io.Writer for output. A nil Input reads as end of input.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	read    int
	written int
}

var _ Channel = (*Tape)(nil)

// MAX_EMPTY_READS bounds the (0, nil) reads tolerated from Input.
const MAX_EMPTY_READS = 100

// Rewind is not possible on a tape; it only resets the counters.
func (tc *Tape) Rewind() {
	tc.read = 0
	tc.written = 0
}

// Read returns the next byte of the input stream, or EOF.
func (tc *Tape) Read() int32 {
	if tc.Input == nil {
		return EOF
	}

	var one [1]byte
	for range MAX_EMPTY_READS {
		n, err := tc.Input.Read(one[:])
		if n == 1 {
			tc.read++
			return int32(one[0])
		}
		if err != nil {
			return EOF
		}
	}

	return EOF
}

// Write sends a byte to the output stream.
func (tc *Tape) Write(value byte) (err error) {
	if tc.Output == nil {
		return ErrChannelClosed
	}

	_, err = tc.Output.Write([]byte{value})
	if err != nil {
		err = errors.Join(ErrChannelClosed, err)
		return
	}

	tc.written++
	return
}

// Count returns the number of bytes read and written since the last Rewind.
func (tc *Tape) Count() (read, written int) {
	return tc.read, tc.written
}
