// Package io provides the byte oriented I/O channels behind the memory
// mapped I/O addresses of the simulator.
package io

// Channel is a byte stream attached to the processor.
type Channel interface {
	// Rewind resets the channel to its initial state, if possible.
	Rewind()
	// Read returns the next byte of input, or EOF when exhausted.
	Read() int32
	// Write sends a single byte of output.
	Write(value byte) error
}
