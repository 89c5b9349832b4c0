// Package dnc implements the memory of a differentiable
// neural computer: an N x W memory matrix which a
// recurrent controller reads from and writes to through
// soft, content- and history-based addresses.
//
// Every memory operation is a smooth function of the
// controller's interface outputs, so nothing in this
// package ever branches on an address or hard-writes
// a location.
package dnc

import (
	"errors"
	"fmt"
)

// ErrInterfaceSize is returned when a raw interface vector
// does not match the layout for the configured (W, R).
var ErrInterfaceSize = errors.New("interface vector has wrong size")

// Config describes the fixed geometry of a memory.
type Config struct {
	// MemorySize is the number of memory locations (N).
	MemorySize int

	// WordSize is the width of each location (W).
	WordSize int

	// ReadHeads is the number of read heads (R).
	ReadHeads int
}

// Validate returns an error if any dimension is not
// positive.
func (c Config) Validate() error {
	if c.MemorySize <= 0 {
		return fmt.Errorf("invalid memory size: %d", c.MemorySize)
	}
	if c.WordSize <= 0 {
		return fmt.Errorf("invalid word size: %d", c.WordSize)
	}
	if c.ReadHeads <= 0 {
		return fmt.Errorf("invalid read head count: %d", c.ReadHeads)
	}
	return nil
}

// ReadSize returns the length of the flattened read
// vectors, W*R.
func (c Config) ReadSize() int {
	return c.WordSize * c.ReadHeads
}
