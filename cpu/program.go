package cpu

import (
	"encoding/binary"
	"iter"
)

// Opcode is a line of assembled code with its source location and
// machine word.
type Opcode struct {
	LineNo    int
	Pc        uint32
	Words     []string
	Code      uint32
	LinkLabel string
}

// Program is an assembled listing.
type Program struct {
	Opcodes []Opcode
}

type Debug struct {
	*Opcode
}

// Debug finds the opcode assembled at a byte address.
func (prog *Program) Debug(pc uint32) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if op.Pc == pc {
			dbg = Debug{Opcode: &prog.Opcodes[n]}
			break
		}
	}

	return
}

// Binary is the big-endian program image, loadable at address zero.
func (prog *Program) Binary() (bins []byte) {
	bins = make([]byte, 0, len(prog.Opcodes)*WORD_BYTES)
	for _, code := range prog.Codes() {
		bins = binary.BigEndian.AppendUint32(bins, code)
	}

	return
}

// Codes iterates over the byte address and machine word of each opcode.
func (prog *Program) Codes() iter.Seq2[uint32, uint32] {
	return func(yield func(pc uint32, code uint32) bool) {
		for _, op := range prog.Opcodes {
			if !yield(op.Pc, op.Code) {
				return
			}
		}
	}
}
