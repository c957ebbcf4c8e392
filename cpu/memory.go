package cpu

import (
	"fmt"
	"iter"
	"maps"
)

const (
	WORD_BYTES = 4 // Bytes per word.

	REGISTER_COUNT = 34 // $0..$31, $HI and $LO
	REG_ZERO       = 0  // Hard wired to zero.
	REG_STACK      = 30 // Stack pointer, by convention.
	REG_LINK       = 31 // Return address, by convention.
	REG_HI         = 32 // High word of mult, remainder of div.
	REG_LO         = 33 // Low word of mult, quotient of div.

	MAX_ADDRESS = uint32(0x0100_0000)           // Top of RAM and initial stack pointer.
	RAM_WORDS   = int(MAX_ADDRESS/WORD_BYTES) + 1 // Words of RAM, including MAX_ADDRESS itself.
)

var _memory_defines = map[string]string{
	"MAX_ADDRESS": fmt.Sprintf("0x%x", MAX_ADDRESS),
	"REG_STACK":   fmt.Sprintf("%v", REG_STACK),
	"REG_LINK":    fmt.Sprintf("%v", REG_LINK),
}

// Defines for the memory layout.
func Defines() iter.Seq2[string, string] {
	return maps.All(_memory_defines)
}

// Cell is a rendering of a single register or RAM word.
type Cell struct {
	Tag     string // $n, $HI, $LO or M[0x...]
	Word    uint32
	Details string
}

// Hex is the zero padded hexadecimal form of the word.
func (c Cell) Hex() string {
	return fmt.Sprintf("0x%08x", c.Word)
}

// Binary is the 32 digit binary form of the word.
func (c Cell) Binary() string {
	return fmt.Sprintf("%032b", c.Word)
}

func (c Cell) String() string {
	return c.Tag + ": " + c.Details
}

// Registers is the register file. $0 always reads as zero.
type Registers struct {
	word [REGISTER_COUNT]uint32
}

func checkRegister(index int) {
	if index < 0 || index >= REGISTER_COUNT {
		panic(fmt.Sprintf("cpu: register %d outside 0..%d", index, REGISTER_COUNT-1))
	}
}

// Read a register.
func (r *Registers) Read(index int) uint32 {
	checkRegister(index)
	return r.word[index]
}

// Write a register. Writes to $0 are discarded.
func (r *Registers) Write(index int, value uint32) {
	checkRegister(index)
	if index == REG_ZERO {
		return
	}
	r.word[index] = value
}

// Reset zeros all registers.
func (r *Registers) Reset() {
	clear(r.word[:])
}

// RegisterTag is the display name of a register.
func RegisterTag(index int) string {
	switch index {
	case REG_HI:
		return "$HI"
	case REG_LO:
		return "$LO"
	}
	return fmt.Sprintf("$%d", index)
}

// Cell renders a register.
func (r *Registers) Cell(index int) Cell {
	word := r.Read(index)
	return Cell{
		Tag:     RegisterTag(index),
		Word:    word,
		Details: fmt.Sprintf("<Register %-4s> : %032b", RegisterTag(index), word),
	}
}

// All iterates over the register file in index order.
func (r *Registers) All() iter.Seq2[int, uint32] {
	return func(yield func(int, uint32) bool) {
		for n, word := range r.word {
			if !yield(n, word) {
				return
			}
		}
	}
}

// Ram is the word addressed main memory. Every written word keeps its
// decoded instruction, refreshed on each write.
type Ram struct {
	word []uint32
	code map[int]Instruction
}

// NewRam allocates a RAM of a number of words.
func NewRam(words int) *Ram {
	return &Ram{
		word: make([]uint32, words),
		code: make(map[int]Instruction),
	}
}

// Size is the capacity in words.
func (ram *Ram) Size() int {
	return len(ram.word)
}

func (ram *Ram) index(addr Address) (index int, err error) {
	index = addr.WordIndex()
	if index < 0 || index >= len(ram.word) {
		err = fmt.Errorf("%w: %v", ErrMemoryRange, addr)
	}
	return
}

// Read a word of memory.
func (ram *Ram) Read(addr Address) (value uint32, err error) {
	index, err := ram.index(addr)
	if err != nil {
		return
	}

	value = ram.word[index]
	return
}

// Write a word of memory, and decode it.
func (ram *Ram) Write(addr Address, value uint32) (err error) {
	index, err := ram.index(addr)
	if err != nil {
		return
	}

	ram.word[index] = value
	if value == 0 {
		delete(ram.code, index)
	} else {
		ram.code[index] = Decode(value, addr)
	}
	return
}

// Instruction is the decoded form of the word at an address.
func (ram *Ram) Instruction(addr Address) (inst Instruction, err error) {
	index, err := ram.index(addr)
	if err != nil {
		return
	}

	inst, ok := ram.code[index]
	if !ok {
		inst = Decode(0, addr)
	}
	return
}

// Reset zeros all of memory.
func (ram *Ram) Reset() {
	clear(ram.word)
	clear(ram.code)
}

// Cell renders a word of memory.
func (ram *Ram) Cell(addr Address) (cell Cell, err error) {
	inst, err := ram.Instruction(addr)
	if err != nil {
		return
	}

	cell = Cell{
		Tag:     fmt.Sprintf("M[%v]", addr.HexSimple()),
		Word:    inst.Word,
		Details: inst.String(),
	}
	return
}

// All iterates over the non-zero words of memory in address order.
func (ram *Ram) All() iter.Seq2[Address, uint32] {
	return func(yield func(Address, uint32) bool) {
		for n, word := range ram.word {
			if word == 0 {
				continue
			}
			if !yield(Address{value: uint32(n) * WORD_BYTES}, word) {
				return
			}
		}
	}
}
