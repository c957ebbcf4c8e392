// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"encoding/binary"
	"fmt"
	"iter"
	"log"
	"maps"
	"math"
	"runtime"
	"strings"

	"github.com/ezrec/mips241/cpu"
	"github.com/ezrec/mips241/internal"
	"github.com/ezrec/mips241/io"
)

const (
	RETURN_OS = uint32(0x8123_456c) // $31 at load; reaching it terminates.
	ARRAY_GAP = 8                   // Words between the program and an array.

	REG_ARRAY_BASE   = 1 // Array address, or the first integer.
	REG_ARRAY_LENGTH = 2 // Array length, or the second integer.
)

var _emulator_defines = map[string]string{
	"RETURN_OS": fmt.Sprintf("0x%x", RETURN_OS),
}

// Emulator state. Registers + RAM + program counter + undo journal.
type Emulator struct {
	Verbose  bool     // If set, enables verbose logging.
	Listener Listener // Notified of every mutation; may be nil.

	Tape io.Tape // Standard input and output.

	Registers cpu.Registers
	Ram       *cpu.Ram
	Pc        cpu.Address
	Journal   cpu.Journal

	words int // Words in the loaded program.
}

// NewEmulator creates a new emulator with a full sized RAM.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Ram: cpu.NewRam(cpu.RAM_WORDS),
	}

	return
}

// NewTwoIntsEmulator loads a program with $1 and $2 set.
func NewTwoIntsEmulator(program []byte, first, second int32) (emu *Emulator, err error) {
	emu = NewEmulator()
	err = emu.LoadTwoInts(program, first, second)
	return
}

// NewArrayEmulator loads a program and an array of integers after it.
func NewArrayEmulator(program []byte, elements []int32) (emu *Emulator, err error) {
	emu = NewEmulator()
	err = emu.LoadArray(program, elements)
	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		cpu.Defines(),
		cpu.ExecuteDefines(),
	)
}

func (emu *Emulator) listener() Listener {
	if emu.Listener == nil {
		return NopListener{}
	}
	return emu.Listener
}

// Reset clears registers, memory, history and the program counter.
func (emu *Emulator) Reset() {
	emu.Registers.Reset()
	emu.Ram.Reset()
	emu.Journal.Reset()
	emu.Tape.Rewind()
	emu.Pc = cpu.Address{}
	emu.words = 0
}

// Load a big-endian program image at address zero.
func (emu *Emulator) Load(program []byte) (err error) {
	size := len(program)
	if size%cpu.WORD_BYTES != 0 || uint64(size) > math.MaxUint32 {
		err = fmt.Errorf("%w: program size %d", cpu.ErrInvalidAddress, size)
		return
	}

	words := size / cpu.WORD_BYTES
	if words > emu.Ram.Size() {
		err = fmt.Errorf("%w: program of %d words", cpu.ErrMemoryRange, words)
		return
	}

	emu.Reset()

	for n := range words {
		addr, _ := cpu.AddressOfWord(n)
		word := binary.BigEndian.Uint32(program[n*cpu.WORD_BYTES:])
		err = emu.Ram.Write(addr, word)
		if err != nil {
			return
		}
	}
	emu.words = words

	emu.Registers.Write(cpu.REG_LINK, RETURN_OS)
	emu.Registers.Write(cpu.REG_STACK, cpu.MAX_ADDRESS)

	if emu.Verbose {
		log.Printf("emulator: loaded %d words", words)
	}

	return
}

// LoadTwoInts loads a program, and sets $1 and $2.
func (emu *Emulator) LoadTwoInts(program []byte, first, second int32) (err error) {
	err = emu.Load(program)
	if err != nil {
		return
	}

	emu.Registers.Write(REG_ARRAY_BASE, uint32(first))
	emu.Registers.Write(REG_ARRAY_LENGTH, uint32(second))

	return
}

// LoadArray loads a program, and places an array of integers ARRAY_GAP
// words after it. $1 is set to the array address, $2 to its length.
func (emu *Emulator) LoadArray(program []byte, elements []int32) (err error) {
	err = emu.Load(program)
	if err != nil {
		return
	}

	base, err := cpu.AddressOfWord(emu.words + ARRAY_GAP)
	if err != nil {
		err = ErrArrayRange
		return
	}

	if len(elements) > 0 {
		last, _err := base.Add(len(elements) - 1)
		if _err != nil || last.Value() > cpu.MAX_ADDRESS || last.WordIndex() >= emu.Ram.Size() {
			err = ErrArrayRange
			return
		}
	}

	emu.Registers.Write(REG_ARRAY_BASE, base.Value())
	emu.Registers.Write(REG_ARRAY_LENGTH, uint32(len(elements)))

	for n, element := range elements {
		addr, _ := base.Add(n)
		err = emu.Ram.Write(addr, uint32(element))
		if err != nil {
			return
		}
	}

	return
}

// Terminated is true once the program counter has returned to the OS.
func (emu *Emulator) Terminated() bool {
	return emu.Pc.Value() == RETURN_OS
}

// History is the number of steps that can be reversed.
func (emu *Emulator) History() int {
	return emu.Journal.Len()
}

// execute runs an instruction, converting a runtime panic (ie integer
// divide by zero) into an error.
func execute(inst cpu.Instruction, m cpu.Machine) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		rerr, ok := r.(runtime.Error)
		if !ok {
			panic(r)
		}
		err = rerr
	}()

	err = inst.Execute(m)
	return
}

// Step performs a single fetch-execute cycle.
//
// A failing instruction is reported to the Listener and returned as an
// *ErrExecution; the mutations it made before failing are kept in its
// journal frame.
func (emu *Emulator) Step() (err error) {
	if emu.Terminated() {
		err = ErrTerminated
		return
	}

	pc := emu.Pc
	emu.Journal.Open()

	inst, err := emu.Ram.Instruction(pc)
	if err != nil {
		inst = cpu.Instruction{Address: pc}
	}

	m := &recorder{emu: emu}
	if err == nil {
		err = m.SetPc(func(pc cpu.Address) (cpu.Address, error) {
			return pc.Add(1)
		})
	}
	if err == nil {
		err = execute(inst, m)
	}

	if err != nil {
		err = &ErrExecution{Pc: pc, Instruction: inst, Err: err}
	}

	if emu.Verbose {
		if err != nil {
			log.Printf("emulator: %v: %v", pc, err)
		} else {
			log.Printf("emulator: %v: %v", pc, inst)
		}
	}

	frame, _ := emu.Journal.Last()
	emu.listener().InstructionRun(inst, frame, err)

	return
}

// Run steps until the program returns to the OS, or an instruction fails.
func (emu *Emulator) Run() (err error) {
	for !emu.Terminated() {
		err = emu.Step()
		if err != nil {
			return
		}
	}

	return
}

// StepBack reverses the most recent count steps.
func (emu *Emulator) StepBack(count int) (err error) {
	if count < 0 || count > emu.Journal.Len() {
		err = ErrNoHistory
		return
	}

	for range count {
		frame, _ := emu.Journal.Pop()
		for mutation := range cpu.Reversed(frame) {
			err = emu.restore(mutation)
			if err != nil {
				return
			}
		}
		if emu.Verbose {
			log.Printf("emulator: reversed to %v", emu.Pc)
		}
	}

	return
}

// restore puts back the prior state of a single mutation.
func (emu *Emulator) restore(mutation cpu.Mutation) (err error) {
	switch mutation.Kind {
	case cpu.MUTATION_REGISTER:
		index := mutation.Register()
		replaced := emu.Registers.Read(index)
		emu.Registers.Write(index, mutation.Prior)
		emu.listener().RegisterUpdate(index, replaced)
	case cpu.MUTATION_MEMORY:
		var replaced uint32
		replaced, err = emu.Ram.Read(mutation.Location)
		if err != nil {
			return
		}
		err = emu.Ram.Write(mutation.Location, mutation.Prior)
		if err != nil {
			return
		}
		emu.listener().MemoryUpdate(mutation.Location, replaced)
	case cpu.MUTATION_PC:
		emu.Pc = mutation.Location
		emu.listener().PcUpdate(emu.Pc)
	}

	return
}

// Cells iterates over the rendering of every register, then every
// non-zero word of RAM.
func (emu *Emulator) Cells() iter.Seq[cpu.Cell] {
	registers := internal.IterSeq2Map(emu.Registers.All(), func(index int, _ uint32) cpu.Cell {
		return emu.Registers.Cell(index)
	})
	memory := internal.IterSeq2Map(emu.Ram.All(), func(addr cpu.Address, _ uint32) cpu.Cell {
		cell, _ := emu.Ram.Cell(addr)
		return cell
	})

	return internal.IterSeqConcat(registers, memory)
}

// Completed renders $1..$31, four to a row.
func (emu *Emulator) Completed() string {
	var sb strings.Builder

	sb.WriteString(f("MIPS Program Completed") + "\n")
	for n := 1; n < 32; n++ {
		fmt.Fprintf(&sb, "$%02d = 0x%08x  ", n, emu.Registers.Read(n))
		if n%4 == 0 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	return sb.String()
}

// recorder is the cpu.Machine of an executing instruction. Every write
// is journaled before it is committed, then reported to the Listener.
type recorder struct {
	emu *Emulator
}

var _ cpu.Machine = (*recorder)(nil)

func (r *recorder) Register(index int) uint32 {
	return r.emu.Registers.Read(index)
}

func (r *recorder) Memory(addr cpu.Address) (uint32, error) {
	return r.emu.Ram.Read(addr)
}

func (r *recorder) SetRegister(index int, value uint32) {
	emu := r.emu

	prior := emu.Registers.Read(index)
	location, _ := cpu.AddressOfWord(index)
	emu.Journal.Record(cpu.Mutation{Kind: cpu.MUTATION_REGISTER, Location: location, Prior: prior})

	emu.Registers.Write(index, value)
	emu.listener().RegisterUpdate(index, prior)
}

func (r *recorder) SetMemory(addr cpu.Address, value uint32) (err error) {
	emu := r.emu

	prior, err := emu.Ram.Read(addr)
	if err != nil {
		return
	}
	emu.Journal.Record(cpu.Mutation{Kind: cpu.MUTATION_MEMORY, Location: addr, Prior: prior})

	err = emu.Ram.Write(addr, value)
	if err != nil {
		return
	}
	emu.listener().MemoryUpdate(addr, prior)

	return
}

func (r *recorder) SetPc(next func(pc cpu.Address) (cpu.Address, error)) (err error) {
	emu := r.emu

	emu.Journal.Record(cpu.Mutation{Kind: cpu.MUTATION_PC, Location: emu.Pc})

	pc, err := next(emu.Pc)
	if err != nil {
		return
	}

	emu.Pc = pc
	emu.listener().PcUpdate(pc)

	return
}

func (r *recorder) Input() int32 {
	return r.emu.Tape.Read()
}

func (r *recorder) Output(value byte) error {
	return r.emu.Tape.Write(value)
}
