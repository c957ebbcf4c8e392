package emulator

import (
	"log"
	"strings"

	"github.com/ezrec/mips241/cpu"
)

// Listener is notified of every state change of an Emulator, both when
// stepping forwards and when reversing.
type Listener interface {
	// RegisterUpdate reports a register write, and the value it replaced.
	RegisterUpdate(index int, prior uint32)
	// MemoryUpdate reports a memory write, and the value it replaced.
	MemoryUpdate(addr cpu.Address, prior uint32)
	// PcUpdate reports the new program counter.
	PcUpdate(pc cpu.Address)
	// InstructionRun reports a completed step, its mutations, and its
	// error (if any).
	InstructionRun(inst cpu.Instruction, frame []cpu.Mutation, err error)
}

// NopListener ignores all notifications.
type NopListener struct{}

func (NopListener) RegisterUpdate(index int, prior uint32) {}
func (NopListener) MemoryUpdate(addr cpu.Address, prior uint32) {}
func (NopListener) PcUpdate(pc cpu.Address) {}
func (NopListener) InstructionRun(inst cpu.Instruction, frame []cpu.Mutation, err error) {}

// Tracer logs each instruction run, with the state it replaced.
type Tracer struct {
	NopListener
	Logger *log.Logger // If nil, the standard logger is used.
}

func (tr *Tracer) printf(format string, args ...any) {
	if tr.Logger == nil {
		log.Printf(format, args...)
	} else {
		tr.Logger.Printf(format, args...)
	}
}

func (tr *Tracer) InstructionRun(inst cpu.Instruction, frame []cpu.Mutation, err error) {
	changes := make([]string, 0, len(frame))
	for _, m := range frame {
		if m.Kind == cpu.MUTATION_PC {
			continue
		}
		changes = append(changes, m.String())
	}

	if err != nil {
		tr.printf("%v: %-24v %v", inst.Address, inst.String(), err)
		return
	}

	tr.printf("%v: %-24v %v", inst.Address, inst.String(), strings.Join(changes, ", "))
}
