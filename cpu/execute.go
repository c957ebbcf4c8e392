package cpu

import (
	"fmt"
	"iter"
	"maps"
)

// Memory mapped I/O.
const (
	STDIN_ADDRESS  = uint32(0xffff_0004) // lw reads a byte of input.
	STDOUT_ADDRESS = uint32(0xffff_000c) // sw writes the low byte of $t.
	EOF            = int32(-1)           // lw from STDIN_ADDRESS at end of input.
)

var _execute_defines = map[string]string{
	"STDIN":  fmt.Sprintf("0x%x", STDIN_ADDRESS),
	"STDOUT": fmt.Sprintf("0x%x", STDOUT_ADDRESS),
}

// ExecuteDefines are the memory mapped I/O addresses.
func ExecuteDefines() iter.Seq2[string, string] {
	return maps.All(_execute_defines)
}

// Machine is the state an instruction executes against.
//
// Every setter must record the prior value before committing the new one.
type Machine interface {
	// Register reads a register.
	Register(index int) uint32
	// Memory reads a word of RAM.
	Memory(addr Address) (uint32, error)
	// SetRegister writes a register.
	SetRegister(index int, value uint32)
	// SetMemory writes a word of RAM.
	SetMemory(addr Address, value uint32) error
	// SetPc replaces the program counter with the result of next,
	// which is passed the current program counter.
	SetPc(next func(pc Address) (Address, error)) error
	// Input reads a byte of input, or EOF.
	Input() int32
	// Output writes a byte of output.
	Output(value byte) error
}

// effectiveAddress is $s + immediate.
func (inst Instruction) effectiveAddress(m Machine) (Address, error) {
	value := m.Register(inst.RegS()) + uint32(int32(inst.Immediate()))
	return NewAddress(value)
}

// Execute performs the instruction against a machine.
//
// Division by zero is not trapped; it panics as Go integer division does.
func (inst Instruction) Execute(m Machine) (err error) {
	s := inst.RegS()
	t := inst.RegT()
	d := inst.RegD()

	switch inst.Op {
	case OP_ADD:
		m.SetRegister(d, m.Register(s)+m.Register(t))
	case OP_SUB:
		m.SetRegister(d, m.Register(s)-m.Register(t))
	case OP_SLT:
		var lt uint32
		if int32(m.Register(s)) < int32(m.Register(t)) {
			lt = 1
		}
		m.SetRegister(d, lt)
	case OP_SLTU:
		var lt uint32
		if m.Register(s) < m.Register(t) {
			lt = 1
		}
		m.SetRegister(d, lt)
	case OP_MULT:
		product := int64(int32(m.Register(s))) * int64(int32(m.Register(t)))
		m.SetRegister(REG_HI, uint32(uint64(product)>>32))
		m.SetRegister(REG_LO, uint32(product))
	case OP_MULTU:
		product := uint64(m.Register(s)) * uint64(m.Register(t))
		m.SetRegister(REG_HI, uint32(product>>32))
		m.SetRegister(REG_LO, uint32(product))
	case OP_DIV:
		vs := int32(m.Register(s))
		vt := int32(m.Register(t))
		quotient := vs / vt
		remainder := vs % vt
		m.SetRegister(REG_HI, uint32(remainder))
		m.SetRegister(REG_LO, uint32(quotient))
	case OP_DIVU:
		vs := m.Register(s)
		vt := m.Register(t)
		quotient := vs / vt
		remainder := vs % vt
		m.SetRegister(REG_HI, remainder)
		m.SetRegister(REG_LO, quotient)
	case OP_BEQ, OP_BNE:
		taken := m.Register(s) == m.Register(t)
		if inst.Op == OP_BNE {
			taken = !taken
		}
		offset := int(inst.Immediate())
		err = m.SetPc(func(pc Address) (Address, error) {
			if !taken {
				return pc, nil
			}
			return pc.Add(offset)
		})
	case OP_LW:
		var addr Address
		addr, err = inst.effectiveAddress(m)
		if err != nil {
			return
		}
		var value uint32
		if addr.Value() == STDIN_ADDRESS {
			value = uint32(m.Input())
		} else {
			value, err = m.Memory(addr)
			if err != nil {
				return
			}
		}
		m.SetRegister(t, value)
	case OP_SW:
		var addr Address
		addr, err = inst.effectiveAddress(m)
		if err != nil {
			return
		}
		value := m.Register(t)
		if addr.Value() == STDOUT_ADDRESS {
			err = m.Output(byte(value))
		} else {
			err = m.SetMemory(addr, value)
		}
	case OP_MFHI:
		m.SetRegister(d, m.Register(REG_HI))
	case OP_MFLO:
		m.SetRegister(d, m.Register(REG_LO))
	case OP_LIS:
		err = m.SetPc(func(pc Address) (next Address, err error) {
			value, err := m.Memory(pc)
			if err != nil {
				return
			}
			m.SetRegister(d, value)
			return pc.Add(1)
		})
	case OP_JR:
		var target Address
		target, err = NewAddress(m.Register(s))
		if err != nil {
			return
		}
		err = m.SetPc(func(pc Address) (Address, error) {
			return target, nil
		})
	case OP_JALR:
		var target Address
		target, err = NewAddress(m.Register(s))
		if err != nil {
			return
		}
		err = m.SetPc(func(pc Address) (Address, error) {
			m.SetRegister(REG_LINK, pc.Value())
			return target, nil
		})
	default:
		err = &ErrCode{Op: inst.Op, Word: inst.Word, Err: ErrExecuteWord}
	}

	return
}
