package cpu

import (
	"fmt"
)

// Instruction is a decoded word of memory.
type Instruction struct {
	Op      Op      // Decoded variant.
	Word    uint32  // Raw machine word.
	Address Address // Where the word resides.
}

// Opcode is bits 31..26.
func (inst Instruction) Opcode() uint32 {
	return (inst.Word >> 26) & 0x3f
}

// Funct is bits 10..0.
func (inst Instruction) Funct() uint32 {
	return inst.Word & 0x7ff
}

// RegS is bits 25..21.
func (inst Instruction) RegS() int {
	return int((inst.Word >> 21) & 0x1f)
}

// RegT is bits 20..16.
func (inst Instruction) RegT() int {
	return int((inst.Word >> 16) & 0x1f)
}

// RegD is bits 15..11.
func (inst Instruction) RegD() int {
	return int((inst.Word >> 11) & 0x1f)
}

// Immediate is bits 15..0, as a two's-complement value.
func (inst Instruction) Immediate() int16 {
	return int16(inst.Word & 0xffff)
}

// MakeInstruction constructs the Op variant of a word, validating
// that the word is encoded as that variant.
func MakeInstruction(op Op, word uint32, addr Address) (inst Instruction, err error) {
	if op < 0 || int(op) >= len(_op_shape) {
		err = &ErrCode{Op: op, Word: word, Err: ErrDecodeMismatch}
		return
	}

	inst = Instruction{Op: op, Word: word, Address: addr}

	shape := _op_shape[op]
	if shape.anyOp {
		return
	}

	if inst.Opcode() != shape.opcode || (!shape.anyFunct && inst.Funct() != shape.funct) {
		err = &ErrCode{Op: op, Word: word, Err: ErrDecodeMismatch}
		return
	}

	if (shape.zeroS && inst.RegS() != 0) ||
		(shape.zeroT && inst.RegT() != 0) ||
		(shape.zeroD && inst.RegD() != 0) {
		err = &ErrCode{Op: op, Word: word, Err: ErrBadCode}
		return
	}

	return
}

// Decode a word at an address into an instruction. Words that are
// not a well formed instruction decode as OP_WORD.
func Decode(word uint32, addr Address) (inst Instruction) {
	op := OP_WORD

	opcode := (word >> 26) & 0x3f
	funct := word & 0x7ff
	s := (word >> 21) & 0x1f
	t := (word >> 16) & 0x1f
	d := (word >> 11) & 0x1f

	switch opcode {
	case OPCODE_REGISTER:
		if s == 0 && t == 0 {
			switch funct {
			case FUNCT_MFHI:
				op = OP_MFHI
			case FUNCT_MFLO:
				op = OP_MFLO
			case FUNCT_LIS:
				op = OP_LIS
			}
		}
		if op == OP_WORD && t == 0 && d == 0 {
			switch funct {
			case FUNCT_JR:
				op = OP_JR
			case FUNCT_JALR:
				op = OP_JALR
			}
		}
		if op == OP_WORD {
			switch funct {
			case FUNCT_ADD:
				op = OP_ADD
			case FUNCT_SUB:
				op = OP_SUB
			case FUNCT_SLT:
				op = OP_SLT
			case FUNCT_SLTU:
				op = OP_SLTU
			case FUNCT_MULT:
				op = OP_MULT
			case FUNCT_MULTU:
				op = OP_MULTU
			case FUNCT_DIV:
				op = OP_DIV
			case FUNCT_DIVU:
				op = OP_DIVU
			}
		}
	case OPCODE_LW:
		op = OP_LW
	case OPCODE_SW:
		op = OP_SW
	case OPCODE_BEQ:
		op = OP_BEQ
	case OPCODE_BNE:
		op = OP_BNE
	}

	inst, err := MakeInstruction(op, word, addr)
	if err != nil {
		inst = Instruction{Op: OP_WORD, Word: word, Address: addr}
	}

	return
}

// String returns the assembly language form of the instruction.
func (inst Instruction) String() string {
	op := inst.Op
	switch op {
	case OP_ADD, OP_SUB, OP_SLT, OP_SLTU:
		return fmt.Sprintf("%v $%d, $%d, $%d", op, inst.RegD(), inst.RegS(), inst.RegT())
	case OP_MULT, OP_MULTU, OP_DIV, OP_DIVU:
		return fmt.Sprintf("%v $%d, $%d", op, inst.RegS(), inst.RegT())
	case OP_BEQ, OP_BNE:
		return fmt.Sprintf("%v $%d, $%d, %d", op, inst.RegS(), inst.RegT(), inst.Immediate())
	case OP_LW, OP_SW:
		return fmt.Sprintf("%v $%d, %d($%d)", op, inst.RegT(), inst.Immediate(), inst.RegS())
	case OP_MFHI, OP_MFLO, OP_LIS:
		return fmt.Sprintf("%v $%d", op, inst.RegD())
	case OP_JR, OP_JALR:
		return fmt.Sprintf("%v $%d", op, inst.RegS())
	}

	return fmt.Sprintf(".word 0x%08x", inst.Word)
}
