package cpu

import (
	"fmt"
)

// Op identifies an instruction variant.
type Op int

const (
	OP_WORD  = Op(iota) // .word
	OP_ADD              // add
	OP_SUB              // sub
	OP_SLT              // slt
	OP_SLTU             // sltu
	OP_MULT             // mult
	OP_MULTU            // multu
	OP_DIV              // div
	OP_DIVU             // divu
	OP_MFHI             // mfhi
	OP_MFLO             // mflo
	OP_LIS              // lis
	OP_LW               // lw
	OP_SW               // sw
	OP_BEQ              // beq
	OP_BNE              // bne
	OP_JR               // jr
	OP_JALR             // jalr
)

var _op_name = [...]string{
	OP_WORD:  ".word",
	OP_ADD:   "add",
	OP_SUB:   "sub",
	OP_SLT:   "slt",
	OP_SLTU:  "sltu",
	OP_MULT:  "mult",
	OP_MULTU: "multu",
	OP_DIV:   "div",
	OP_DIVU:  "divu",
	OP_MFHI:  "mfhi",
	OP_MFLO:  "mflo",
	OP_LIS:   "lis",
	OP_LW:    "lw",
	OP_SW:    "sw",
	OP_BEQ:   "beq",
	OP_BNE:   "bne",
	OP_JR:    "jr",
	OP_JALR:  "jalr",
}

func (op Op) String() string {
	if op < 0 || int(op) >= len(_op_name) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return _op_name[op]
}

// Primary opcodes, bits 31..26.
const (
	OPCODE_REGISTER = uint32(0b000000)
	OPCODE_BEQ      = uint32(0b000100)
	OPCODE_BNE      = uint32(0b000101)
	OPCODE_LW       = uint32(0b100011)
	OPCODE_SW       = uint32(0b101011)
)

// Register format function codes, bits 10..0.
const (
	FUNCT_JR    = uint32(0b00000001000)
	FUNCT_JALR  = uint32(0b00000001001)
	FUNCT_MFHI  = uint32(0b00000010000)
	FUNCT_MFLO  = uint32(0b00000010010)
	FUNCT_LIS   = uint32(0b00000010100)
	FUNCT_MULT  = uint32(0b00000011000)
	FUNCT_MULTU = uint32(0b00000011001)
	FUNCT_DIV   = uint32(0b00000011010)
	FUNCT_DIVU  = uint32(0b00000011011)
	FUNCT_ADD   = uint32(0b00000100000)
	FUNCT_SUB   = uint32(0b00000100010)
	FUNCT_SLT   = uint32(0b00000101010)
	FUNCT_SLTU  = uint32(0b00000101011)
)

// opShape is the required encoding of an Op.
type opShape struct {
	opcode   uint32
	funct    uint32
	anyFunct bool // funct bits are the immediate
	anyOp    bool // no encoding constraints
	zeroS    bool
	zeroT    bool
	zeroD    bool
}

var _op_shape = [...]opShape{
	OP_WORD:  {anyOp: true},
	OP_ADD:   {opcode: OPCODE_REGISTER, funct: FUNCT_ADD},
	OP_SUB:   {opcode: OPCODE_REGISTER, funct: FUNCT_SUB},
	OP_SLT:   {opcode: OPCODE_REGISTER, funct: FUNCT_SLT},
	OP_SLTU:  {opcode: OPCODE_REGISTER, funct: FUNCT_SLTU},
	OP_MULT:  {opcode: OPCODE_REGISTER, funct: FUNCT_MULT, zeroD: true},
	OP_MULTU: {opcode: OPCODE_REGISTER, funct: FUNCT_MULTU, zeroD: true},
	OP_DIV:   {opcode: OPCODE_REGISTER, funct: FUNCT_DIV, zeroD: true},
	OP_DIVU:  {opcode: OPCODE_REGISTER, funct: FUNCT_DIVU, zeroD: true},
	OP_MFHI:  {opcode: OPCODE_REGISTER, funct: FUNCT_MFHI, zeroS: true, zeroT: true},
	OP_MFLO:  {opcode: OPCODE_REGISTER, funct: FUNCT_MFLO, zeroS: true, zeroT: true},
	OP_LIS:   {opcode: OPCODE_REGISTER, funct: FUNCT_LIS, zeroS: true, zeroT: true},
	OP_LW:    {opcode: OPCODE_LW, anyFunct: true},
	OP_SW:    {opcode: OPCODE_SW, anyFunct: true},
	OP_BEQ:   {opcode: OPCODE_BEQ, anyFunct: true},
	OP_BNE:   {opcode: OPCODE_BNE, anyFunct: true},
	OP_JR:    {opcode: OPCODE_REGISTER, funct: FUNCT_JR, zeroT: true, zeroD: true},
	OP_JALR:  {opcode: OPCODE_REGISTER, funct: FUNCT_JALR, zeroT: true, zeroD: true},
}

// Encode builds the machine word for an instruction from its fields.
// Fields that an Op does not use are ignored; OP_WORD has no fields
// and encodes as zero.
func Encode(op Op, s, t, d int, imm int16) (word uint32) {
	shape := _op_shape[op]
	word = shape.opcode << 26
	switch {
	case shape.anyOp:
		word = 0
	case shape.anyFunct:
		word |= uint32(s&0x1f)<<21 | uint32(t&0x1f)<<16 | uint32(uint16(imm))
	default:
		if !shape.zeroS {
			word |= uint32(s&0x1f) << 21
		}
		if !shape.zeroT {
			word |= uint32(t&0x1f) << 16
		}
		if !shape.zeroD {
			word |= uint32(d&0x1f) << 11
		}
		word |= shape.funct
	}
	return
}
