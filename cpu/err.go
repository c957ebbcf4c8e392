package cpu

import (
	"errors"

	"github.com/ezrec/mips241/translate"
)

var f = translate.From

var (
	// Address and memory errors
	ErrInvalidAddress = errors.New(f("address must be a multiple of four"))
	ErrAddressRange   = errors.New(f("address is outside of 0x00000000..0xffffffff"))
	ErrMemoryRange    = errors.New(f("data is outside memory range"))

	// Instruction decode errors
	ErrDecodeMismatch = errors.New(f("mismatched opcode or operand"))
	ErrBadCode        = errors.New(f("bad code"))
	ErrExecuteWord    = errors.New(f("executing a non-instruction is not allowed"))

	// Assembler errors
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrImmediateRange     = errors.New(f("immediate out of range"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// Is matches any missing label.
func (el ErrLabelMissing) Is(err error) (ok bool) {
	_, ok = err.(ErrLabelMissing)
	return
}

// ErrCode reports a word that cannot be constructed as the requested Op.
type ErrCode struct {
	Op   Op
	Word uint32
	Err  error
}

func (err *ErrCode) Error() string {
	return f("%v on %v 0x%08x", err.Err, err.Op, err.Word)
}

func (err *ErrCode) Unwrap() error {
	return err.Err
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}
