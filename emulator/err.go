package emulator

import (
	"errors"

	"github.com/ezrec/mips241/cpu"
	"github.com/ezrec/mips241/translate"
)

var f = translate.From

var (
	ErrTerminated = errors.New(f("program returned to OS, finished successfully"))
	ErrNoHistory  = errors.New(f("no more instructions to reverse"))
	ErrArrayRange = errors.New(f("array has too many elements; is outside memory range"))
)

// ErrExecution indicates the instruction and location of a failed step.
type ErrExecution struct {
	Pc          cpu.Address
	Instruction cpu.Instruction
	Err         error
}

func (err *ErrExecution) Error() string {
	return f("pc %v '%v' %v", err.Pc, err.Instruction, err.Err)
}

func (err *ErrExecution) Unwrap() error {
	return err.Err
}
