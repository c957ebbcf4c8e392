// Package cpu implements the processor model and assembler of the CS241
// MIPS subset.
//
// The processor has 32 general-purpose 32-bit registers ($0-$31), where $0
// always reads as zero, plus the $HI and $LO registers written by the
// multiply and divide instructions. Memory is word addressed; every written
// word of RAM is decoded into an Instruction when written, so fetch is a
// lookup.
//
// Instructions execute against a Machine, which the caller implements to
// record each register, memory and program counter mutation in a Journal
// before it is committed. Replaying a Journal frame in reverse undoes an
// instruction exactly.
//
// The assembler translates the textual form of the same instruction set,
// supporting labels, equates, and compile-time expression evaluation.
package cpu
