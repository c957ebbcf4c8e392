// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/mips241/internal"
)

// Predefined system equates
var sysEquate = maps.Collect(internal.IterSeq2Concat(
	maps.All(map[string]string{"LINENO": "0"}),
	Defines(),
	ExecuteDefines(),
))

// Assembler is a two pass assembler for the CS241 MIPS subset.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string // Predefines
	Label     map[string]uint32 // Map of labels to byte addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err != nil || v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrParseNumber(word)
		return
	}

	value = uint32(v64)
	return
}

// immediateOf returns the 16-bit immediate value of a word.
// Values 0x8000..0xffff are accepted as their two's-complement form.
func (asm *Assembler) immediateOf(word string) (imm int16, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	signed := int32(value)
	if signed < -0x8000 || signed > 0xffff {
		err = fmt.Errorf("%w: %v", ErrImmediateRange, word)
		return
	}

	imm = int16(uint16(signed))
	return
}

// registerOf returns the index of a $n register word.
func (asm *Assembler) registerOf(word string) (reg int, err error) {
	equate, ok := asm.Equate[word]
	if ok {
		word = equate
	}

	if len(word) < 2 || word[0] != '$' {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}

	v64, err := strconv.ParseUint(word[1:], 10, 8)
	if err != nil || v64 > 31 {
		err = fmt.Errorf("%w: %v", ErrRegisterInvalid, word)
		return
	}

	reg = int(v64)
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value32 uint32
		value32, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt64(int64(int32(value32)))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reIndexed    = regexp.MustCompile(`^(.*)\((\$?[A-Za-z0-9_]+)\)$`)
)

// parseLine expands a single line into words, recording any labels.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%v", int32(value))
	})
	if err != nil {
		return
	}

	line = strings.ReplaceAll(line, ",", " ")
	line = strings.ReplaceAll(line, "\t", " ")
	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for len(words) > 0 && strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		asm.Label[label] = asm.currentPc()
		words = words[1:]
	}

	return
}

// currentPc gets the byte address of the next opcode.
func (asm *Assembler) currentPc() uint32 {
	return uint32(len(asm.Opcode)) * WORD_BYTES
}

// Parse parses an input stream into a Program containing opcodes.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]uint32)
	asm.Opcode = asm.Opcode[:0]
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		line, _, _ = strings.Cut(text, ";")
		line, _, _ = strings.Cut(line, "#")
		line = strings.TrimSpace(line)

		var words []string
		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	// Final linking of labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		lineno = op.LineNo
		line = strings.Join(op.Words, " ")

		label := op.LinkLabel
		target, ok := asm.Label[label]
		if !ok {
			err = ErrLabelMissing(label)
			return
		}

		inst := Decode(op.Code, Address{value: op.Pc})
		switch inst.Op {
		case OP_BEQ, OP_BNE:
			offset := (int64(target) - int64(op.Pc+WORD_BYTES)) / WORD_BYTES
			if offset < -0x8000 || offset > 0x7fff {
				err = fmt.Errorf("%w: %v", ErrImmediateRange, label)
				return
			}
			op.Code = Encode(inst.Op, inst.RegS(), inst.RegT(), 0, int16(offset))
		default:
			op.Code = target
		}
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// threeRegister maps the $d, $s, $t mnemonics.
var threeRegister = map[string]Op{
	"add":  OP_ADD,
	"sub":  OP_SUB,
	"slt":  OP_SLT,
	"sltu": OP_SLTU,
}

// twoRegister maps the $s, $t mnemonics.
var twoRegister = map[string]Op{
	"mult":  OP_MULT,
	"multu": OP_MULTU,
	"div":   OP_DIV,
	"divu":  OP_DIVU,
}

// oneRegister maps the $d and $s mnemonics.
var oneRegister = map[string]Op{
	"mfhi": OP_MFHI,
	"mflo": OP_MFLO,
	"lis":  OP_LIS,
	"jr":   OP_JR,
	"jalr": OP_JALR,
}

// isLabel is true for words that can only be a label reference.
func (asm *Assembler) isLabel(word string) bool {
	if _, ok := asm.Equate[word]; ok {
		return false
	}
	c := word[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// registers parses a list of register words.
func (asm *Assembler) registers(words []string, count int) (regs []int, err error) {
	if len(words) < count {
		err = ErrOpcodeValueMissing
		return
	}
	if len(words) > count {
		err = ErrOpcodeExtraArgs
		return
	}

	regs = make([]int, count)
	for n, word := range words {
		regs[n], err = asm.registerOf(word)
		if err != nil {
			return
		}
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var code uint32
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	mnemonic := words[0]
	args := words[1:]

	switch {
	case mnemonic == ".word":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 1 {
			err = ErrOpcodeExtraArgs
			return
		}
		if asm.isLabel(args[0]) {
			label = args[0]
		} else {
			code, err = asm.valueOf(args[0])
			if err != nil {
				return
			}
		}
	case threeRegister[mnemonic] != OP_WORD:
		var regs []int
		regs, err = asm.registers(args, 3)
		if err != nil {
			return
		}
		code = Encode(threeRegister[mnemonic], regs[1], regs[2], regs[0], 0)
	case twoRegister[mnemonic] != OP_WORD:
		var regs []int
		regs, err = asm.registers(args, 2)
		if err != nil {
			return
		}
		code = Encode(twoRegister[mnemonic], regs[0], regs[1], 0, 0)
	case oneRegister[mnemonic] != OP_WORD:
		var regs []int
		regs, err = asm.registers(args, 1)
		if err != nil {
			return
		}
		code = Encode(oneRegister[mnemonic], regs[0], 0, regs[0], 0)
	case mnemonic == "beq" || mnemonic == "bne":
		op := OP_BEQ
		if mnemonic == "bne" {
			op = OP_BNE
		}
		if len(args) < 3 {
			err = ErrOpcodeValueMissing
			return
		}
		var regs []int
		regs, err = asm.registers(args[:2], 2)
		if err != nil {
			return
		}
		if len(args) > 3 {
			err = ErrOpcodeExtraArgs
			return
		}
		var imm int16
		if asm.isLabel(args[2]) {
			label = args[2]
		} else {
			imm, err = asm.immediateOf(args[2])
			if err != nil {
				return
			}
		}
		code = Encode(op, regs[0], regs[1], 0, imm)
	case mnemonic == "lw" || mnemonic == "sw":
		op := OP_LW
		if mnemonic == "sw" {
			op = OP_SW
		}
		if len(args) < 2 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var t, s int
		t, err = asm.registerOf(args[0])
		if err != nil {
			return
		}
		match := reIndexed.FindStringSubmatch(args[1])
		if match == nil {
			err = fmt.Errorf("%w: %v", ErrRegisterInvalid, args[1])
			return
		}
		s, err = asm.registerOf(match[2])
		if err != nil {
			return
		}
		var imm int16
		if len(match[1]) != 0 {
			imm, err = asm.immediateOf(match[1])
			if err != nil {
				return
			}
		}
		code = Encode(op, s, t, 0, imm)
	default:
		err = ErrInstructionInvalid
		return
	}

	opcode := Opcode{LineNo: lineno, Pc: asm.currentPc(), Words: words, Code: code, LinkLabel: label}
	asm.Opcode = append(asm.Opcode, opcode)

	return
}
