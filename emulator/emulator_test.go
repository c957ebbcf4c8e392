package emulator

import (
	"bytes"
	"errors"
	"log"
	"maps"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mips241/cpu"
)

func assemble(t *testing.T, program []string) []byte {
	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}

	return prog.Binary()
}

var progAdd = []string{
	"add $3, $1, $2",
	"jr $31",
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.Equal(cpu.RAM_WORDS, emu.Ram.Size())
	assert.False(emu.Terminated())
	assert.Equal(0, emu.History())
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	defines := maps.Collect(NewEmulator().Defines())

	assert.Equal("0x8123456c", defines["RETURN_OS"])
	assert.Equal("0xffff0004", defines["STDIN"])
	assert.Equal("0xffff000c", defines["STDOUT"])
	assert.Equal("0x1000000", defines["MAX_ADDRESS"])
}

func TestEmulatorLoad(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Load([]byte{0x00, 0x22, 0x18, 0x20, 0x03, 0xe0, 0x00, 0x08})
	assert.NoError(err)

	assert.Equal(uint32(0), emu.Pc.Value())
	assert.Equal(RETURN_OS, emu.Registers.Read(cpu.REG_LINK))
	assert.Equal(cpu.MAX_ADDRESS, emu.Registers.Read(cpu.REG_STACK))

	inst, err := emu.Ram.Instruction(cpu.MustAddress(0))
	assert.NoError(err)
	assert.Equal(cpu.OP_ADD, inst.Op)
	assert.Equal("add $3, $1, $2", inst.String())

	inst, err = emu.Ram.Instruction(cpu.MustAddress(4))
	assert.NoError(err)
	assert.Equal(cpu.OP_JR, inst.Op)

	// Reloading clears the prior program.
	err = emu.Load([]byte{0x00, 0x00, 0x00, 0x2a})
	assert.NoError(err)
	word, err := emu.Ram.Read(cpu.MustAddress(4))
	assert.NoError(err)
	assert.Equal(uint32(0), word)
}

func TestEmulatorLoad_Invalid(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	err := emu.Load([]byte{0x01, 0x02, 0x03})
	assert.ErrorIs(err, cpu.ErrInvalidAddress)

	small := &Emulator{Ram: cpu.NewRam(1)}
	err = small.Load(make([]byte, 8))
	assert.ErrorIs(err, cpu.ErrMemoryRange)
}

func TestEmulatorTwoInts(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, progAdd), 5, -12)
	assert.NoError(err)

	assert.Equal(uint32(5), emu.Registers.Read(1))
	assert.Equal(uint32(0xfffffff4), emu.Registers.Read(2))

	err = emu.Run()
	assert.NoError(err)
	assert.True(emu.Terminated())
	assert.Equal(uint32(0xfffffff9), emu.Registers.Read(3))
	assert.Equal(2, emu.History())

	err = emu.Step()
	assert.ErrorIs(err, ErrTerminated)
	assert.Equal(2, emu.History())
}

var progSum = []string{
	"  add $3, $0, $0 ; sum",
	"  lis $4",
	"  .word 4",
	"loop:",
	"  beq $2, $0, done",
	"  lw $5, 0($1)",
	"  add $3, $3, $5",
	"  add $1, $1, $4",
	"  lis $5",
	"  .word -1",
	"  add $2, $2, $5",
	"  beq $0, $0, loop",
	"done:",
	"  jr $31",
}

func TestEmulatorArray(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewArrayEmulator(assemble(t, progSum), []int32{1, 2, 3, -4})
	assert.NoError(err)

	// 12 words of program, then the gap.
	assert.Equal(uint32((12+ARRAY_GAP)*4), emu.Registers.Read(1))
	assert.Equal(uint32(4), emu.Registers.Read(2))

	word, err := emu.Ram.Read(cpu.MustAddress((12 + ARRAY_GAP + 3) * 4))
	assert.NoError(err)
	assert.Equal(uint32(0xfffffffc), word)

	err = emu.Run()
	assert.NoError(err)
	assert.Equal(uint32(2), emu.Registers.Read(3))
	assert.Equal(uint32(0), emu.Registers.Read(2))
}

func TestEmulatorArray_Empty(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewArrayEmulator(assemble(t, progSum), nil)
	assert.NoError(err)
	assert.Equal(uint32(0), emu.Registers.Read(2))

	err = emu.Run()
	assert.NoError(err)
	assert.Equal(uint32(0), emu.Registers.Read(3))
}

func TestEmulatorArray_Range(t *testing.T) {
	assert := assert.New(t)

	program := assemble(t, []string{"jr $31"})

	// The array starts at word 1 + ARRAY_GAP, and may end at MAX_ADDRESS.
	fits := cpu.RAM_WORDS - (1 + ARRAY_GAP)

	emu := NewEmulator()
	err := emu.LoadArray(program, make([]int32, fits))
	assert.NoError(err)

	err = emu.LoadArray(program, make([]int32, fits+1))
	assert.ErrorIs(err, ErrArrayRange)
}

func TestEmulatorZeroRegister(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, []string{
		"add $0, $1, $2",
		"jr $31",
	}), 3, 4)
	assert.NoError(err)

	err = emu.Step()
	assert.NoError(err)
	assert.Equal(uint32(0), emu.Registers.Read(0))

	err = emu.StepBack(1)
	assert.NoError(err)
	assert.Equal(uint32(0), emu.Registers.Read(0))
	assert.Equal(uint32(0), emu.Pc.Value())
}

var progAll = []string{
	"  lis $1",
	"  .word 7",
	"  lis $2",
	"  .word -3",
	"  add $3, $1, $2",
	"  sub $4, $1, $2",
	"  slt $5, $2, $1",
	"  sltu $6, $2, $1",
	"  mult $1, $2",
	"  mflo $7",
	"  mfhi $8",
	"  div $1, $2",
	"  mflo $9",
	"  mfhi $10",
	"  multu $1, $2",
	"  divu $2, $1",
	"  sw $1, -4($30)",
	"  lw $11, -4($30)",
	"  add $20, $31, $0",
	"  lis $12",
	"  .word func",
	"  jalr $12",
	"  add $31, $20, $0",
	"  bne $1, $2, end",
	"  add $13, $1, $1",
	"end:",
	"  jr $31",
	"func:",
	"  add $14, $1, $0",
	"  jr $31",
}

type snapshot struct {
	registers map[int]uint32
	memory    map[uint32]uint32
	pc        cpu.Address
}

func takeSnapshot(emu *Emulator) (snap snapshot) {
	snap.registers = maps.Collect(emu.Registers.All())
	snap.memory = make(map[uint32]uint32)
	for _, value := range []uint32{0, 4, 8, 64, 80, 96, 104, cpu.MAX_ADDRESS - 4, cpu.MAX_ADDRESS} {
		word, _ := emu.Ram.Read(cpu.MustAddress(value))
		snap.memory[value] = word
	}
	snap.pc = emu.Pc
	return
}

func TestEmulatorStepBack(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Load(assemble(t, progAll))
	assert.NoError(err)

	var history []snapshot
	for !emu.Terminated() {
		history = append(history, takeSnapshot(emu))
		err = emu.Step()
		if !assert.NoError(err) {
			t.FailNow()
		}
	}

	assert.Equal(uint32(4), emu.Registers.Read(3))
	assert.Equal(uint32(10), emu.Registers.Read(4))
	assert.Equal(uint32(1), emu.Registers.Read(5))
	assert.Equal(uint32(0), emu.Registers.Read(6))
	assert.Equal(uint32(0xffffffeb), emu.Registers.Read(7))
	assert.Equal(uint32(0xffffffff), emu.Registers.Read(8))
	assert.Equal(uint32(0xfffffffe), emu.Registers.Read(9))
	assert.Equal(uint32(1), emu.Registers.Read(10))
	assert.Equal(uint32(7), emu.Registers.Read(11))
	assert.Equal(uint32(104), emu.Registers.Read(12))
	assert.Equal(uint32(0), emu.Registers.Read(13))
	assert.Equal(uint32(7), emu.Registers.Read(14))
	assert.Equal(RETURN_OS, emu.Registers.Read(31))
	assert.Equal(uint32(1), emu.Registers.Read(cpu.REG_HI))
	assert.Equal(uint32(613566756), emu.Registers.Read(cpu.REG_LO))

	word, err := emu.Ram.Read(cpu.MustAddress(cpu.MAX_ADDRESS - 4))
	assert.NoError(err)
	assert.Equal(uint32(7), word)

	assert.Equal(len(history), emu.History())

	for n := len(history) - 1; n >= 0; n-- {
		err = emu.StepBack(1)
		assert.NoError(err)
		assert.Equal(history[n], takeSnapshot(emu), "step %d", n)
	}

	assert.Equal(0, emu.History())
	err = emu.StepBack(1)
	assert.ErrorIs(err, ErrNoHistory)

	// Forward again, and reverse all at once.
	err = emu.Run()
	assert.NoError(err)
	err = emu.StepBack(emu.History() + 1)
	assert.ErrorIs(err, ErrNoHistory)
	err = emu.StepBack(emu.History())
	assert.NoError(err)
	assert.Equal(history[0], takeSnapshot(emu))
}

func TestEmulatorIo(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Load(assemble(t, []string{
		"  lis $1",
		"  .word STDIN",
		"  lis $2",
		"  .word STDOUT",
		"  lis $5",
		"  .word -1",
		"loop:",
		"  lw $3, 0($1)",
		"  beq $3, $5, done",
		"  sw $3, 0($2)",
		"  beq $0, $0, loop",
		"done:",
		"  jr $31",
	}))
	assert.NoError(err)

	output := &bytes.Buffer{}
	emu.Tape.Input = strings.NewReader("hi!")
	emu.Tape.Output = output

	err = emu.Run()
	assert.NoError(err)
	assert.Equal("hi!", output.String())
	assert.Equal(uint32(0xffffffff), emu.Registers.Read(3))

	read, written := emu.Tape.Count()
	assert.Equal(3, read)
	assert.Equal(3, written)
}

func TestEmulatorErrors(t *testing.T) {
	table := [...]struct {
		program []string
		first   int32
		second  int32
		steps   int
		err     error
	}{
		{program: []string{"div $1, $2"}, first: 1, second: 0},
		{program: []string{"divu $1, $2"}, first: 1, second: 0},
		{program: []string{".word 0xfc000000"}, err: cpu.ErrExecuteWord},
		{program: []string{"add $1, $1, $1"}, steps: 1, err: cpu.ErrExecuteWord},
		{program: []string{"jr $1"}, first: 6, err: cpu.ErrInvalidAddress},
		{program: []string{"jr $1"}, first: 0x0200_0000, steps: 1, err: cpu.ErrMemoryRange},
		{program: []string{"lw $3, 2($0)"}, err: cpu.ErrInvalidAddress},
		{program: []string{"sw $3, 0($1)"}, first: 0x0200_0000, err: cpu.ErrMemoryRange},
		{program: []string{"beq $0, $0, -2"}, err: cpu.ErrAddressRange},
	}

	for n, entry := range table {
		assert := assert.New(t)

		emu, err := NewTwoIntsEmulator(assemble(t, entry.program), entry.first, entry.second)
		assert.NoError(err, n)

		for range entry.steps {
			err = emu.Step()
			assert.NoError(err, n)
		}

		pc := emu.Pc
		err = emu.Step()

		var exec *ErrExecution
		if !assert.ErrorAs(err, &exec, n) {
			continue
		}
		assert.Equal(pc, exec.Pc, n)

		if entry.err != nil {
			assert.ErrorIs(err, entry.err, n)
		} else {
			var rerr runtime.Error
			assert.True(errors.As(err, &rerr), n)
		}

		// A failed step can still be reversed.
		err = emu.StepBack(1)
		assert.NoError(err, n)
		assert.Equal(pc, emu.Pc, n)
	}
}

type recordListener struct {
	registers []int
	memory    []uint32
	pcs       []uint32
	runs      []cpu.Op
	errs      []error
}

func (rl *recordListener) RegisterUpdate(index int, prior uint32) {
	rl.registers = append(rl.registers, index)
}

func (rl *recordListener) MemoryUpdate(addr cpu.Address, prior uint32) {
	rl.memory = append(rl.memory, addr.Value())
}

func (rl *recordListener) PcUpdate(pc cpu.Address) {
	rl.pcs = append(rl.pcs, pc.Value())
}

func (rl *recordListener) InstructionRun(inst cpu.Instruction, frame []cpu.Mutation, err error) {
	rl.runs = append(rl.runs, inst.Op)
	rl.errs = append(rl.errs, err)
}

func TestEmulatorListener(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, []string{
		"sw $1, -4($30)",
		"add $3, $1, $2",
		"jr $31",
	}), 1, 2)
	assert.NoError(err)

	rl := &recordListener{}
	emu.Listener = rl

	err = emu.Run()
	assert.NoError(err)

	assert.Equal([]cpu.Op{cpu.OP_SW, cpu.OP_ADD, cpu.OP_JR}, rl.runs)
	assert.Equal([]error{nil, nil, nil}, rl.errs)
	assert.Equal([]int{3}, rl.registers)
	assert.Equal([]uint32{cpu.MAX_ADDRESS - 4}, rl.memory)
	assert.Equal([]uint32{4, 8, 12, RETURN_OS}, rl.pcs)

	err = emu.StepBack(3)
	assert.NoError(err)
	assert.Equal([]int{3, 3}, rl.registers)
	assert.Equal([]uint32{cpu.MAX_ADDRESS - 4, cpu.MAX_ADDRESS - 4}, rl.memory)
	assert.Equal([]uint32{4, 8, 12, RETURN_OS, 12, 8, 4, 0}, rl.pcs)
	assert.Len(rl.runs, 3)
}

func TestEmulatorTracer(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, progAdd), 5, 7)
	assert.NoError(err)

	buff := &bytes.Buffer{}
	emu.Listener = &Tracer{Logger: log.New(buff, "", 0)}

	err = emu.Run()
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(buff.String()), "\n")
	assert.Len(lines, 2)
	assert.Contains(lines[0], "0x00000000: add $3, $1, $2")
	assert.Contains(lines[0], "$3 was 0x00000000")
	assert.Contains(lines[1], "0x00000004: jr $31")
}

func TestEmulatorCompleted(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, progAdd), 5, 7)
	assert.NoError(err)

	err = emu.Run()
	assert.NoError(err)

	text := emu.Completed()
	assert.Contains(text, "MIPS Program Completed")
	assert.Contains(text, "$03 = 0x0000000c")
	assert.Contains(text, "$31 = 0x8123456c")
	assert.NotContains(text, "$00")
	assert.Equal(8, strings.Count(text, "\n")-1)
}

func TestEmulatorCells(t *testing.T) {
	assert := assert.New(t)

	emu, err := NewTwoIntsEmulator(assemble(t, progAdd), 5, 7)
	assert.NoError(err)

	var tags []string
	for cell := range emu.Cells() {
		tags = append(tags, cell.Tag)
	}

	assert.Len(tags, cpu.REGISTER_COUNT+2)
	assert.Equal("$0", tags[0])
	assert.Equal("$HI", tags[cpu.REG_HI])
	assert.Equal("$LO", tags[cpu.REG_LO])
	assert.Equal([]string{"M[0x0]", "M[0x4]"}, tags[cpu.REGISTER_COUNT:])
}
