package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/mips241/cpu"
	"github.com/ezrec/mips241/emulator"
)

func TestStepKey(t *testing.T) {
	assert := assert.New(t)

	asm := &cpu.Assembler{}
	prog, err := asm.Parse(strings.NewReader("add $3, $1, $2\njr $31"))
	if err != nil {
		t.Fatal(err)
	}

	emu, err := emulator.NewTwoIntsEmulator(prog.Binary(), 2, 3)
	assert.NoError(err)

	console := &bytes.Buffer{}

	// Nothing to reverse yet; only the error is reported.
	quit, err := stepKey(emu, console, 'r')
	assert.NoError(err)
	assert.False(quit)
	assert.Equal(emulator.ErrNoHistory.Error()+"\n", console.String())

	console.Reset()
	quit, err = stepKey(emu, console, 'n')
	assert.NoError(err)
	assert.False(quit)
	assert.Equal(uint32(4), emu.Pc.Value())

	quit, err = stepKey(emu, console, 'r')
	assert.NoError(err)
	assert.False(quit)
	assert.Equal("reversed to 0x00000000\n", console.String())

	console.Reset()
	for range 3 {
		_, err = stepKey(emu, console, 'n')
		assert.NoError(err)
	}
	assert.True(emu.Terminated())
	assert.Equal(emulator.ErrTerminated.Error()+"\n", console.String())

	console.Reset()
	_, err = stepKey(emu, console, 'd')
	assert.NoError(err)
	assert.Contains(console.String(), "0x00000005")

	quit, err = stepKey(emu, console, 'q')
	assert.NoError(err)
	assert.True(quit)
}
