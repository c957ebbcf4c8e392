package io

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestTape_Read(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: bytes.NewReader([]byte{'h', 0xff, 0x00})}

	assert.Equal(int32('h'), tape.Read())
	assert.Equal(int32(0xff), tape.Read())
	assert.Equal(int32(0), tape.Read())
	assert.Equal(EOF, tape.Read())
	assert.Equal(EOF, tape.Read())

	read, written := tape.Count()
	assert.Equal(3, read)
	assert.Equal(0, written)
}

// stallReader never makes progress.
type stallReader struct {
	reads int
}

func (sr *stallReader) Read(p []byte) (int, error) {
	sr.reads++
	return 0, nil
}

func TestTape_Read_Stalled(t *testing.T) {
	assert := assert.New(t)

	stall := &stallReader{}
	tape := &Tape{Input: stall}

	assert.Equal(EOF, tape.Read())
	assert.Equal(MAX_EMPTY_READS, stall.reads)

	read, _ := tape.Count()
	assert.Equal(0, read)
}

func TestTape_Read_NoInput(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	assert.Equal(EOF, tape.Read())
}

func TestTape_Write(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	tape := &Tape{Output: output}

	assert.NoError(tape.Write('o'))
	assert.NoError(tape.Write('k'))
	assert.Equal([]byte("ok"), output.Bytes())

	_, written := tape.Count()
	assert.Equal(2, written)

	tape.Rewind()
	read, written := tape.Count()
	assert.Equal(0, read)
	assert.Equal(0, written)
}

func TestTape_Write_Errors(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	assert.ErrorIs(tape.Write('x'), ErrChannelClosed)

	tape.Output = failWriter{}
	err := tape.Write('x')
	assert.ErrorIs(err, ErrChannelClosed)
	assert.ErrorContains(err, "broken pipe")
}
