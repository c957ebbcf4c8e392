package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ezrec/mips241/emulator"
)

// crlfWriter translates newlines for a terminal in raw mode.
type crlfWriter struct {
	io.Writer
}

func (cw crlfWriter) Write(data []byte) (n int, err error) {
	_, err = io.WriteString(cw.Writer, strings.ReplaceAll(string(data), "\n", "\r\n"))
	if err != nil {
		return
	}
	n = len(data)
	return
}

// stepper runs the emulator one key press at a time:
// 'n' steps forward, 'r' reverses a step, 'd' dumps the machine state,
// and 'q' quits.
func stepper(emu *emulator.Emulator) (err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		err = errors.New("stepper: standard input is not a terminal")
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}
	defer term.Restore(fd, state)

	console := crlfWriter{Writer: os.Stderr}
	emu.Listener = &emulator.Tracer{Logger: log.New(console, "", 0)}
	emu.Tape.Output = crlfWriter{Writer: emu.Tape.Output}

	fmt.Fprintf(console, "n: step, r: reverse, d: dump, q: quit\n")

	key := make([]byte, 1)
	for {
		_, err = os.Stdin.Read(key)
		if err != nil {
			return
		}

		var quit bool
		quit, err = stepKey(emu, console, key[0])
		if quit || err != nil {
			return
		}
	}
}

// stepKey performs the action of a single key press, reporting to console.
func stepKey(emu *emulator.Emulator, console io.Writer, key byte) (quit bool, err error) {
	switch key {
	case 'n':
		err = emu.Step()
		if errors.Is(err, emulator.ErrTerminated) {
			fmt.Fprintf(console, "%v\n", err)
			err = nil
		}
	case 'r':
		err = emu.StepBack(1)
		if errors.Is(err, emulator.ErrNoHistory) {
			fmt.Fprintf(console, "%v\n", err)
			err = nil
		} else if err == nil {
			fmt.Fprintf(console, "reversed to %v\n", emu.Pc)
		}
	case 'd':
		for cell := range emu.Cells() {
			fmt.Fprintf(console, "%-10v %v  %v\n", cell.Tag, cell.Hex(), cell.Details)
		}
	case 'q', 3:
		quit = true
	}

	return
}
