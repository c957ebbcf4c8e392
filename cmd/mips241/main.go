// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ezrec/mips241/cpu"
	"github.com/ezrec/mips241/emulator"
)

// parseElements parses a comma separated list of 32-bit integers.
func parseElements(text string) (elements []int32, err error) {
	for _, word := range strings.Split(text, ",") {
		word = strings.TrimSpace(word)
		if len(word) == 0 {
			continue
		}
		var value int64
		value, err = strconv.ParseInt(word, 0, 32)
		if err != nil {
			return
		}
		elements = append(elements, int32(value))
	}

	return
}

func main() {
	var program string
	var compile string
	var mode string
	var r1, r2 int
	var elements string
	var input string
	var step bool
	var verbose bool

	flag.StringVar(&program, "p", "", ".mips binary to load")
	flag.StringVar(&compile, "c", "", ".asm file to compile and load")
	flag.StringVar(&mode, "m", "twoints", "Load mode: twoints, array, or stdin")
	flag.IntVar(&r1, "r1", 0, "twoints: value of $1")
	flag.IntVar(&r2, "r2", 0, "twoints: value of $2")
	flag.StringVar(&elements, "e", "", "array: comma separated elements")
	flag.StringVar(&input, "i", "", "Program input ('-' for stdin)")
	flag.BoolVar(&step, "s", false, "Interactive stepper")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose

	var binary []byte

	switch {
	case len(compile) != 0:
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}
		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		binary = prog.Binary()
	case len(program) != 0:
		var err error
		binary, err = os.ReadFile(program)
		if err != nil {
			log.Fatalf("%v: %v", program, err)
		}
	default:
		log.Fatalf("%v: one of -p or -c is required", os.Args[0])
	}

	var err error
	switch mode {
	case "twoints":
		err = emu.LoadTwoInts(binary, int32(r1), int32(r2))
	case "array":
		var values []int32
		values, err = parseElements(elements)
		if err != nil {
			log.Fatalf("-e: %v", err)
		}
		err = emu.LoadArray(binary, values)
	case "stdin":
		err = emu.Load(binary)
		if len(input) == 0 && !step {
			input = "-"
		}
	default:
		log.Fatalf("-m: unknown mode %v", mode)
	}
	if err != nil {
		log.Fatal(err)
	}

	switch input {
	case "":
	case "-":
		emu.Tape.Input = os.Stdin
	default:
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}
	emu.Tape.Output = os.Stdout

	if step {
		err = stepper(emu)
	} else {
		err = emu.Run()
	}
	if err != nil {
		log.Fatal(err)
	}

	if emu.Terminated() {
		fmt.Fprint(os.Stderr, emu.Completed())
	}
}
