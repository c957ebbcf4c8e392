package cpu

import (
	"fmt"
	"iter"
)

// MutationKind is the kind of state a Mutation restores.
type MutationKind int

const (
	MUTATION_REGISTER = MutationKind(0) // register
	MUTATION_MEMORY   = MutationKind(1) // memory
	MUTATION_PC       = MutationKind(2) // pc
)

func (kind MutationKind) String() string {
	switch kind {
	case MUTATION_REGISTER:
		return "register"
	case MUTATION_MEMORY:
		return "memory"
	case MUTATION_PC:
		return "pc"
	}
	return fmt.Sprintf("MutationKind(%d)", int(kind))
}

// Mutation is the prior state of a single register, memory word, or
// program counter change.
//
// For MUTATION_REGISTER the location is the register index times four.
// For MUTATION_MEMORY it is the byte address.
// For MUTATION_PC it is the prior program counter, and Prior is unused.
type Mutation struct {
	Kind     MutationKind
	Location Address
	Prior    uint32
}

// Register is the register index of a MUTATION_REGISTER.
func (m Mutation) Register() int {
	return m.Location.WordIndex()
}

func (m Mutation) String() string {
	switch m.Kind {
	case MUTATION_REGISTER:
		return fmt.Sprintf("%v was 0x%08x", RegisterTag(m.Register()), m.Prior)
	case MUTATION_MEMORY:
		return fmt.Sprintf("M[%v] was 0x%08x", m.Location.HexSimple(), m.Prior)
	}
	return fmt.Sprintf("pc was %v", m.Location)
}

// Journal records, for each executed instruction, the state it replaced.
type Journal struct {
	Frames [][]Mutation
}

// Open starts the frame of a new instruction.
func (j *Journal) Open() {
	j.Frames = append(j.Frames, nil)
}

// Record appends a mutation to the open frame.
func (j *Journal) Record(m Mutation) {
	if len(j.Frames) == 0 {
		panic("cpu: journal record without an open frame")
	}
	last := len(j.Frames) - 1
	j.Frames[last] = append(j.Frames[last], m)
}

// Pop removes the most recent frame.
func (j *Journal) Pop() (frame []Mutation, ok bool) {
	frame, ok = j.Last()
	if ok {
		j.Frames[len(j.Frames)-1] = nil
		j.Frames = j.Frames[:len(j.Frames)-1]
	}
	return
}

// Last is the most recent frame.
func (j *Journal) Last() (frame []Mutation, ok bool) {
	if len(j.Frames) == 0 {
		return
	}

	return j.Frames[len(j.Frames)-1], true
}

// Frame is the n'th frame, oldest first.
func (j *Journal) Frame(n int) (frame []Mutation, ok bool) {
	if n < 0 || n >= len(j.Frames) {
		return
	}

	return j.Frames[n], true
}

// Len is the number of frames available to reverse.
func (j *Journal) Len() int {
	return len(j.Frames)
}

// All iterates over the frames, oldest first.
func (j *Journal) All() iter.Seq2[int, []Mutation] {
	return func(yield func(int, []Mutation) bool) {
		for n, frame := range j.Frames {
			if !yield(n, frame) {
				return
			}
		}
	}
}

// Reset discards all frames.
func (j *Journal) Reset() {
	if len(j.Frames) > 0 {
		clear(j.Frames)
		j.Frames = j.Frames[:0]
	}
}

// Reversed iterates over a frame's mutations, most recent first.
func Reversed(frame []Mutation) iter.Seq[Mutation] {
	return func(yield func(Mutation) bool) {
		for n := len(frame) - 1; n >= 0; n-- {
			if !yield(frame[n]) {
				return
			}
		}
	}
}
