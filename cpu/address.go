package cpu

import (
	"fmt"
	"math"
)

// Address is a word aligned byte offset into the 32-bit address space.
// The zero value is address 0x00000000.
type Address struct {
	value uint32
}

// NewAddress validates that a raw byte offset is word aligned.
func NewAddress(value uint32) (addr Address, err error) {
	if value%WORD_BYTES != 0 {
		err = fmt.Errorf("%w: 0x%08x", ErrInvalidAddress, value)
		return
	}

	addr = Address{value: value}
	return
}

// AddressOfWord converts a word index back to its byte address.
func AddressOfWord(index int) (addr Address, err error) {
	if index < 0 || int64(index) > math.MaxUint32/WORD_BYTES {
		err = ErrAddressRange
		return
	}

	addr = Address{value: uint32(index) * WORD_BYTES}
	return
}

// MustAddress is NewAddress for constants; it panics on a misaligned value.
func MustAddress(value uint32) Address {
	addr, err := NewAddress(value)
	if err != nil {
		panic(err)
	}
	return addr
}

// Value is the raw byte offset.
func (addr Address) Value() uint32 {
	return addr.value
}

// WordIndex is the index of the word in a word addressed array.
func (addr Address) WordIndex() int {
	return int(addr.value / WORD_BYTES)
}

// Add moves the address forward by a number of words.
// Negative counts move it backwards.
func (addr Address) Add(words int) (Address, error) {
	if words < 0 {
		return addr.backward(magnitude(words))
	}

	return addr.forward(uint64(words))
}

// Sub moves the address backward by a number of words.
// Negative counts move it forwards.
func (addr Address) Sub(words int) (Address, error) {
	if words < 0 {
		return addr.forward(magnitude(words))
	}

	return addr.backward(uint64(words))
}

// magnitude is |words| for a negative count, math.MinInt included.
func magnitude(words int) uint64 {
	return uint64(-(words + 1)) + 1
}

func (addr Address) forward(words uint64) (Address, error) {
	room := uint64(math.MaxUint32/WORD_BYTES) - uint64(addr.WordIndex())
	if words > room {
		return addr, ErrAddressRange
	}

	return Address{value: addr.value + uint32(words)*WORD_BYTES}, nil
}

func (addr Address) backward(words uint64) (Address, error) {
	if words > uint64(addr.WordIndex()) {
		return addr, ErrAddressRange
	}

	return Address{value: addr.value - uint32(words)*WORD_BYTES}, nil
}

// AddAddress uses the word index of other as the word count to add.
func (addr Address) AddAddress(other Address) (Address, error) {
	return addr.Add(other.WordIndex())
}

// SubAddress uses the word index of other as the word count to subtract.
func (addr Address) SubAddress(other Address) (Address, error) {
	return addr.Sub(other.WordIndex())
}

// ShiftBytes moves the address by a byte count, which must be word aligned.
func (addr Address) ShiftBytes(bytes int) (Address, error) {
	if bytes%WORD_BYTES != 0 {
		return addr, fmt.Errorf("%w: offset %d", ErrInvalidAddress, bytes)
	}

	return addr.Add(bytes / WORD_BYTES)
}

// String is the zero padded hexadecimal form, ie 0x0000abcc.
func (addr Address) String() string {
	return fmt.Sprintf("0x%08x", addr.value)
}

// HexSimple is the unpadded hexadecimal form, ie 0xabcc.
func (addr Address) HexSimple() string {
	return fmt.Sprintf("0x%x", addr.value)
}

// Binary is the 32 digit binary form.
func (addr Address) Binary() string {
	return fmt.Sprintf("%032b", addr.value)
}
