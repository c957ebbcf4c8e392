package io

import (
	"errors"

	"github.com/ezrec/mips241/translate"
)

var f = translate.From

const (
	EOF = int32(-1) // Read at end of input.
)

var (
	// Channel errors
	ErrChannelClosed = errors.New(f("channel has no output"))
)
