// Package options contains the engine options.
package options

import "github.com/retroenv/sidgoconv/sid"

// IllegalOpcodePolicy controls how the emulator treats opcodes outside the
// official instruction set.
type IllegalOpcodePolicy int

const (
	// IllegalOpcodeFail aborts execution with an error.
	IllegalOpcodeFail IllegalOpcodePolicy = iota
	// IllegalOpcodeNop skips the opcode using its table declared length.
	IllegalOpcodeNop
)

// Emulation defines options to control the emulator.
type Emulation struct {
	IllegalOpcode IllegalOpcodePolicy

	// MaxInstructionsPerFrame is the instruction ceiling for a single
	// routine call, exceeding it truncates the run.
	MaxInstructionsPerFrame int

	// RegisterBase is the bus address of the captured chip register window.
	RegisterBase uint16
}

// NewEmulation returns a new options instance with default options.
func NewEmulation() Emulation {
	return Emulation{
		IllegalOpcode:           IllegalOpcodeFail,
		MaxInstructionsPerFrame: 1_000_000,
		RegisterBase:            sid.DefaultBase,
	}
}
