// Package relocate rewrites absolute address operands in 6502 machine code
// so that it runs correctly after being moved to a different base address.
//
// The scan is linear and over-approximate: only 2 byte absolute operands
// whose value falls inside the code's own address range are patched, fixed
// external addresses like hardware registers are left untouched. Operands
// that are computed indirectly at runtime and self-modifying or obfuscated
// code can defeat the scan, this is a known limitation and not detectable
// locally. The scan fails loudly on a decode desync instead of guessing.
package relocate

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/m6502"
)

// Patch describes one rewritten absolute operand.
type Patch struct {
	Offset  int    // operand offset inside the code
	Address uint16 // address of the operand in the original image
	Old     uint16 // original operand value
	New     uint16 // rewritten operand value
}

// UnalignedDecodeError is returned when the linear scan can not consume
// exactly the declared code length.
type UnalignedDecodeError struct {
	Offset int
	Opcode byte
}

func (e *UnalignedDecodeError) Error() string {
	return fmt.Sprintf("decoding desynced at offset %d for opcode 0x%02x", e.Offset, e.Opcode)
}

// OutOfRangeTargetError is returned when a computed patch value does not fit
// into 16 bits.
type OutOfRangeTargetError struct {
	Offset int
	Target int
}

func (e *OutOfRangeTargetError) Error() string {
	return fmt.Sprintf("patch target 0x%x at offset %d exceeds 16 bits", e.Target, e.Offset)
}

// Relocate rewrites the absolute address operands of code loaded at base so
// that it can run at newBase. It returns the patched code and the list of
// applied patches, the input slice is not modified.
func Relocate(code []byte, base, newBase uint16) ([]byte, []Patch, error) {
	relocated := make([]byte, len(code))
	copy(relocated, code)

	var patches []Patch
	end := int(base) + len(code)

	for offset := 0; offset < len(code); {
		opcode := m6502.Opcodes[code[offset]]
		if opcode.Instruction == nil {
			return nil, nil, &UnalignedDecodeError{Offset: offset, Opcode: code[offset]}
		}

		mode := m6502.AddressingMode(opcode.Addressing)
		length, ok := instructionLength(mode)
		if !ok {
			return nil, nil, &UnalignedDecodeError{Offset: offset, Opcode: code[offset]}
		}
		if offset+length > len(code) {
			return nil, nil, &UnalignedDecodeError{Offset: offset, Opcode: code[offset]}
		}

		if hasAbsoluteOperand(mode) {
			operand := offset + 1
			value := uint16(code[operand]) | uint16(code[operand+1])<<8

			if value >= base && int(value) < end && base != newBase {
				target := int(value) - int(base) + int(newBase)
				if target < 0 || target > 0xffff {
					return nil, nil, &OutOfRangeTargetError{Offset: operand, Target: target}
				}

				relocated[operand] = byte(target)
				relocated[operand+1] = byte(target >> 8)
				patches = append(patches, Patch{
					Offset:  operand,
					Address: base + uint16(operand),
					Old:     value,
					New:     uint16(target),
				})
			}
		}

		offset += length
	}

	return relocated, patches, nil
}

// hasAbsoluteOperand returns whether the addressing mode carries a 2 byte
// little endian absolute address operand.
func hasAbsoluteOperand(mode m6502.AddressingMode) bool {
	switch mode {
	case m6502.AbsoluteAddressing, m6502.AbsoluteXAddressing,
		m6502.AbsoluteYAddressing, m6502.IndirectAddressing:
		return true
	default:
		return false
	}
}

// instructionLength returns the full instruction length in bytes for an
// addressing mode.
func instructionLength(mode m6502.AddressingMode) (int, bool) {
	switch mode {
	case m6502.ImpliedAddressing, m6502.AccumulatorAddressing:
		return 1, true
	case m6502.ImmediateAddressing, m6502.RelativeAddressing,
		m6502.ZeroPageAddressing, m6502.ZeroPageXAddressing, m6502.ZeroPageYAddressing,
		m6502.IndirectXAddressing, m6502.IndirectYAddressing:
		return 2, true
	case m6502.AbsoluteAddressing, m6502.AbsoluteXAddressing,
		m6502.AbsoluteYAddressing, m6502.IndirectAddressing:
		return 3, true
	default:
		return 0, false
	}
}
