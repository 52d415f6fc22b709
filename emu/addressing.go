package emu

import "github.com/retroenv/retrogolib/arch/cpu/m6502"

// operand is the resolved operand of one decoded instruction.
type operand struct {
	mode    m6502.AddressingMode
	address uint16 // effective address for memory modes and branch target
	value   byte   // immediate value
}

// resolveOperand computes the effective address or immediate value for the
// instruction at the current program counter.
func (c *CPU) resolveOperand(mode m6502.AddressingMode) operand {
	op := operand{mode: mode}

	switch mode {
	case m6502.ImpliedAddressing, m6502.AccumulatorAddressing:

	case m6502.ImmediateAddressing:
		op.value = c.read(c.PC + 1)

	case m6502.ZeroPageAddressing:
		op.address = uint16(c.read(c.PC + 1))

	case m6502.ZeroPageXAddressing:
		op.address = uint16(c.read(c.PC+1) + c.X)

	case m6502.ZeroPageYAddressing:
		op.address = uint16(c.read(c.PC+1) + c.Y)

	case m6502.AbsoluteAddressing:
		op.address = c.mem.ReadWord(c.PC + 1)

	case m6502.AbsoluteXAddressing:
		op.address = c.mem.ReadWord(c.PC+1) + uint16(c.X)

	case m6502.AbsoluteYAddressing:
		op.address = c.mem.ReadWord(c.PC+1) + uint16(c.Y)

	case m6502.IndirectAddressing:
		// the 6502 does not carry the page increment when the pointer
		// crosses a page boundary
		op.address = c.mem.ReadWordBug(c.mem.ReadWord(c.PC + 1))

	case m6502.IndirectXAddressing:
		op.address = c.readZeroPageWord(c.read(c.PC+1) + c.X)

	case m6502.IndirectYAddressing:
		op.address = c.readZeroPageWord(c.read(c.PC+1)) + uint16(c.Y)

	case m6502.RelativeAddressing:
		offset := uint16(c.read(c.PC + 1))
		if offset < 0x80 {
			op.address = c.PC + 2 + offset
		} else {
			op.address = c.PC + 2 + offset - 0x100
		}
	}

	return op
}

// readZeroPageWord reads a pointer from the zero page, both bytes wrap
// inside the page.
func (c *CPU) readZeroPageWord(address byte) uint16 {
	low := uint16(c.read(uint16(address)))
	high := uint16(c.read(uint16(address + 1)))
	return high<<8 | low
}

// load returns the operand value for read instructions.
func (c *CPU) load(op operand) byte {
	switch op.mode {
	case m6502.ImmediateAddressing:
		return op.value
	case m6502.AccumulatorAddressing:
		return c.A
	default:
		return c.read(op.address)
	}
}

// store writes a read-modify-write result back to its origin.
func (c *CPU) store(op operand, value byte) {
	if op.mode == m6502.AccumulatorAddressing {
		c.A = value
		return
	}
	c.write(op.address, value)
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
