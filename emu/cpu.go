// Package emu emulates the 6502 CPU of the C64 well enough to run a music
// player routine and capture every write into the sound chip register
// window as a frame indexed trace.
//
// The emulation is instruction exact, not cycle exact: downstream
// comparisons diff register write sequences, not bus timing. Reads from the
// register window return the memory image content, the chip itself is never
// synthesized here.
package emu

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/m6502"
	"github.com/retroenv/sidgoconv/memory"
	"github.com/retroenv/sidgoconv/options"
)

const stackBase = 0x0100

// callReturn is the program counter value a frame routine returns to. The
// matching word is planted on the stack by Call. It points into the
// interrupt vector table which is never executed by player code.
const callReturn = 0xfffe

// CPU is a 6502 core executing against a memory image. The write hook, if
// set, observes every memory store in execution order.
type CPU struct {
	A, X, Y byte
	SP      byte
	PC      uint16

	// status flags, the B flag exists only in the stack representation
	C, Z, I, D, V, N bool

	mem       *memory.Image
	policy    options.IllegalOpcodePolicy
	writeHook func(address uint16, value byte)
}

// NewCPU creates a CPU executing against the given memory image.
func NewCPU(mem *memory.Image, policy options.IllegalOpcodePolicy) *CPU {
	return &CPU{
		mem:    mem,
		SP:     0xff,
		I:      true,
		policy: policy,
	}
}

// SetWriteHook registers a hook observing every memory store.
func (c *CPU) SetWriteHook(hook func(address uint16, value byte)) {
	c.writeHook = hook
}

// Call executes the routine at entry with the given register values until
// it returns. A return frame is planted on the stack, the RTS consuming it
// ends the call. Exceeding maxInstructions returns a DivergedError, the
// machine state then reflects the partial execution.
func (c *CPU) Call(entry uint16, a, x, y byte, maxInstructions int) error {
	c.A, c.X, c.Y = a, x, y
	c.SP = 0xff
	c.PC = entry
	if err := c.pushWord(callReturn - 1); err != nil {
		return err
	}

	for executed := 0; executed < maxInstructions; executed++ {
		if c.PC == callReturn {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}

	if c.PC == callReturn {
		return nil
	}
	return &DivergedError{Entry: entry, Executed: maxInstructions}
}

// Step executes a single instruction.
func (c *CPU) Step() error {
	pc := c.PC
	b := c.mem.Read(pc)
	opcode := m6502.Opcodes[b]

	if opcode.Instruction == nil {
		return c.skipIllegal(pc, b, 1)
	}

	mode := m6502.AddressingMode(opcode.Addressing)
	length, ok := instructionLength(mode)
	if !ok {
		return c.skipIllegal(pc, b, 1)
	}
	if opcode.Instruction.Unofficial {
		return c.skipIllegal(pc, b, length)
	}

	op := c.resolveOperand(mode)
	c.PC = pc + uint16(length)

	execute, ok := executors[opcode.Instruction.Name]
	if !ok {
		return fmt.Errorf("no executor for instruction %s", opcode.Instruction.Name)
	}
	return execute(c, op)
}

// skipIllegal applies the configured illegal opcode policy.
func (c *CPU) skipIllegal(pc uint16, opcode byte, length int) error {
	if c.policy == options.IllegalOpcodeNop {
		c.PC = pc + uint16(length)
		return nil
	}
	return &IllegalOpcodeError{PC: pc, Opcode: opcode}
}

func (c *CPU) read(address uint16) byte {
	return c.mem.Read(address)
}

func (c *CPU) write(address uint16, value byte) {
	c.mem.Write(address, value)
	if c.writeHook != nil {
		c.writeHook(address, value)
	}
}

func (c *CPU) push(value byte) error {
	if c.SP == 0x00 {
		return &StackOverflowError{PC: c.PC}
	}
	c.write(stackBase+uint16(c.SP), value)
	c.SP--
	return nil
}

func (c *CPU) pushWord(value uint16) error {
	if err := c.push(byte(value >> 8)); err != nil {
		return err
	}
	return c.push(byte(value))
}

func (c *CPU) pull() (byte, error) {
	if c.SP == 0xff {
		return 0, &StackUnderflowError{PC: c.PC}
	}
	c.SP++
	return c.read(stackBase + uint16(c.SP)), nil
}

func (c *CPU) pullWord() (uint16, error) {
	low, err := c.pull()
	if err != nil {
		return 0, err
	}
	high, err := c.pull()
	if err != nil {
		return 0, err
	}
	return uint16(high)<<8 | uint16(low), nil
}

// setNZ sets the negative and zero flags from a result byte.
func (c *CPU) setNZ(value byte) byte {
	c.N = value&0x80 != 0
	c.Z = value == 0
	return value
}

// statusByte assembles the flags into their stack representation, the
// unused bit is always set.
func (c *CPU) statusByte(brk bool) byte {
	var status byte = 0x20
	if c.N {
		status |= 0x80
	}
	if c.V {
		status |= 0x40
	}
	if brk {
		status |= 0x10
	}
	if c.D {
		status |= 0x08
	}
	if c.I {
		status |= 0x04
	}
	if c.Z {
		status |= 0x02
	}
	if c.C {
		status |= 0x01
	}
	return status
}

// setStatusByte restores the flags from their stack representation, the B
// and unused bits are ignored.
func (c *CPU) setStatusByte(status byte) {
	c.N = status&0x80 != 0
	c.V = status&0x40 != 0
	c.D = status&0x08 != 0
	c.I = status&0x04 != 0
	c.Z = status&0x02 != 0
	c.C = status&0x01 != 0
}
