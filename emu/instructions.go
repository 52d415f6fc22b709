package emu

import "github.com/retroenv/retrogolib/arch/cpu/m6502"

// irqVector is read by the break instruction.
const irqVector = 0xfffe

type executorFunc func(c *CPU, op operand) error

// executors maps an instruction to its semantics. Initialized once and
// never mutated, safe for concurrent reads like the opcode table itself.
var executors = map[string]executorFunc{
	m6502.Adc.Name: (*CPU).adc,
	m6502.And.Name: (*CPU).and,
	m6502.Asl.Name: (*CPU).asl,
	m6502.Bcc.Name: func(c *CPU, op operand) error { return c.branch(!c.C, op) },
	m6502.Bcs.Name: func(c *CPU, op operand) error { return c.branch(c.C, op) },
	m6502.Beq.Name: func(c *CPU, op operand) error { return c.branch(c.Z, op) },
	m6502.Bit.Name: (*CPU).bit,
	m6502.Bmi.Name: func(c *CPU, op operand) error { return c.branch(c.N, op) },
	m6502.Bne.Name: func(c *CPU, op operand) error { return c.branch(!c.Z, op) },
	m6502.Bpl.Name: func(c *CPU, op operand) error { return c.branch(!c.N, op) },
	m6502.Brk.Name: (*CPU).brk,
	m6502.Bvc.Name: func(c *CPU, op operand) error { return c.branch(!c.V, op) },
	m6502.Bvs.Name: func(c *CPU, op operand) error { return c.branch(c.V, op) },
	m6502.Clc.Name: func(c *CPU, _ operand) error { c.C = false; return nil },
	m6502.Cld.Name: func(c *CPU, _ operand) error { c.D = false; return nil },
	m6502.Cli.Name: func(c *CPU, _ operand) error { c.I = false; return nil },
	m6502.Clv.Name: func(c *CPU, _ operand) error { c.V = false; return nil },
	m6502.Cmp.Name: func(c *CPU, op operand) error { c.compare(c.A, op); return nil },
	m6502.Cpx.Name: func(c *CPU, op operand) error { c.compare(c.X, op); return nil },
	m6502.Cpy.Name: func(c *CPU, op operand) error { c.compare(c.Y, op); return nil },
	m6502.Dec.Name: (*CPU).dec,
	m6502.Dex.Name: func(c *CPU, _ operand) error { c.X = c.setNZ(c.X - 1); return nil },
	m6502.Dey.Name: func(c *CPU, _ operand) error { c.Y = c.setNZ(c.Y - 1); return nil },
	m6502.Eor.Name: (*CPU).eor,
	m6502.Inc.Name: (*CPU).inc,
	m6502.Inx.Name: func(c *CPU, _ operand) error { c.X = c.setNZ(c.X + 1); return nil },
	m6502.Iny.Name: func(c *CPU, _ operand) error { c.Y = c.setNZ(c.Y + 1); return nil },
	m6502.Jmp.Name: func(c *CPU, op operand) error { c.PC = op.address; return nil },
	m6502.Jsr.Name: (*CPU).jsr,
	m6502.Lda.Name: func(c *CPU, op operand) error { c.A = c.setNZ(c.load(op)); return nil },
	m6502.Ldx.Name: func(c *CPU, op operand) error { c.X = c.setNZ(c.load(op)); return nil },
	m6502.Ldy.Name: func(c *CPU, op operand) error { c.Y = c.setNZ(c.load(op)); return nil },
	m6502.Lsr.Name: (*CPU).lsr,
	m6502.Nop.Name: func(*CPU, operand) error { return nil },
	m6502.Ora.Name: (*CPU).ora,
	m6502.Pha.Name: func(c *CPU, _ operand) error { return c.push(c.A) },
	m6502.Php.Name: func(c *CPU, _ operand) error { return c.push(c.statusByte(true)) },
	m6502.Pla.Name: (*CPU).pla,
	m6502.Plp.Name: (*CPU).plp,
	m6502.Rol.Name: (*CPU).rol,
	m6502.Ror.Name: (*CPU).ror,
	m6502.Rti.Name: (*CPU).rti,
	m6502.Rts.Name: (*CPU).rts,
	m6502.Sbc.Name: (*CPU).sbc,
	m6502.Sec.Name: func(c *CPU, _ operand) error { c.C = true; return nil },
	m6502.Sed.Name: func(c *CPU, _ operand) error { c.D = true; return nil },
	m6502.Sei.Name: func(c *CPU, _ operand) error { c.I = true; return nil },
	m6502.Sta.Name: func(c *CPU, op operand) error { c.write(op.address, c.A); return nil },
	m6502.Stx.Name: func(c *CPU, op operand) error { c.write(op.address, c.X); return nil },
	m6502.Sty.Name: func(c *CPU, op operand) error { c.write(op.address, c.Y); return nil },
	m6502.Tax.Name: func(c *CPU, _ operand) error { c.X = c.setNZ(c.A); return nil },
	m6502.Tay.Name: func(c *CPU, _ operand) error { c.Y = c.setNZ(c.A); return nil },
	m6502.Tsx.Name: func(c *CPU, _ operand) error { c.X = c.setNZ(c.SP); return nil },
	m6502.Txa.Name: func(c *CPU, _ operand) error { c.A = c.setNZ(c.X); return nil },
	m6502.Txs.Name: func(c *CPU, _ operand) error { c.SP = c.X; return nil },
	m6502.Tya.Name: func(c *CPU, _ operand) error { c.A = c.setNZ(c.Y); return nil },
}

func (c *CPU) branch(condition bool, op operand) error {
	if condition {
		c.PC = op.address
	}
	return nil
}

func (c *CPU) adc(op operand) error {
	value := c.load(op)
	if c.D {
		c.adcDecimal(value)
		return nil
	}

	var carry uint16
	if c.C {
		carry = 1
	}
	sum := uint16(c.A) + uint16(value) + carry
	result := byte(sum)

	c.C = sum > 0xff
	c.V = (^(c.A^value)&(c.A^result))&0x80 != 0
	c.A = c.setNZ(result)
	return nil
}

// adcDecimal implements the NMOS 6502 decimal mode addition including its
// flag quirks: Z is computed from the binary sum, N and V from the
// intermediate result before the high nibble adjust.
func (c *CPU) adcDecimal(value byte) {
	var carry uint16
	if c.C {
		carry = 1
	}

	tmp := uint16(c.A&0x0f) + uint16(value&0x0f) + carry
	if tmp > 9 {
		tmp += 6
	}
	if tmp <= 0x0f {
		tmp = tmp&0x0f + uint16(c.A&0xf0) + uint16(value&0xf0)
	} else {
		tmp = tmp&0x0f + uint16(c.A&0xf0) + uint16(value&0xf0) + 0x10
	}

	c.Z = byte(uint16(c.A)+uint16(value)+carry) == 0
	c.N = tmp&0x80 != 0
	c.V = (uint16(c.A)^tmp)&0x80 != 0 && (c.A^value)&0x80 == 0

	if tmp&0x1f0 > 0x90 {
		tmp += 0x60
	}
	c.C = tmp&0xff0 > 0xf0
	c.A = byte(tmp)
}

func (c *CPU) sbc(op operand) error {
	value := c.load(op)
	a := c.A

	var borrow uint16
	if !c.C {
		borrow = 1
	}
	diff := uint16(a) - uint16(value) - borrow
	result := byte(diff)

	// flags come from the binary result even in decimal mode
	c.C = diff < 0x100
	c.V = (a^value)&0x80 != 0 && (a^result)&0x80 != 0
	c.N = result&0x80 != 0
	c.Z = result == 0

	if c.D {
		c.sbcDecimal(a, value, borrow)
	} else {
		c.A = result
	}
	return nil
}

// sbcDecimal adjusts the accumulator for decimal mode subtraction, the
// flags are handled by the caller from the binary result.
func (c *CPU) sbcDecimal(a, value byte, borrow uint16) {
	lo := uint16(a&0x0f) - uint16(value&0x0f) - borrow
	hi := uint16(a>>4) - uint16(value>>4)
	if lo&0x10 != 0 {
		lo -= 6
		hi--
	}
	if hi&0x10 != 0 {
		hi -= 6
	}
	c.A = byte(hi<<4 | lo&0x0f)
}

func (c *CPU) compare(register byte, op operand) {
	value := c.load(op)
	c.C = register >= value
	c.setNZ(register - value)
}

func (c *CPU) and(op operand) error {
	c.A = c.setNZ(c.A & c.load(op))
	return nil
}

func (c *CPU) ora(op operand) error {
	c.A = c.setNZ(c.A | c.load(op))
	return nil
}

func (c *CPU) eor(op operand) error {
	c.A = c.setNZ(c.A ^ c.load(op))
	return nil
}

func (c *CPU) bit(op operand) error {
	value := c.load(op)
	c.Z = c.A&value == 0
	c.N = value&0x80 != 0
	c.V = value&0x40 != 0
	return nil
}

func (c *CPU) asl(op operand) error {
	value := c.load(op)
	c.C = value&0x80 != 0
	c.store(op, c.setNZ(value<<1))
	return nil
}

func (c *CPU) lsr(op operand) error {
	value := c.load(op)
	c.C = value&0x01 != 0
	c.store(op, c.setNZ(value>>1))
	return nil
}

func (c *CPU) rol(op operand) error {
	value := c.load(op)
	result := value << 1
	if c.C {
		result |= 0x01
	}
	c.C = value&0x80 != 0
	c.store(op, c.setNZ(result))
	return nil
}

func (c *CPU) ror(op operand) error {
	value := c.load(op)
	result := value >> 1
	if c.C {
		result |= 0x80
	}
	c.C = value&0x01 != 0
	c.store(op, c.setNZ(result))
	return nil
}

func (c *CPU) inc(op operand) error {
	c.store(op, c.setNZ(c.load(op)+1))
	return nil
}

func (c *CPU) dec(op operand) error {
	c.store(op, c.setNZ(c.load(op)-1))
	return nil
}

func (c *CPU) jsr(op operand) error {
	// the pushed address is the last byte of the jsr instruction
	if err := c.pushWord(c.PC - 1); err != nil {
		return err
	}
	c.PC = op.address
	return nil
}

func (c *CPU) rts(op operand) error {
	address, err := c.pullWord()
	if err != nil {
		return err
	}
	c.PC = address + 1
	return nil
}

func (c *CPU) rti(op operand) error {
	status, err := c.pull()
	if err != nil {
		return err
	}
	c.setStatusByte(status)
	address, err := c.pullWord()
	if err != nil {
		return err
	}
	c.PC = address
	return nil
}

func (c *CPU) brk(op operand) error {
	// brk pushes the address of the byte after its padding byte
	if err := c.pushWord(c.PC + 1); err != nil {
		return err
	}
	if err := c.push(c.statusByte(true)); err != nil {
		return err
	}
	c.I = true
	c.PC = c.mem.ReadWord(irqVector)
	return nil
}

func (c *CPU) pla(op operand) error {
	value, err := c.pull()
	if err != nil {
		return err
	}
	c.A = c.setNZ(value)
	return nil
}

func (c *CPU) plp(op operand) error {
	status, err := c.pull()
	if err != nil {
		return err
	}
	c.setStatusByte(status)
	return nil
}
