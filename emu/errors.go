package emu

import "fmt"

// IllegalOpcodeError is returned when execution hits an opcode outside the
// official instruction set and the fail policy is active.
type IllegalOpcodeError struct {
	PC     uint16
	Opcode byte
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode 0x%02x at #%04x", e.Opcode, e.PC)
}

// DivergedError is returned when a routine call exceeds its instruction
// ceiling without returning. It is recoverable, the captured trace up to
// this point stays valid but incomplete.
type DivergedError struct {
	Entry    uint16
	Executed int
}

func (e *DivergedError) Error() string {
	return fmt.Sprintf("routine at #%04x did not return after %d instructions", e.Entry, e.Executed)
}

// StackOverflowError is returned when a push would leave the stack page.
type StackOverflowError struct {
	PC uint16
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("stack overflow at #%04x", e.PC)
}

// StackUnderflowError is returned when a pull passes the return frame
// planted by the routine call.
type StackUnderflowError struct {
	PC uint16
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("stack underflow at #%04x", e.PC)
}
