package container

import "fmt"

// TruncatedBufferError is returned when the buffer ends inside a header,
// length prefix or payload.
type TruncatedBufferError struct {
	Offset int
	Needed int
}

func (e *TruncatedBufferError) Error() string {
	return fmt.Sprintf("buffer truncated at offset %d, %d more bytes needed", e.Offset, e.Needed)
}

// BadMagicError is returned when the buffer does not start with the
// container magic value.
type BadMagicError struct {
	Magic []byte
}

func (e *BadMagicError) Error() string {
	return fmt.Sprintf("bad magic value %q", e.Magic)
}

// OverlappingTablesError is returned when the address ranges of two tables
// overlap.
type OverlappingTablesError struct {
	FirstID  byte
	SecondID byte
}

func (e *OverlappingTablesError) Error() string {
	return fmt.Sprintf("address ranges of tables %d and %d overlap", e.FirstID, e.SecondID)
}

// AddressOutOfWindowError is returned when a referenced address range does
// not lie within the declared memory window.
type AddressOutOfWindowError struct {
	What    string
	Address uint16
	End     int
}

func (e *AddressOutOfWindowError) Error() string {
	return fmt.Sprintf("%s range #%04x-#%04x outside of memory window", e.What, e.Address, e.End-1)
}

// BlockError is returned for a structurally invalid block.
type BlockError struct {
	Offset int
	Type   byte
	Reason string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block 0x%02x at offset %d: %s", e.Type, e.Offset, e.Reason)
}
