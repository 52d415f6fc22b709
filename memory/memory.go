// Package memory provides the 64KB memory image that emulation and
// relocation operate on.
package memory

import "fmt"

// Size of the addressable memory space.
const Size = 0x10000

// Image is a full 64KB memory image with a load address. An image is
// exclusively owned by one emulator or relocator invocation, it is mutable
// during emulation and read only during relocation.
type Image struct {
	load uint16
	data [Size]byte
}

// New creates a memory image with the given data placed at the load address.
// Data that would extend past the end of the address space is rejected.
func New(load uint16, data []byte) (*Image, error) {
	if int(load)+len(data) > Size {
		return nil, fmt.Errorf("data of size %d does not fit at load address #%04x", len(data), load)
	}
	img := &Image{load: load}
	copy(img.data[load:], data)
	return img, nil
}

// LoadAddress returns the address the image content was loaded at.
func (img *Image) LoadAddress() uint16 {
	return img.load
}

// Read returns the byte at the given address.
func (img *Image) Read(address uint16) byte {
	return img.data[address]
}

// Write sets the byte at the given address.
func (img *Image) Write(address uint16, value byte) {
	img.data[address] = value
}

// ReadWord reads a little endian word.
func (img *Image) ReadWord(address uint16) uint16 {
	low := uint16(img.data[address])
	high := uint16(img.data[address+1])
	return high<<8 | low
}

// ReadWordBug reads a word from a memory address and emulates a 6502 bug
// that causes the low byte of the address to wrap without incrementing the
// high byte, used by the indirect jump instruction.
func (img *Image) ReadWordBug(address uint16) uint16 {
	low := uint16(img.data[address])
	address = address&0xff00 | uint16(byte(address)+1)
	high := uint16(img.data[address])
	return high<<8 | low
}

// Copy returns a deep copy of the image, used to snapshot state for
// restartable emulation runs.
func (img *Image) Copy() *Image {
	clone := &Image{load: img.load}
	clone.data = img.data
	return clone
}

// Slice returns a copy of the memory content in [start, end).
func (img *Image) Slice(start, end uint16) []byte {
	buf := make([]byte, int(end)-int(start))
	copy(buf, img.data[start:end])
	return buf
}
