package relocate

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

// player is a small routine with one internal absolute reference, one
// reference to a hardware register and one relative branch:
//
//	0x1000: lda $1005
//	0x1003: sta $d400
//	0x1006: bne $1000
//	0x1008: jmp $1005
var player = []byte{
	0xad, 0x05, 0x10,
	0x8d, 0x00, 0xd4,
	0xd0, 0xf8,
	0x4c, 0x05, 0x10,
}

func TestRelocate(t *testing.T) {
	relocated, patches, err := Relocate(player, 0x1000, 0x2000)
	assert.NoError(t, err)

	assert.Equal(t, []byte{
		0xad, 0x05, 0x20,
		0x8d, 0x00, 0xd4,
		0xd0, 0xf8,
		0x4c, 0x05, 0x20,
	}, relocated)

	assert.Equal(t, []Patch{
		{Offset: 1, Address: 0x1001, Old: 0x1005, New: 0x2005},
		{Offset: 9, Address: 0x1009, Old: 0x1005, New: 0x2005},
	}, patches)

	// the input stays untouched
	assert.Equal(t, byte(0x10), player[2])
}

func TestRelocateZeroOffset(t *testing.T) {
	relocated, patches, err := Relocate(player, 0x1000, 0x1000)

	assert.NoError(t, err)
	assert.Equal(t, player, relocated)
	assert.Equal(t, 0, len(patches))
}

func TestRelocateExternalAddressUntouched(t *testing.T) {
	// sta $d400 - the only absolute operand targets a hardware register
	// outside of the code's own range
	code := []byte{0x8d, 0x00, 0xd4, 0x60}

	relocated, patches, err := Relocate(code, 0x1000, 0x8000)

	assert.NoError(t, err)
	assert.Equal(t, code, relocated)
	assert.Equal(t, 0, len(patches))
}

func TestRelocatePatchesExactlyInRangeOperands(t *testing.T) {
	// operand values around both range borders of [0x1000, 0x1009)
	code := []byte{
		0xad, 0xff, 0x0f, // lda $0fff - one below the range
		0xad, 0x00, 0x10, // lda $1000 - first address in range
		0xad, 0x08, 0x10, // lda $1008 - last address in range
	}
	if len(code) != 9 {
		t.Fatalf("unexpected test code length %d", len(code))
	}

	relocated, patches, err := Relocate(code, 0x1000, 0x3000)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(patches))
	assert.Equal(t, Patch{Offset: 4, Address: 0x1004, Old: 0x1000, New: 0x3000}, patches[0])
	assert.Equal(t, Patch{Offset: 7, Address: 0x1007, Old: 0x1008, New: 0x3008}, patches[1])
	assert.Equal(t, byte(0x0f), relocated[2])
	assert.Equal(t, byte(0x30), relocated[5])
}

func TestRelocateUnalignedDecode(t *testing.T) {
	tests := []struct {
		name       string
		code       []byte
		wantOffset int
	}{
		{name: "truncated absolute operand", code: []byte{0xea, 0xad, 0x05}, wantOffset: 1},
		{name: "undefined opcode", code: []byte{0xea, 0x02, 0x60}, wantOffset: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Relocate(tt.code, 0x1000, 0x2000)

			var decodeErr *UnalignedDecodeError
			assert.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.wantOffset, decodeErr.Offset)
		})
	}
}

func TestRelocateOutOfRangeTarget(t *testing.T) {
	code := []byte{
		0xad, 0x05, 0x10, // lda $1005 - in range
		0xea, 0xea, 0x60,
	}

	_, _, err := Relocate(code, 0x1000, 0xfffd)

	var rangeErr *OutOfRangeTargetError
	assert.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, 0x10002, rangeErr.Target)
}
