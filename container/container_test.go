package container

import (
	"bytes"
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func testContainer() *Container {
	return &Container{
		LoadAddress: 0x0900,
		WindowEnd:   0x4000,
		Descriptor: Descriptor{
			Title:    "Test Tune",
			Author:   "Tester",
			Released: "2024 Testing",
		},
		Common: Common{
			InitAddress: 0x0d00,
			PlayAddress: 0x0d21,
			Songs:       1,
			DefaultSong: 0,
			Speed:       1,
			ChipModel:   0,
		},
		Tables: []TableDescriptor{
			{Type: TableInstruments, ID: 1, Name: "Instruments", Flags: 1, Rules: 0,
				Address: 0x1800, Columns: 8, Rows: 4},
			{Type: TableWave, ID: 2, Name: "Wave", Address: 0x2222, Columns: 2, Rows: 8},
			{Type: TableSequences, ID: 5, Name: "Sequences", Address: 0x1400, Columns: 2, Rows: 2},
		},
		CodeAddress: 0x0d00,
		Code:        []byte{0xa9, 0x00, 0x8d, 0x00, 0xd4, 0x60},
		Streams: []PackedStream{
			{TableID: 1, Index: 0, Data: bytes.Repeat([]byte{0x11}, 32)},
			{TableID: 2, Index: 0, Data: bytes.Repeat([]byte{0x22}, 16)},
			{TableID: 5, Index: 0, Data: []byte{0xa0, 0x24, 0x7f}},
			{TableID: 5, Index: 1, Data: []byte{0x30, 0x7e, 0x7f}},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := testContainer()

	data, err := Encode(c)
	assert.NoError(t, err)

	decoded, err := Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, c, decoded)
}

func TestDecodeTruncatedBuffer(t *testing.T) {
	data, err := Encode(testContainer())
	assert.NoError(t, err)

	// cutting the buffer anywhere must yield a truncation or block error,
	// never an out of bounds access
	for size := 0; size < len(data)-1; size++ {
		_, err := Decode(data[:size])
		assert.Error(t, err)
	}
}

func TestDecodeTruncatedLengthPrefix(t *testing.T) {
	data, err := Encode(testContainer())
	assert.NoError(t, err)

	// keep the header and the first block type byte plus one length byte
	_, err = Decode(data[:headerSize+2])

	var truncated *TruncatedBufferError
	assert.True(t, errors.As(err, &truncated))
}

func TestDecodeBadMagic(t *testing.T) {
	data, err := Encode(testContainer())
	assert.NoError(t, err)
	data[0] = 'X'

	_, err = Decode(data)

	var badMagic *BadMagicError
	assert.True(t, errors.As(err, &badMagic))
}

func TestDecodeOverlappingTables(t *testing.T) {
	data, err := Encode(testContainer())
	assert.NoError(t, err)

	// move the wave table from its unique address 0x2222 to 0x181f so that
	// it overlaps the last byte of the instruments table at 0x1800-0x181f
	patched := bytes.Replace(data, []byte{0x22, 0x22}, []byte{0x1f, 0x18}, 1)

	_, err = Decode(patched)

	var overlap *OverlappingTablesError
	assert.True(t, errors.As(err, &overlap))
	assert.Equal(t, byte(1), overlap.FirstID)
	assert.Equal(t, byte(2), overlap.SecondID)
}

func TestValidateOverlapByOneByte(t *testing.T) {
	c := testContainer()
	// instruments table covers 0x1800-0x181f
	c.Tables[1].Address = 0x181f

	err := Validate(c)

	var overlap *OverlappingTablesError
	assert.True(t, errors.As(err, &overlap))
	assert.Equal(t, byte(1), overlap.FirstID)
	assert.Equal(t, byte(2), overlap.SecondID)
}

func TestValidateAddressOutOfWindow(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Container)
	}{
		{
			name:   "table end past window",
			modify: func(c *Container) { c.Tables[1].Address = 0x3fff },
		},
		{
			name:   "table start below window",
			modify: func(c *Container) { c.Tables[1].Address = 0x08ff },
		},
		{
			name:   "code below window",
			modify: func(c *Container) { c.CodeAddress = 0x0100 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContainer()
			tt.modify(c)

			err := Validate(c)

			var window *AddressOutOfWindowError
			assert.True(t, errors.As(err, &window))
		})
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Container)
	}{
		{
			name:   "duplicate table id",
			modify: func(c *Container) { c.Tables[1].ID = 1 },
		},
		{
			name:   "empty table shape",
			modify: func(c *Container) { c.Tables[0].Columns = 0 },
		},
		{
			name:   "code overlaps table",
			modify: func(c *Container) { c.CodeAddress = 0x17fb },
		},
		{
			name:   "stream references unknown table",
			modify: func(c *Container) { c.Streams[0].TableID = 9 },
		},
		{
			name:   "empty memory window",
			modify: func(c *Container) { c.WindowEnd = c.LoadAddress },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testContainer()
			tt.modify(c)

			assert.Error(t, Validate(c))
		})
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	data, err := Encode(testContainer())
	assert.NoError(t, err)
	data = append(data, 0x00)

	_, err = Decode(data)

	var block *BlockError
	assert.True(t, errors.As(err, &block))
}

func TestEncodeInvalidContainer(t *testing.T) {
	c := testContainer()
	c.Tables[1].Address = c.Tables[0].Address

	_, err := Encode(c)
	assert.Error(t, err)
}
