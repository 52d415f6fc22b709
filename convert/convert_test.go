package convert

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidgoconv/container"
	"github.com/retroenv/sidgoconv/emu"
	"github.com/retroenv/sidgoconv/memory"
	"github.com/retroenv/sidgoconv/options"
	"github.com/retroenv/sidgoconv/sequence"
)

// testSource builds a synthetic player binary at 0x1000:
//
//	0x1000 init: lda #$00      - reset the step counter
//	0x1002       sta $10
//	0x1004       rts
//	0x1005 play: inc $10
//	0x1007       lda $10
//	0x1009       and #$03
//	0x100b       tax
//	0x100c       lda $1040,x   - instrument table, outside the code range
//	0x100f       sta $d404
//	0x1012       jsr $1016     - internal call, must survive relocation
//	0x1015       rts
//	0x1016       lda $1050     - wave table
//	0x1019       sta $d400
//	0x101c       rts
//
// The instrument table lives at 0x1040, the wave table at 0x1050.
func testSource() SourceBinary {
	data := make([]byte, 0x60)
	copy(data, []byte{
		0xa9, 0x00,
		0x85, 0x10,
		0x60,
		0xe6, 0x10,
		0xa5, 0x10,
		0x29, 0x03,
		0xaa,
		0xbd, 0x40, 0x10,
		0x8d, 0x04, 0xd4,
		0x20, 0x16, 0x10,
		0x60,
		0xad, 0x50, 0x10,
		0x8d, 0x00, 0xd4,
		0x60,
	})
	copy(data[0x40:], []byte{0x11, 0x22, 0x33, 0x44})
	copy(data[0x50:], []byte{0x41, 0x81})

	return SourceBinary{
		LoadAddress: 0x1000,
		InitAddress: 0x1000,
		PlayAddress: 0x1005,
		Data:        data,
	}
}

func testLayout() Layout {
	return Layout{
		CodeStart:   0x1000,
		CodeEnd:     0x101d,
		CodeSlot:    0x0d00,
		WindowStart: 0x0900,
		WindowEnd:   0x4000,
		Tables: []TableRegion{
			{Type: container.TableInstruments, ID: 1, Name: "Instruments",
				Address: 0x1040, Columns: 1, Rows: 4},
			{Type: container.TableWave, ID: 2, Name: "Wave",
				Address: 0x1050, Columns: 1, Rows: 2},
			{Type: container.TableSequences, ID: 5, Name: "Sequences",
				Address: 0x1400, Columns: 2, Rows: 2},
		},
		Sequences: []SequenceSource{
			{Index: 0, Bytes: []byte{0xa0, 0x24, 0x7f}},
			{Index: 1, Bytes: []byte{0xa1, 0x30, 0x7e, 0x7f}},
		},
		Title:    "Test Tune",
		Author:   "Tester",
		Released: "2024 Testing",
		Songs:    1,
		Speed:    1,
	}
}

// trace runs the player for the given number of frames and returns its
// register write sequence.
func trace(t *testing.T, load uint16, data []byte, init, play uint16, frames int) []emu.RegisterWrite {
	t.Helper()

	mem, err := memory.New(load, data)
	assert.NoError(t, err)

	runner := emu.NewRunner(log.NewTestLogger(t), mem, play, frames,
		&emu.InitCall{Address: init}, options.NewEmulation())
	events := runner.Events()
	assert.NoError(t, runner.Err())

	diverged, _ := runner.Diverged()
	assert.False(t, diverged)
	return events
}

func TestExtract(t *testing.T) {
	logger := log.NewTestLogger(t)
	src := testSource()

	c, err := Extract(logger, src, testLayout())
	assert.NoError(t, err)

	assert.Equal(t, uint16(0x0d00), c.CodeAddress)
	assert.Equal(t, uint16(0x0d00), c.Common.InitAddress)
	assert.Equal(t, uint16(0x0d05), c.Common.PlayAddress)
	assert.Equal(t, 0x1d, len(c.Code))

	// the internal jsr operand moved with the code
	assert.Equal(t, byte(0x16), c.Code[0x13])
	assert.Equal(t, byte(0x0d), c.Code[0x14])
	// the table reference stayed put
	assert.Equal(t, byte(0x40), c.Code[0x0d])
	assert.Equal(t, byte(0x10), c.Code[0x0e])

	streams := c.TableStreams(1)
	assert.Len(t, streams, 1)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, streams[0].Data)

	streams = c.TableStreams(5)
	assert.Len(t, streams, 2)
	assert.Equal(t, []byte{0xa0, 0x24, 0x7f}, streams[0].Data)
	assert.Equal(t, []byte{0xa1, 0x30, 0x7e, 0x7f}, streams[1].Data)
}

func TestExtractRejectsBadLayout(t *testing.T) {
	tests := []struct {
		name   string
		modify func(l *Layout)
	}{
		{
			name:   "empty code range",
			modify: func(l *Layout) { l.CodeEnd = l.CodeStart },
		},
		{
			name:   "code range outside source",
			modify: func(l *Layout) { l.CodeEnd = 0x1100 },
		},
		{
			name:   "table outside source",
			modify: func(l *Layout) { l.Tables[0].Address = 0x1060 },
		},
		{
			name:   "sequence referencing missing instrument",
			modify: func(l *Layout) { l.Sequences[0].Bytes = []byte{0xa4, 0x24, 0x7f} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout := testLayout()
			tt.modify(&layout)

			_, err := Extract(log.NewTestLogger(t), testSource(), layout)
			assert.Error(t, err)
		})
	}
}

func TestExtractEntryOutsideCodeRange(t *testing.T) {
	src := testSource()
	src.PlayAddress = 0x1040

	_, err := Extract(log.NewTestLogger(t), src, testLayout())
	assert.Error(t, err)
}

func TestExtractTranscode(t *testing.T) {
	layout := testLayout()
	layout.Sequences = []SequenceSource{{Index: 0, Bytes: []byte{0x24, 0x25}}}
	layout.Transcode = func(data []byte) ([]sequence.Event, error) {
		var events []sequence.Event
		for _, b := range data {
			events = append(events, sequence.Event{
				Kind: sequence.KindNote, Note: b,
				Instrument: sequence.NoIndex, Command: sequence.NoIndex, Frames: 1,
			})
		}
		return events, nil
	}

	c, err := Extract(log.NewTestLogger(t), testSource(), layout)
	assert.NoError(t, err)

	streams := c.TableStreams(5)
	assert.Len(t, streams, 1)
	assert.Equal(t, []byte{0x24, 0x25, 0x7f}, streams[0].Data)
}

func TestRebuildSequencePointerTable(t *testing.T) {
	logger := log.NewTestLogger(t)

	c, err := Extract(logger, testSource(), testLayout())
	assert.NoError(t, err)

	standalone, err := Rebuild(logger, c, 0x2000)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1040), standalone.LoadAddress)

	content := standalone.PRG[2:]
	offset := 0x1400 - int(standalone.LoadAddress)

	// column major lo/hi pointers, data follows the 2*2 byte pointer table
	assert.Equal(t, []byte{0x04, 0x07, 0x14, 0x14}, content[offset:offset+4])
	assert.Equal(t, []byte{0xa0, 0x24, 0x7f}, content[offset+4:offset+7])
	assert.Equal(t, []byte{0xa1, 0x30, 0x7e, 0x7f}, content[offset+7:offset+11])
}

// TestRoundTrip extracts the synthetic player into a container, pushes it
// through the wire format, rebuilds a standalone binary at a new base and
// compares the register write traces of the source and the rebuilt binary.
func TestRoundTrip(t *testing.T) {
	logger := log.NewTestLogger(t)
	src := testSource()

	c, err := Extract(logger, src, testLayout())
	assert.NoError(t, err)

	data, err := container.Encode(c)
	assert.NoError(t, err)
	decoded, err := container.Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, c, decoded)

	standalone, err := Rebuild(logger, decoded, 0x2000)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x2000), standalone.InitAddress)
	assert.Equal(t, uint16(0x2005), standalone.PlayAddress)

	load, content, err := ParsePRG(standalone.PRG)
	assert.NoError(t, err)
	assert.Equal(t, standalone.LoadAddress, load)

	const frames = 6
	want := trace(t, src.LoadAddress, src.Data, src.InitAddress, src.PlayAddress, frames)
	got := trace(t, load, content, standalone.InitAddress, standalone.PlayAddress, frames)

	assert.NotEmpty(t, want)
	assert.Equal(t, want, got)
}

func TestParsePRG(t *testing.T) {
	load, content, err := ParsePRG([]byte{0x00, 0x10, 0xa9, 0x00, 0x60})
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x1000), load)
	assert.Equal(t, []byte{0xa9, 0x00, 0x60}, content)

	_, _, err = ParsePRG([]byte{0x00})
	assert.Error(t, err)

	_, _, err = ParsePRG(append([]byte{0xff, 0xff}, make([]byte, 2)...))
	assert.Error(t, err)
}
