// Package convert orchestrates the extraction of a player binary into the
// tracker container and the rebuild of a standalone binary from container
// contents for round trip validation.
//
// Both directions are stateless pure transformations, no file I/O happens
// here and no state persists between calls.
package convert

import (
	"encoding/binary"
	"fmt"

	"github.com/retroenv/sidgoconv/container"
	"github.com/retroenv/sidgoconv/sequence"
)

// SourceBinary is a player binary with its entry points, as produced by an
// external header parser or ParsePRG plus caller supplied entry points.
type SourceBinary struct {
	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16
	Data        []byte
}

// end returns the exclusive end address of the binary content.
func (s SourceBinary) end() int {
	return int(s.LoadAddress) + len(s.Data)
}

// contains reports whether [start, end) lies inside the binary content.
func (s SourceBinary) contains(start uint16, end int) bool {
	return start >= s.LoadAddress && end <= s.end()
}

// slice returns the content bytes of the address range [start, end).
func (s SourceBinary) slice(start uint16, end int) []byte {
	offset := int(start) - int(s.LoadAddress)
	return s.Data[offset : offset+(end-int(start))]
}

// TableRegion describes where one native table lives in the source binary.
// Its fields mirror the container table descriptor.
type TableRegion struct {
	Type    container.TableType
	ID      byte
	Name    string
	Flags   byte
	Rules   byte
	Address uint16
	Columns uint16
	Rows    uint16
}

// SequenceSource is the packed byte stream of one voice sequence in the
// source binary.
type SequenceSource struct {
	Index byte
	Bytes []byte
}

// Layout describes how a source binary maps onto the container: the player
// code range, the container's fixed code slot, the declared memory window
// and the native tables and sequences.
type Layout struct {
	CodeStart uint16 // player code range in the source image
	CodeEnd   uint16 // exclusive
	CodeSlot  uint16 // container's fixed code address

	WindowStart uint16
	WindowEnd   uint16 // exclusive

	Tables    []TableRegion
	Sequences []SequenceSource

	// Transcode converts a source sequence byte stream into events. When
	// nil the source is assumed to already use the native packed encoding.
	Transcode func([]byte) ([]sequence.Event, error)

	Title    string
	Author   string
	Released string

	Songs       byte
	DefaultSong byte
	Speed       byte
	ChipModel   byte
}

// sequencesTable returns the layout's sequence pointer table region.
func (l Layout) sequencesTable() (TableRegion, bool) {
	for _, table := range l.Tables {
		if table.Type == container.TableSequences {
			return table, true
		}
	}
	return TableRegion{}, false
}

// ParsePRG splits a PRG style binary into its little endian load address
// prefix and content.
func ParsePRG(data []byte) (uint16, []byte, error) {
	if len(data) < 2 {
		return 0, nil, fmt.Errorf("prg of %d bytes misses the load address prefix", len(data))
	}
	load := binary.LittleEndian.Uint16(data)
	content := append([]byte(nil), data[2:]...)
	if int(load)+len(content) > 0x10000 {
		return 0, nil, fmt.Errorf("prg content of %d bytes does not fit at load address #%04x", len(content), load)
	}
	return load, content, nil
}
