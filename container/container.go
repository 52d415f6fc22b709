// Package container implements the binary tracker container that holds the
// relocated player code, its editable tables and the packed event streams.
package container

import "fmt"

// TableType classifies an editable table.
type TableType byte

// Table types of the container.
const (
	TableInstruments TableType = 0x01
	TableWave        TableType = 0x02
	TablePulse       TableType = 0x03
	TableFilter      TableType = 0x04
	TableSequences   TableType = 0x05
)

func (t TableType) String() string {
	switch t {
	case TableInstruments:
		return "instruments"
	case TableWave:
		return "wave"
	case TablePulse:
		return "pulse"
	case TableFilter:
		return "filter"
	case TableSequences:
		return "sequences"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

// TableDescriptor describes one editable table inside the container memory
// window. Created once at build time and immutable thereafter.
type TableDescriptor struct {
	Type    TableType
	ID      byte
	Name    string
	Flags   byte // layout flags, bit 0 set for row major layout
	Rules   byte // edit rule bits for the editor
	Address uint16
	Columns uint16
	Rows    uint16
}

// Size returns the byte size of the table content.
func (t TableDescriptor) Size() int {
	return int(t.Columns) * int(t.Rows)
}

// End returns the exclusive end address of the table content.
func (t TableDescriptor) End() int {
	return int(t.Address) + t.Size()
}

// Descriptor contains the textual metadata of the contained tune.
type Descriptor struct {
	Title    string
	Author   string
	Released string
}

// Common contains the playback parameters shared by all songs.
type Common struct {
	InitAddress uint16
	PlayAddress uint16
	Songs       byte
	DefaultSong byte
	Speed       byte // play routine calls per frame
	ChipModel   byte
}

// PackedStream is one packed data payload belonging to a table, either a
// packed event stream of a sequence or the verbatim content bytes of a
// non sequence table.
type PackedStream struct {
	TableID byte
	Index   byte
	Data    []byte
}

// Container is the in-memory representation of a whole container file,
// built once per export and exclusively owned during its lifetime.
type Container struct {
	LoadAddress uint16
	WindowEnd   uint16 // exclusive end of the declared memory window

	Descriptor Descriptor
	Common     Common
	Tables     []TableDescriptor

	CodeAddress uint16
	Code        []byte

	Streams []PackedStream
}

// Table returns the table descriptor with the given id.
func (c *Container) Table(id byte) (TableDescriptor, bool) {
	for _, table := range c.Tables {
		if table.ID == id {
			return table, true
		}
	}
	return TableDescriptor{}, false
}

// TableByType returns the first table descriptor of the given type.
func (c *Container) TableByType(typ TableType) (TableDescriptor, bool) {
	for _, table := range c.Tables {
		if table.Type == typ {
			return table, true
		}
	}
	return TableDescriptor{}, false
}

// TableStreams returns all packed streams belonging to a table id in
// container order.
func (c *Container) TableStreams(id byte) []PackedStream {
	var streams []PackedStream
	for _, stream := range c.Streams {
		if stream.TableID == id {
			streams = append(streams, stream)
		}
	}
	return streams
}
