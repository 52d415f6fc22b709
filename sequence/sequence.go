// Package sequence implements the codec for the packed per step event
// stream of one voice.
//
// Byte ranges partition the packed stream:
//
//	0x00        rest / gate off
//	0x01..0x7d  note value
//	0x7e        sustain / tie, continues the previous note
//	0x7f        end of sequence marker
//	0x80..0x9f  duration, low 4 bits frame count, bit 4 tie flag
//	0xa0..0xbf  set instrument, low 5 bits table index
//	0xc0..0xff  set command, low 6 bits table index
//
// Set and duration bytes are sticky state that applies to every following
// step byte until changed. Unpack(Pack(events)) reproduces the events for
// any well formed input, byte identity of Pack(Unpack(data)) is not
// guaranteed as redundant set bytes are normalized away.
package sequence

import "fmt"

// Byte range boundaries of the packed stream.
const (
	byteRest       = 0x00
	maxNote        = 0x7d
	byteSustain    = 0x7e
	byteEnd        = 0x7f
	durationBase   = 0x80
	durationTie    = 0x10
	frameMask      = 0x0f
	instrumentBase = 0xa0
	instrumentMask = 0x1f
	commandBase    = 0xc0
	commandMask    = 0x3f
)

// NoIndex marks an unset instrument or command index on an event.
const NoIndex = -1

// Index limits imposed by the packed encoding.
const (
	MaxInstruments = instrumentMask + 1
	MaxCommands    = commandMask + 1
)

// Kind classifies a step event.
type Kind int

const (
	// KindNote starts a new note.
	KindNote Kind = iota
	// KindRest switches the gate off.
	KindRest
	// KindSustain continues the previous note.
	KindSustain
)

// Event is one step of a sequence.
type Event struct {
	Kind       Kind
	Note       byte // note value 0x01..0x7d, only valid for KindNote
	Instrument int  // instrument table index or NoIndex
	Command    int  // command table index or NoIndex
	Frames     int  // duration of the step in frames, 1..15
	Tie        bool // tie flag of the active duration
}

// DecodeError is returned for a malformed packed stream.
type DecodeError struct {
	Offset int
	Value  byte
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("byte 0x%02x at offset %d: %s", e.Value, e.Offset, e.Reason)
}

// EncodeError is returned when an event list can not be represented in the
// packed format.
type EncodeError struct {
	Index  int
	Reason string
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("event %d: %s", e.Index, e.Reason)
}

// IndexError is returned when an event references a nonexistent table index.
type IndexError struct {
	Index int    // event index
	Table string // table kind, instrument or command
	Value int    // offending table index
	Rows  int    // number of rows in the table
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("event %d references %s %d outside of table with %d rows",
		e.Index, e.Table, e.Value, e.Rows)
}

// Unpack decodes a packed stream into its ordered event list. Decoding
// stops at the end of sequence marker or at buffer exhaustion.
func Unpack(data []byte) ([]Event, error) {
	var events []Event

	instrument := NoIndex
	command := NoIndex
	frames := 1
	tie := false

	for offset := 0; offset < len(data); offset++ {
		b := data[offset]

		switch {
		case b == byteEnd:
			return events, nil

		case b >= commandBase:
			command = int(b & commandMask)

		case b >= instrumentBase:
			instrument = int(b & instrumentMask)

		case b >= durationBase:
			count := int(b & frameMask)
			if count == 0 {
				return nil, &DecodeError{Offset: offset, Value: b, Reason: "duration with zero frame count"}
			}
			frames = count
			tie = b&durationTie != 0

		case b == byteSustain:
			events = append(events, Event{
				Kind:       KindSustain,
				Instrument: instrument,
				Command:    command,
				Frames:     frames,
				Tie:        tie,
			})

		case b == byteRest:
			events = append(events, Event{
				Kind:       KindRest,
				Instrument: instrument,
				Command:    command,
				Frames:     frames,
				Tie:        tie,
			})

		default: // 0x01..0x7d
			events = append(events, Event{
				Kind:       KindNote,
				Note:       b,
				Instrument: instrument,
				Command:    command,
				Frames:     frames,
				Tie:        tie,
			})
		}
	}

	return events, nil
}

// Pack encodes an ordered event list into the packed stream format,
// terminated by the end of sequence marker. Set instrument, set command and
// duration bytes are only emitted when their value changes.
func Pack(events []Event) ([]byte, error) {
	var data []byte

	instrument := NoIndex
	command := NoIndex
	frames := 1
	tie := false

	for i, event := range events {
		if event.Frames < 1 || event.Frames > frameMask {
			return nil, &EncodeError{Index: i, Reason: fmt.Sprintf("frame count %d outside of 1..15", event.Frames)}
		}

		if event.Instrument != instrument {
			if event.Instrument < 0 || event.Instrument > instrumentMask {
				return nil, &EncodeError{Index: i, Reason: fmt.Sprintf("instrument index %d outside of 0..31", event.Instrument)}
			}
			data = append(data, instrumentBase|byte(event.Instrument))
			instrument = event.Instrument
		}

		if event.Command != command {
			if event.Command < 0 || event.Command > commandMask {
				return nil, &EncodeError{Index: i, Reason: fmt.Sprintf("command index %d outside of 0..63", event.Command)}
			}
			data = append(data, commandBase|byte(event.Command))
			command = event.Command
		}

		if event.Frames != frames || event.Tie != tie {
			b := durationBase | byte(event.Frames)
			if event.Tie {
				b |= durationTie
			}
			data = append(data, b)
			frames = event.Frames
			tie = event.Tie
		}

		switch event.Kind {
		case KindRest:
			data = append(data, byteRest)

		case KindSustain:
			data = append(data, byteSustain)

		case KindNote:
			if event.Note < 1 || event.Note > maxNote {
				return nil, &EncodeError{Index: i, Reason: fmt.Sprintf("note value 0x%02x outside of 0x01..0x7d", event.Note)}
			}
			data = append(data, event.Note)

		default:
			return nil, &EncodeError{Index: i, Reason: fmt.Sprintf("unknown event kind %d", event.Kind)}
		}
	}

	data = append(data, byteEnd)
	return data, nil
}

// Validate checks that every instrument and command reference of the events
// resolves in a table of the given row counts.
func Validate(events []Event, instrumentRows, commandRows int) error {
	for i, event := range events {
		if event.Instrument != NoIndex && event.Instrument >= instrumentRows {
			return &IndexError{Index: i, Table: "instrument", Value: event.Instrument, Rows: instrumentRows}
		}
		if event.Command != NoIndex && event.Command >= commandRows {
			return &IndexError{Index: i, Table: "command", Value: event.Command, Rows: commandRows}
		}
	}
	return nil
}
