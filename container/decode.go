package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Decode parses a container file buffer into its in-memory representation.
// All structural errors carry the byte offset they were detected at, a
// truncated or corrupted buffer never causes an out of bounds access.
func Decode(data []byte) (*Container, error) {
	if len(data) < headerSize {
		return nil, &TruncatedBufferError{Offset: len(data), Needed: headerSize - len(data)}
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, &BadMagicError{Magic: data[:len(magic)]}
	}

	c := &Container{
		LoadAddress: binary.LittleEndian.Uint16(data[4:]),
		WindowEnd:   binary.LittleEndian.Uint16(data[6:]),
	}

	r := &reader{data: data, offset: headerSize}
	if err := decodeBlocks(r, c); err != nil {
		return nil, err
	}
	if r.offset != len(data) {
		return nil, &BlockError{Offset: r.offset, Type: endMarker,
			Reason: fmt.Sprintf("%d trailing bytes after end marker", len(data)-r.offset)}
	}

	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("validating container: %w", err)
	}
	return c, nil
}

func decodeBlocks(r *reader, c *Container) error {
	for {
		typ, err := r.byte()
		if err != nil {
			return err
		}
		if typ == endMarker {
			return nil
		}

		blockOffset := r.offset - 1
		length, err := r.word()
		if err != nil {
			return err
		}
		payload, err := r.take(int(length))
		if err != nil {
			return err
		}

		block := &reader{data: payload, base: r.offset - len(payload)}
		switch typ {
		case blockDescriptor:
			err = decodeDescriptor(block, c)
		case blockCommon:
			err = decodeCommon(block, c)
		case blockTables:
			err = decodeTables(block, c)
		case blockCode:
			err = decodeCode(block, c)
		case blockPacked:
			err = decodeStreams(block, c)
		default:
			return &BlockError{Offset: blockOffset, Type: typ, Reason: "unknown block type"}
		}
		if err != nil {
			return err
		}
		if block.offset != len(payload) {
			return &BlockError{Offset: blockOffset, Type: typ,
				Reason: fmt.Sprintf("%d unconsumed payload bytes", len(payload)-block.offset)}
		}
	}
}

func decodeDescriptor(r *reader, c *Container) error {
	var err error
	if c.Descriptor.Title, err = r.str(); err != nil {
		return err
	}
	if c.Descriptor.Author, err = r.str(); err != nil {
		return err
	}
	c.Descriptor.Released, err = r.str()
	return err
}

func decodeCommon(r *reader, c *Container) error {
	init, err := r.word()
	if err != nil {
		return err
	}
	play, err := r.word()
	if err != nil {
		return err
	}
	rest, err := r.take(4)
	if err != nil {
		return err
	}
	c.Common = Common{
		InitAddress: init,
		PlayAddress: play,
		Songs:       rest[0],
		DefaultSong: rest[1],
		Speed:       rest[2],
		ChipModel:   rest[3],
	}
	return nil
}

func decodeTables(r *reader, c *Container) error {
	count, err := r.byte()
	if err != nil {
		return err
	}

	for i := 0; i < int(count); i++ {
		head, err := r.take(2)
		if err != nil {
			return err
		}
		name, err := r.str()
		if err != nil {
			return err
		}
		body, err := r.take(8)
		if err != nil {
			return err
		}

		c.Tables = append(c.Tables, TableDescriptor{
			Type:    TableType(head[0]),
			ID:      head[1],
			Name:    name,
			Flags:   body[0],
			Rules:   body[1],
			Address: binary.LittleEndian.Uint16(body[2:]),
			Columns: binary.LittleEndian.Uint16(body[4:]),
			Rows:    binary.LittleEndian.Uint16(body[6:]),
		})
	}
	return nil
}

func decodeCode(r *reader, c *Container) error {
	address, err := r.word()
	if err != nil {
		return err
	}
	c.CodeAddress = address
	c.Code = append([]byte(nil), r.rest()...)
	return nil
}

func decodeStreams(r *reader, c *Container) error {
	count, err := r.byte()
	if err != nil {
		return err
	}

	for i := 0; i < int(count); i++ {
		head, err := r.take(2)
		if err != nil {
			return err
		}
		length, err := r.word()
		if err != nil {
			return err
		}
		data, err := r.take(int(length))
		if err != nil {
			return err
		}

		c.Streams = append(c.Streams, PackedStream{
			TableID: head[0],
			Index:   head[1],
			Data:    append([]byte(nil), data...),
		})
	}
	return nil
}

// reader is a bounds checked cursor over a buffer. base is added to offsets
// in errors so that block payload readers report file absolute offsets.
type reader struct {
	data   []byte
	base   int
	offset int
}

func (r *reader) byte() (byte, error) {
	if r.offset >= len(r.data) {
		return 0, &TruncatedBufferError{Offset: r.base + r.offset, Needed: 1}
	}
	b := r.data[r.offset]
	r.offset++
	return b, nil
}

func (r *reader) word() (uint16, error) {
	buf, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

func (r *reader) take(n int) ([]byte, error) {
	if r.offset+n > len(r.data) {
		return nil, &TruncatedBufferError{Offset: r.base + len(r.data), Needed: r.offset + n - len(r.data)}
	}
	buf := r.data[r.offset : r.offset+n]
	r.offset += n
	return buf, nil
}

func (r *reader) str() (string, error) {
	length, err := r.byte()
	if err != nil {
		return "", err
	}
	buf, err := r.take(int(length))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (r *reader) rest() []byte {
	buf := r.data[r.offset:]
	r.offset = len(r.data)
	return buf
}
