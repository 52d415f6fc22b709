package container

import (
	"encoding/binary"
	"fmt"
)

// Block types of the container file format.
const (
	blockDescriptor = 0x01
	blockCommon     = 0x02
	blockTables     = 0x03
	blockCode       = 0x04
	blockPacked     = 0x05
	endMarker       = 0xff
)

// magic identifies a container file, the last byte is the format version.
var magic = []byte{'S', 'T', 'C', 0x01}

const headerSize = 8 // magic + load address + window end

// maxBlockSize is the payload limit imposed by the 2 byte length prefix.
const maxBlockSize = 0xffff

// Encode serializes the container into its binary file format. The
// container is validated first so that no undecodable file can be written.
func Encode(c *Container) ([]byte, error) {
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("validating container: %w", err)
	}

	buf := make([]byte, 0, headerSize+len(c.Code)+256)
	buf = append(buf, magic...)
	buf = appendWord(buf, c.LoadAddress)
	buf = appendWord(buf, c.WindowEnd)

	var err error
	if buf, err = appendBlock(buf, blockDescriptor, encodeDescriptor(c.Descriptor)); err != nil {
		return nil, err
	}
	if buf, err = appendBlock(buf, blockCommon, encodeCommon(c.Common)); err != nil {
		return nil, err
	}

	tables, err := encodeTables(c.Tables)
	if err != nil {
		return nil, err
	}
	if buf, err = appendBlock(buf, blockTables, tables); err != nil {
		return nil, err
	}

	code := make([]byte, 0, len(c.Code)+2)
	code = appendWord(code, c.CodeAddress)
	code = append(code, c.Code...)
	if buf, err = appendBlock(buf, blockCode, code); err != nil {
		return nil, err
	}

	packed, err := encodeStreams(c.Streams)
	if err != nil {
		return nil, err
	}
	if buf, err = appendBlock(buf, blockPacked, packed); err != nil {
		return nil, err
	}

	buf = append(buf, endMarker)
	return buf, nil
}

func appendBlock(buf []byte, typ byte, payload []byte) ([]byte, error) {
	if len(payload) > maxBlockSize {
		return nil, &BlockError{Offset: len(buf), Type: typ,
			Reason: fmt.Sprintf("payload of %d bytes exceeds block size limit", len(payload))}
	}
	buf = append(buf, typ)
	buf = appendWord(buf, uint16(len(payload)))
	return append(buf, payload...), nil
}

func encodeDescriptor(d Descriptor) []byte {
	buf := appendString(nil, d.Title)
	buf = appendString(buf, d.Author)
	return appendString(buf, d.Released)
}

func encodeCommon(c Common) []byte {
	buf := appendWord(nil, c.InitAddress)
	buf = appendWord(buf, c.PlayAddress)
	return append(buf, c.Songs, c.DefaultSong, c.Speed, c.ChipModel)
}

func encodeTables(tables []TableDescriptor) ([]byte, error) {
	if len(tables) > 0xff {
		return nil, fmt.Errorf("%d tables exceed the count limit", len(tables))
	}

	buf := []byte{byte(len(tables))}
	for _, table := range tables {
		if len(table.Name) > 0xff {
			return nil, fmt.Errorf("name of table %d exceeds 255 bytes", table.ID)
		}
		buf = append(buf, byte(table.Type), table.ID)
		buf = appendString(buf, table.Name)
		buf = append(buf, table.Flags, table.Rules)
		buf = appendWord(buf, table.Address)
		buf = appendWord(buf, table.Columns)
		buf = appendWord(buf, table.Rows)
	}
	return buf, nil
}

func encodeStreams(streams []PackedStream) ([]byte, error) {
	if len(streams) > 0xff {
		return nil, fmt.Errorf("%d packed streams exceed the count limit", len(streams))
	}

	buf := []byte{byte(len(streams))}
	for i, stream := range streams {
		if len(stream.Data) > maxBlockSize {
			return nil, fmt.Errorf("packed stream %d exceeds the size limit", i)
		}
		buf = append(buf, stream.TableID, stream.Index)
		buf = appendWord(buf, uint16(len(stream.Data)))
		buf = append(buf, stream.Data...)
	}
	return buf, nil
}

func appendWord(buf []byte, value uint16) []byte {
	var word [2]byte
	binary.LittleEndian.PutUint16(word[:], value)
	return append(buf, word[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}
