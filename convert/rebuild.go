package convert

import (
	"fmt"
	"sort"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidgoconv/container"
	"github.com/retroenv/sidgoconv/relocate"
)

// Standalone is a loadable binary rebuilt from container contents, used for
// validation playback by an external renderer or the emulator.
type Standalone struct {
	LoadAddress uint16
	InitAddress uint16
	PlayAddress uint16
	PRG         []byte // load address prefix followed by the image content
}

// Rebuild re-emits a standalone binary from a container: the player code is
// re-relocated to newBase, table contents are placed at their descriptor
// addresses and the packed sequences are laid out behind a lo/hi pointer
// table at the sequence table address.
func Rebuild(logger *log.Logger, c *container.Container, newBase uint16) (*Standalone, error) {
	if err := container.Validate(c); err != nil {
		return nil, fmt.Errorf("validating container: %w", err)
	}

	code, patches, err := relocate.Relocate(c.Code, c.CodeAddress, newBase)
	if err != nil {
		return nil, fmt.Errorf("relocating code to #%04x: %w", newBase, err)
	}
	logger.Debug("relocated player code",
		log.String("base", fmt.Sprintf("0x%04X", newBase)),
		log.String("patches", fmt.Sprintf("%d", len(patches))))

	image := newImageBuilder()
	if err := image.place("code", int(newBase), code); err != nil {
		return nil, err
	}

	if err := placeTables(image, c); err != nil {
		return nil, err
	}
	if err := placeSequences(image, c); err != nil {
		return nil, err
	}

	start, content := image.content()
	return &Standalone{
		LoadAddress: uint16(start),
		InitAddress: c.Common.InitAddress - c.CodeAddress + newBase,
		PlayAddress: c.Common.PlayAddress - c.CodeAddress + newBase,
		PRG:         append([]byte{byte(start), byte(start >> 8)}, content...),
	}, nil
}

// placeTables writes every non sequence table verbatim at its descriptor
// address.
func placeTables(image *imageBuilder, c *container.Container) error {
	for _, table := range c.Tables {
		if table.Type == container.TableSequences {
			continue
		}

		streams := c.TableStreams(table.ID)
		if len(streams) != 1 {
			return fmt.Errorf("%s table %d has %d content streams, want 1", table.Type, table.ID, len(streams))
		}
		if len(streams[0].Data) != table.Size() {
			return fmt.Errorf("%s table %d content of %d bytes does not match shape %dx%d",
				table.Type, table.ID, len(streams[0].Data), table.Columns, table.Rows)
		}
		if err := image.place(table.Type.String(), int(table.Address), streams[0].Data); err != nil {
			return err
		}
	}
	return nil
}

// placeSequences writes the sequence data streams behind a column major
// lo/hi pointer table at the sequence table address.
func placeSequences(image *imageBuilder, c *container.Container) error {
	table, ok := c.TableByType(container.TableSequences)
	if !ok {
		return nil
	}

	streams := c.TableStreams(table.ID)
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].Index < streams[j].Index
	})
	if len(streams) > int(table.Rows) {
		return fmt.Errorf("%d sequences exceed the pointer table with %d rows", len(streams), table.Rows)
	}

	rows := int(table.Rows)
	pointers := make([]byte, 2*rows)
	cursor := int(table.Address) + len(pointers)

	for i, stream := range streams {
		if cursor+len(stream.Data) > 0x10000 {
			return fmt.Errorf("sequence %d data does not fit below the end of memory", stream.Index)
		}
		pointers[i] = byte(cursor)
		pointers[rows+i] = byte(cursor >> 8)
		if err := image.place(fmt.Sprintf("sequence %d", stream.Index), cursor, stream.Data); err != nil {
			return err
		}
		cursor += len(stream.Data)
	}

	return image.place("sequence pointers", int(table.Address), pointers)
}

// imageBuilder assembles non overlapping chunks into one continuous image.
type imageBuilder struct {
	data  [0x10000]byte
	used  [0x10000]bool
	start int
	end   int
}

func newImageBuilder() *imageBuilder {
	return &imageBuilder{start: 0x10000}
}

// place writes a chunk and fails when it collides with an already placed
// chunk or leaves the address space.
func (b *imageBuilder) place(what string, address int, data []byte) error {
	if address+len(data) > 0x10000 {
		return fmt.Errorf("%s range #%04x-#%04x leaves the address space", what, address, address+len(data)-1)
	}
	for i := range data {
		if b.used[address+i] {
			return fmt.Errorf("%s overlaps already placed content at #%04x", what, address+i)
		}
		b.used[address+i] = true
		b.data[address+i] = data[i]
	}

	if address < b.start {
		b.start = address
	}
	if address+len(data) > b.end {
		b.end = address + len(data)
	}
	return nil
}

// content returns the covered address range as one continuous slice, gaps
// between chunks are zero filled.
func (b *imageBuilder) content() (int, []byte) {
	if b.start >= b.end {
		return 0, nil
	}
	content := make([]byte, b.end-b.start)
	copy(content, b.data[b.start:b.end])
	return b.start, content
}
