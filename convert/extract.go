package convert

import (
	"fmt"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/sidgoconv/container"
	"github.com/retroenv/sidgoconv/relocate"
	"github.com/retroenv/sidgoconv/sequence"
)

// Extract moves a player binary and its native tables into a container:
// the player code is relocated into the container's fixed code slot, table
// contents are copied verbatim and sequence streams are converted into the
// packed event encoding. The returned container passes validation.
func Extract(logger *log.Logger, src SourceBinary, layout Layout) (*container.Container, error) {
	if err := checkLayout(src, layout); err != nil {
		return nil, fmt.Errorf("checking layout: %w", err)
	}

	code := src.slice(layout.CodeStart, int(layout.CodeEnd))
	relocated, patches, err := relocate.Relocate(code, layout.CodeStart, layout.CodeSlot)
	if err != nil {
		return nil, fmt.Errorf("relocating code to slot #%04x: %w", layout.CodeSlot, err)
	}
	logger.Debug("relocated player code",
		log.String("slot", fmt.Sprintf("0x%04X", layout.CodeSlot)),
		log.String("patches", fmt.Sprintf("%d", len(patches))))

	c := &container.Container{
		LoadAddress: layout.WindowStart,
		WindowEnd:   layout.WindowEnd,
		Descriptor: container.Descriptor{
			Title:    layout.Title,
			Author:   layout.Author,
			Released: layout.Released,
		},
		Common: container.Common{
			InitAddress: src.InitAddress - layout.CodeStart + layout.CodeSlot,
			PlayAddress: src.PlayAddress - layout.CodeStart + layout.CodeSlot,
			Songs:       layout.Songs,
			DefaultSong: layout.DefaultSong,
			Speed:       layout.Speed,
			ChipModel:   layout.ChipModel,
		},
		CodeAddress: layout.CodeSlot,
		Code:        relocated,
	}

	for _, region := range layout.Tables {
		c.Tables = append(c.Tables, container.TableDescriptor{
			Type:    region.Type,
			ID:      region.ID,
			Name:    region.Name,
			Flags:   region.Flags,
			Rules:   region.Rules,
			Address: region.Address,
			Columns: region.Columns,
			Rows:    region.Rows,
		})

		// the sequence pointer table is rebuilt from the streams, all
		// other table contents are copied verbatim
		if region.Type == container.TableSequences {
			continue
		}
		descriptor := c.Tables[len(c.Tables)-1]
		c.Streams = append(c.Streams, container.PackedStream{
			TableID: region.ID,
			Data:    src.slice(region.Address, descriptor.End()),
		})
	}

	if err := packSequences(c, layout); err != nil {
		return nil, err
	}

	if err := container.Validate(c); err != nil {
		return nil, fmt.Errorf("validating container: %w", err)
	}
	return c, nil
}

// packSequences converts every source sequence into the packed event
// encoding and attaches it to the sequence table.
func packSequences(c *container.Container, layout Layout) error {
	if len(layout.Sequences) == 0 {
		return nil
	}

	seqTable, ok := layout.sequencesTable()
	if !ok {
		return fmt.Errorf("layout has %d sequences but no sequences table", len(layout.Sequences))
	}

	transcode := layout.Transcode
	if transcode == nil {
		transcode = sequence.Unpack
	}
	instrumentRows := instrumentTableRows(layout)

	for _, source := range layout.Sequences {
		events, err := transcode(source.Bytes)
		if err != nil {
			return fmt.Errorf("transcoding sequence %d: %w", source.Index, err)
		}
		if instrumentRows > 0 {
			if err := sequence.Validate(events, instrumentRows, sequence.MaxCommands); err != nil {
				return fmt.Errorf("checking sequence %d: %w", source.Index, err)
			}
		}

		packed, err := sequence.Pack(events)
		if err != nil {
			return fmt.Errorf("packing sequence %d: %w", source.Index, err)
		}
		c.Streams = append(c.Streams, container.PackedStream{
			TableID: seqTable.ID,
			Index:   source.Index,
			Data:    packed,
		})
	}
	return nil
}

func instrumentTableRows(layout Layout) int {
	for _, table := range layout.Tables {
		if table.Type == container.TableInstruments {
			return int(table.Rows)
		}
	}
	return 0
}

// checkLayout validates the layout against the source binary before any
// transformation starts, so that failures name the extraction stage.
func checkLayout(src SourceBinary, layout Layout) error {
	if layout.CodeEnd <= layout.CodeStart {
		return fmt.Errorf("code range #%04x-#%04x is empty", layout.CodeStart, layout.CodeEnd)
	}
	if !src.contains(layout.CodeStart, int(layout.CodeEnd)) {
		return fmt.Errorf("code range #%04x-#%04x outside of source content", layout.CodeStart, layout.CodeEnd)
	}
	if src.InitAddress < layout.CodeStart || src.InitAddress >= layout.CodeEnd {
		return fmt.Errorf("init entry #%04x outside of code range", src.InitAddress)
	}
	if src.PlayAddress < layout.CodeStart || src.PlayAddress >= layout.CodeEnd {
		return fmt.Errorf("play entry #%04x outside of code range", src.PlayAddress)
	}

	for _, region := range layout.Tables {
		if region.Type == container.TableSequences {
			continue
		}
		end := int(region.Address) + int(region.Columns)*int(region.Rows)
		if !src.contains(region.Address, end) {
			return fmt.Errorf("%s table %d range #%04x-#%04x outside of source content",
				region.Type, region.ID, region.Address, end-1)
		}
	}
	return nil
}
