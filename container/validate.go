package container

import (
	"fmt"

	"github.com/retroenv/retrogolib/set"
)

// Validate checks the structural invariants of a container: unique table
// ids, pairwise disjoint table ranges, the code range disjoint from all
// tables, every referenced address inside the declared memory window and
// every packed stream tied to an existing table.
func Validate(c *Container) error {
	if c.WindowEnd <= c.LoadAddress {
		return fmt.Errorf("memory window #%04x-#%04x is empty", c.LoadAddress, c.WindowEnd)
	}
	if err := validateStrings(c); err != nil {
		return err
	}

	ids := set.New[byte]()
	for i, table := range c.Tables {
		if ids.Contains(table.ID) {
			return fmt.Errorf("table id %d is used twice", table.ID)
		}
		ids.Add(table.ID)

		if table.Columns == 0 || table.Rows == 0 {
			return fmt.Errorf("table %d has an empty shape %dx%d", table.ID, table.Columns, table.Rows)
		}
		if table.Address < c.LoadAddress || table.End() > int(c.WindowEnd) {
			return &AddressOutOfWindowError{What: table.Type.String(), Address: table.Address, End: table.End()}
		}

		for _, other := range c.Tables[i+1:] {
			if rangesOverlap(int(table.Address), table.End(), int(other.Address), other.End()) {
				return &OverlappingTablesError{FirstID: table.ID, SecondID: other.ID}
			}
		}
	}

	codeEnd := int(c.CodeAddress) + len(c.Code)
	if len(c.Code) > 0 {
		if c.CodeAddress < c.LoadAddress || codeEnd > int(c.WindowEnd) {
			return &AddressOutOfWindowError{What: "code", Address: c.CodeAddress, End: codeEnd}
		}
		for _, table := range c.Tables {
			if rangesOverlap(int(c.CodeAddress), codeEnd, int(table.Address), table.End()) {
				return fmt.Errorf("code range #%04x-#%04x overlaps table %d", c.CodeAddress, codeEnd-1, table.ID)
			}
		}
	}

	for i, stream := range c.Streams {
		if !ids.Contains(stream.TableID) {
			return fmt.Errorf("packed stream %d references unknown table id %d", i, stream.TableID)
		}
	}
	return nil
}

func validateStrings(c *Container) error {
	for _, s := range []string{c.Descriptor.Title, c.Descriptor.Author, c.Descriptor.Released} {
		if len(s) > 0xff {
			return fmt.Errorf("descriptor string %q exceeds 255 bytes", s[:16]+"...")
		}
	}
	return nil
}

func rangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
