package snapshot

import "fmt"

// Cursor replays a Snapshot through the Reader contract. Cursors are cheap:
// build a fresh one over the same Snapshot to read it again.
type Cursor struct {
	rowAccess
	snap *Snapshot
	pos  int
}

var _ Reader = (*Cursor)(nil)

// NewCursor returns a Cursor positioned before the first row of s.
func NewCursor(s *Snapshot) *Cursor {
	return &Cursor{
		rowAccess: rowAccess{
			columns: s.columns,
			index:   s.index,
		},
		snap: s,
		pos:  -1,
	}
}

// Next advances to the next captured row.
func (c *Cursor) Next() (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	if c.pos >= len(c.snap.rows) {
		return false, nil
	}

	c.pos++
	if c.pos >= len(c.snap.rows) {
		c.current = nil
		c.depth = 0
		return false, nil
	}

	r := c.snap.rows[c.pos]
	c.current = r.values
	c.depth = r.depth
	return true, nil
}

// Close marks the cursor closed. Calling Close more than once is allowed.
func (c *Cursor) Close() error {
	c.closed = true
	c.current = nil
	return nil
}

// HasRows reports whether the snapshot holds any rows.
func (c *Cursor) HasRows() bool { return len(c.snap.rows) > 0 }

// NextResultSet always fails: a snapshot holds a single result set.
func (c *Cursor) NextResultSet() (bool, error) {
	return false, fmt.Errorf("next result set: %w", ErrNotSupported)
}

// Snapshot returns the snapshot being replayed.
func (c *Cursor) Snapshot() *Snapshot { return c.snap }
