package scanner

import "sync/atomic"

// Cursor hands out candidate indices in [0, size). No index is ever handed out twice.
type Cursor struct {
	next atomic.Int64
	size int64
}

// NewCursor creates a cursor over size indices.
func NewCursor(size int) *Cursor {
	if size < 0 {
		size = 0
	}
	return &Cursor{size: int64(size)}
}

// Claim returns the next unclaimed index, or false once the cursor is exhausted.
func (c *Cursor) Claim() (int, bool) {
	idx := c.next.Add(1) - 1
	if idx >= c.size {
		return 0, false
	}
	return int(idx), true
}

// Len is the number of indices covered by the cursor.
func (c *Cursor) Len() int {
	return int(c.size)
}
