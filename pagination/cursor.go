// Package pagination implements opaque offset cursors for connection-style
// listings.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	DefaultFirst = 10
	MaxFirst     = 100

	// MaxOffset bounds decoded offsets so resume arithmetic and SQL OFFSET
	// stay in range.
	MaxOffset = math.MaxInt32
)

// ErrInvalidCursor is returned for cursors that do not decode to an offset.
var ErrInvalidCursor = errors.New("invalid cursor")

type cursor struct {
	Offset int `json:"offset"`
}

// Encode returns the cursor for the item at offset.
func Encode(offset int) string {
	b, _ := json.Marshal(cursor{Offset: offset})
	return base64.StdEncoding.EncodeToString(b)
}

// Decode returns the offset a cursor points at.
func Decode(s string) (int, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidCursor)
	}
	if c.Offset >= MaxOffset {
		return 0, fmt.Errorf("%w: offset out of range", ErrInvalidCursor)
	}
	return c.Offset, nil
}

// Page is a resolved window over a listing.
type Page struct {
	Limit  int
	Offset int
}

// Window resolves a first/after pair. after resumes at the item following
// the one it names.
func Window(first int, after string) (Page, error) {
	if first <= 0 {
		first = DefaultFirst
	}
	if first > MaxFirst {
		first = MaxFirst
	}
	p := Page{Limit: first}
	if after != "" {
		off, err := Decode(after)
		if err != nil {
			return Page{}, err
		}
		p.Offset = off + 1
	}
	return p, nil
}

// Cursor returns the cursor of the i-th item of the page.
func (p Page) Cursor(i int) string { return Encode(p.Offset + i) }

// Info describes a returned page.
type Info struct {
	HasNextPage     bool    `json:"has_next_page"`
	HasPreviousPage bool    `json:"has_previous_page"`
	StartCursor     *string `json:"start_cursor"`
	EndCursor       *string `json:"end_cursor"`
	TotalCount      int     `json:"total_count"`
}

// NewInfo builds page info for n returned items.
func NewInfo(p Page, n int, hasMore bool, total int) Info {
	info := Info{
		HasNextPage:     hasMore,
		HasPreviousPage: p.Offset > 0,
		TotalCount:      total,
	}
	if n > 0 {
		start, end := p.Cursor(0), p.Cursor(n-1)
		info.StartCursor = &start
		info.EndCursor = &end
	}
	return info
}
