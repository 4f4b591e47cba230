package numberset

import (
	"fmt"

	"gocalc/domain/core"
)

// SortMode selects the display order of a set
type SortMode string

const (
	SortOriginal   SortMode = "original"
	SortAscending  SortMode = "asc"
	SortDescending SortMode = "desc"
)

// Next cycles original -> asc -> desc -> original
func (m SortMode) Next() SortMode {
	switch m {
	case SortOriginal, "":
		return SortAscending
	case SortAscending:
		return SortDescending
	default:
		return SortOriginal
	}
}

// ParseSortMode validates a sort mode; the empty string means original
func ParseSortMode(s string) (SortMode, error) {
	switch SortMode(s) {
	case "", SortOriginal:
		return SortOriginal, nil
	case SortAscending, SortDescending:
		return SortMode(s), nil
	}
	return SortOriginal, fmt.Errorf("%w: %q", core.ErrInvalidSortMode, s)
}
