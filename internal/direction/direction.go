// Package direction turns free-text deployment instructions into compass
// directions used to place arrow markers over a base screenshot.
package direction

import (
	"encoding/json"
	"fmt"
)

// Direction is one of eight compass-derived marker labels.
type Direction string

const (
	Top         Direction = "top"
	Right       Direction = "right"
	Bottom      Direction = "bottom"
	Left        Direction = "left"
	TopRight    Direction = "top-right"
	BottomRight Direction = "bottom-right"
	BottomLeft  Direction = "bottom-left"
	TopLeft     Direction = "top-left"
)

// All lists every direction in canonical order.
var All = [...]Direction{Top, Right, Bottom, Left, TopRight, BottomRight, BottomLeft, TopLeft}

// Valid reports whether d is one of the eight known labels.
func (d Direction) Valid() bool {
	for _, known := range All {
		if d == known {
			return true
		}
	}
	return false
}

// Set is an unordered collection of directions; duplicates collapse.
type Set map[Direction]struct{}

// NewSet builds a set from the given directions.
func NewSet(dirs ...Direction) Set {
	s := make(Set, len(dirs))
	for _, d := range dirs {
		s.Add(d)
	}
	return s
}

func (s Set) Add(d Direction) { s[d] = struct{}{} }

func (s Set) Has(d Direction) bool {
	_, ok := s[d]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the members in canonical order so output is deterministic.
func (s Set) Sorted() []Direction {
	out := make([]Direction, 0, len(s))
	for _, d := range All {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON reads the array form written by MarshalJSON.
func (s *Set) UnmarshalJSON(data []byte) error {
	var dirs []Direction
	if err := json.Unmarshal(data, &dirs); err != nil {
		return err
	}
	set := NewSet()
	for _, d := range dirs {
		if !d.Valid() {
			return fmt.Errorf("unknown direction %q", d)
		}
		set.Add(d)
	}
	*s = set
	return nil
}
