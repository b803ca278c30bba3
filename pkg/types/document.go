// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Range is the half-open span [Start, End) within one document. Ranges
// reference live document state and must not outlive the extraction call
// that produced them.
type Range struct {
	Start Position
	End   Position
}

// NewRange returns the range [start, end). Both positions must be of the
// same kind and start must not come after end.
func NewRange(start, end Position) (Range, error) {
	if start == nil || end == nil {
		return Range{}, fmt.Errorf("%w: missing boundary", ErrInvalidRange)
	}
	c, err := start.Compare(end)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %w", ErrInvalidRange, err)
	}
	if c > 0 {
		return Range{}, fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// IsEmpty reports whether the range spans no content.
func (r Range) IsEmpty() bool {
	c, err := r.Start.Compare(r.End)
	return err == nil && c == 0
}

// Through returns the range running from the start of r to the end of last.
func (r Range) Through(last Range) (Range, error) {
	return NewRange(r.Start, last.End)
}

// Spec returns the serializable form of the range boundaries.
func (r Range) Spec() RangeSpec {
	return RangeSpec{Start: r.Start.Spec(), End: r.End.Spec()}
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// RangeSpec is the wire form of a Range.
type RangeSpec struct {
	Start PositionSpec `json:"start" yaml:"start"`
	End   PositionSpec `json:"end" yaml:"end"`
}

// Range rebuilds and validates the range described by s.
func (s RangeSpec) Range() (Range, error) {
	start, err := s.Start.Position()
	if err != nil {
		return Range{}, err
	}
	end, err := s.End.Position()
	if err != nil {
		return Range{}, err
	}
	return NewRange(start, end)
}

// Marker is a sequential annotation whose anchor position marks a block
// boundary. Seq is 1-based and contiguous in document order.
type Marker struct {
	// Seq is the 1-based sequence number in document order.
	Seq int `json:"seq" yaml:"seq"`

	// Anchor is the position immediately following the in-text reference.
	Anchor Position `json:"-" yaml:"-"`

	// Label is the engine's identifier for the marker (e.g. footnote id).
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Note is the marker's annotation text, when the engine exposes it.
	Note string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Block is one content range produced by block discovery. Index is the
// position in the discoverer's output (0 is the leading block).
type Block struct {
	Index int
	Range
}

// Group is one output unit: a contiguous, non-empty run of usable blocks.
// Blocks holds 1-based usable block numbers in ascending order.
type Group struct {
	Number int   `json:"number" yaml:"number"`
	Blocks []int `json:"blocks" yaml:"blocks"`
}

// First returns the first constituent block number.
func (g Group) First() int { return g.Blocks[0] }

// Last returns the last constituent block number.
func (g Group) Last() int { return g.Blocks[len(g.Blocks)-1] }

// Size returns the number of blocks in the group.
func (g Group) Size() int { return len(g.Blocks) }

// EffectiveRange returns (first block start, last block end) against the
// usable block list the group was built from.
func (g Group) EffectiveRange(usable []Block) (Range, error) {
	if len(g.Blocks) == 0 {
		return Range{}, fmt.Errorf("%w: group %d has no blocks", ErrInvalidRange, g.Number)
	}
	first, last := g.First(), g.Last()
	if first < 1 || last > len(usable) {
		return Range{}, fmt.Errorf("%w: group %d spans blocks %d-%d of %d",
			ErrInvalidRange, g.Number, first, last, len(usable))
	}
	return usable[first-1].Through(usable[last-1].Range)
}
