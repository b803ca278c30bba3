// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"cmp"
	"fmt"
)

// Position is an opaque, totally ordered address within one document's
// content stream. Positions produced by different engines (or different
// documents) are not comparable.
type Position interface {
	// Compare orders the receiver against other in document order and
	// returns -1, 0 or +1. It returns ErrIncomparable when other is a
	// different kind of position.
	Compare(other Position) (int, error)

	// Spec returns the serializable form of the position.
	Spec() PositionSpec

	String() string
}

// Index is a flattened element index used by static-structure engines.
// Index(i) is the boundary immediately before element i.
type Index int

func (i Index) Compare(other Position) (int, error) {
	o, ok := other.(Index)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %v", ErrIncomparable, i, other)
	}
	return cmp.Compare(i, o), nil
}

func (i Index) Spec() PositionSpec {
	return PositionSpec{Kind: PositionIndex, Index: int(i)}
}

func (i Index) String() string { return fmt.Sprintf("@%d", int(i)) }

// Cursor is a structured (container, block, offset) address used by
// engines that walk a live content stream. Container 0 is the main body.
type Cursor struct {
	Container int
	Block     int
	Offset    int
}

func (c Cursor) Compare(other Position) (int, error) {
	o, ok := other.(Cursor)
	if !ok {
		return 0, fmt.Errorf("%w: %s vs %v", ErrIncomparable, c, other)
	}
	return cmp.Or(
		cmp.Compare(c.Container, o.Container),
		cmp.Compare(c.Block, o.Block),
		cmp.Compare(c.Offset, o.Offset),
	), nil
}

func (c Cursor) Spec() PositionSpec {
	return PositionSpec{Kind: PositionCursor, Container: c.Container, Block: c.Block, Offset: c.Offset}
}

func (c Cursor) String() string {
	return fmt.Sprintf("%d:%d:%d", c.Container, c.Block, c.Offset)
}

// PositionKind tags the concrete type carried by a PositionSpec.
type PositionKind string

const (
	PositionIndex  PositionKind = "index"
	PositionCursor PositionKind = "cursor"
)

// PositionSpec is the wire form of a Position, used to hand block
// boundaries to worker processes.
type PositionSpec struct {
	Kind      PositionKind `json:"kind" yaml:"kind"`
	Index     int          `json:"index,omitempty" yaml:"index,omitempty"`
	Container int          `json:"container,omitempty" yaml:"container,omitempty"`
	Block     int          `json:"block,omitempty" yaml:"block,omitempty"`
	Offset    int          `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// Position rebuilds the concrete Position described by s.
func (s PositionSpec) Position() (Position, error) {
	switch s.Kind {
	case PositionIndex:
		return Index(s.Index), nil
	case PositionCursor:
		return Cursor{Container: s.Container, Block: s.Block, Offset: s.Offset}, nil
	default:
		return nil, fmt.Errorf("unknown position kind %q", s.Kind)
	}
}
