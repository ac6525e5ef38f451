// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"fmt"
	"strings"

	"facilityconsole/internal/models"
)

// Position says where a dragged node lands relative to the drop target.
type Position string

const (
	PositionBefore Position = "before"
	PositionAfter  Position = "after"
	PositionInside Position = "inside"
)

// ParsePosition converts a client-supplied string into a Position.
func ParsePosition(s string) (Position, error) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", &ValidationError{Message: fmt.Sprintf("invalid drop position %q: want before, after or inside", s)}
	}
	return p, nil
}

// Valid reports whether p is one of the three drop positions.
func (p Position) Valid() bool {
	switch p {
	case PositionBefore, PositionAfter, PositionInside:
		return true
	}
	return false
}

// Move is a proposed reparent of DraggedID relative to TargetID.
type Move struct {
	DraggedID string   `json:"dragged_id"`
	TargetID  string   `json:"target_id"`
	Position  Position `json:"position"`
}

// MoveDecision is the outcome of validating a Move.
type MoveDecision int

const (
	// MoveSkipped means one of the nodes is no longer in the forest. The
	// move is a silent no-op; the view may have raced a structural change.
	MoveSkipped MoveDecision = iota
	// MoveRejected means the move breaks an invariant. An error describes why.
	MoveRejected
	// MoveAccepted authorizes the caller to perform the relocation.
	MoveAccepted
)

func (d MoveDecision) String() string {
	switch d {
	case MoveSkipped:
		return "skipped"
	case MoveRejected:
		return "rejected"
	case MoveAccepted:
		return "accepted"
	}
	return fmt.Sprintf("MoveDecision(%d)", int(d))
}

// ValidateMove decides whether m is legal in the forest under maxDepth.
// It never restructures the tree; an accepted move must be carried out by
// the caller. Depths are recomputed from the structure before checking.
//
// Dropping a node on itself or anywhere in its own subtree is rejected for
// every position. Otherwise the dragged node would sit at the target's
// depth (before/after) or one deeper (inside), and its whole subtree must
// still fit within maxDepth.
func ValidateMove(forest []models.Category, m Move, maxDepth int) (MoveDecision, error) {
	if !m.Position.Valid() {
		return MoveRejected, &ValidationError{Message: fmt.Sprintf("invalid drop position %q", m.Position)}
	}

	forest = RecalcDepths(forest)
	dragged := FindNode(forest, m.DraggedID)
	target := FindNode(forest, m.TargetID)
	if dragged == nil || target == nil {
		return MoveSkipped, nil
	}

	if IsDescendant(dragged, target.ID) {
		return MoveRejected, &CycleError{
			DraggedID:   dragged.ID,
			DraggedName: dragged.Name,
			TargetID:    target.ID,
			TargetName:  target.Name,
		}
	}

	span := SubtreeDepthSpan(dragged)
	newBase := target.Depth
	if m.Position == PositionInside {
		newBase++
	}
	newMax := newBase + span
	if newMax > maxDepth {
		return MoveRejected, &DepthError{
			NodeID:     dragged.ID,
			NodeName:   dragged.Name,
			TargetID:   target.ID,
			TargetName: target.Name,
			NewBase:    newBase,
			NewMax:     newMax,
			MaxDepth:   maxDepth,
		}
	}

	return MoveAccepted, nil
}
