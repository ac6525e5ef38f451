// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categorytree implements the hierarchical category editor used by
// the asset, device and facility trees. It validates add, rename, delete
// and drag-and-drop moves against a caller-supplied forest and delegates
// every accepted mutation to a persistence collaborator. The package never
// performs I/O itself and never mutates the forest it is given.
package categorytree

import (
	"fmt"
	"iter"
	"slices"

	"facilityconsole/internal/models"
)

// Clone returns a deep copy of the forest.
func Clone(forest []models.Category) []models.Category {
	if forest == nil {
		return nil
	}
	out := make([]models.Category, len(forest))
	for i, n := range forest {
		out[i] = n
		if n.ParentID != nil {
			p := *n.ParentID
			out[i].ParentID = &p
		}
		out[i].Children = Clone(n.Children)
	}
	return out
}

// RecalcDepths returns a copy of the forest with every Depth stamped from
// the structure: roots are 0 and each child is its parent plus one. Input
// depths are ignored, since they may be stale or absent.
func RecalcDepths(forest []models.Category) []models.Category {
	out := Clone(forest)
	stampDepths(out, 0, nil)
	return out
}

// stampDepths walks the subtree top-down, setting Depth and ParentID.
func stampDepths(nodes []models.Category, depth int, parentID *string) {
	for i := range nodes {
		nodes[i].Depth = depth
		if parentID == nil {
			nodes[i].ParentID = nil
		} else {
			p := *parentID
			nodes[i].ParentID = &p
		}
		stampDepths(nodes[i].Children, depth+1, &nodes[i].ID)
	}
}

// FindNode searches the forest depth-first. A nil result is a normal
// outcome, not an error. The returned pointer aliases the forest.
func FindNode(forest []models.Category, id string) *models.Category {
	for i := range forest {
		if forest[i].ID == id {
			return &forest[i]
		}
		if n := FindNode(forest[i].Children, id); n != nil {
			return n
		}
	}
	return nil
}

// ChildrenCount returns the number of direct children of n.
func ChildrenCount(n *models.Category) int {
	if n == nil {
		return 0
	}
	return len(n.Children)
}

// DescendantCount returns the number of nodes below n.
func DescendantCount(n *models.Category) int {
	if n == nil {
		return 0
	}
	total := 0
	for i := range n.Children {
		total += DescendantCount(&n.Children[i]) + 1
	}
	return total
}

// SubtreeDepthSpan returns the longest edge-count distance from n to any
// of its leaves. A leaf has a span of 0.
func SubtreeDepthSpan(n *models.Category) int {
	if n == nil {
		return 0
	}
	span := 0
	for i := range n.Children {
		span = max(span, SubtreeDepthSpan(&n.Children[i])+1)
	}
	return span
}

// IsDescendant reports whether id is ancestor itself or lies anywhere in
// its subtree. The self case is deliberate: it is the cycle guard for moves.
func IsDescendant(ancestor *models.Category, id string) bool {
	if ancestor == nil {
		return false
	}
	if ancestor.ID == id {
		return true
	}
	for i := range ancestor.Children {
		if IsDescendant(&ancestor.Children[i], id) {
			return true
		}
	}
	return false
}

// Flatten yields every node in display order (pre-order, siblings in slice
// order) together with its depth. The walk uses an explicit stack, so its
// call depth does not grow with the tree.
func Flatten(forest []models.Category) iter.Seq2[*models.Category, int] {
	return flatten(forest, nil)
}

// FlattenVisible is like Flatten but does not descend into nodes that the
// interaction state marks as collapsed. Roots are always visible.
func FlattenVisible(forest []models.Category, state *InteractionState) iter.Seq2[*models.Category, int] {
	return flatten(forest, func(n *models.Category) bool {
		return state.Expanded(n.ID)
	})
}

type frame struct {
	node  *models.Category
	depth int
}

func flatten(forest []models.Category, descend func(*models.Category) bool) iter.Seq2[*models.Category, int] {
	return func(yield func(*models.Category, int) bool) {
		stack := make([]frame, 0, len(forest))
		for i := len(forest) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: &forest[i], depth: 0})
		}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(top.node, top.depth) {
				return
			}
			if descend != nil && !descend(top.node) {
				continue
			}
			children := top.node.Children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: &children[i], depth: top.depth + 1})
			}
		}
	}
}

// BuildForest assembles a forest from a flat, parent-linked list such as a
// database returns. Siblings keep their relative input order. Nodes whose
// parent is not in the list become roots, and a parent cycle in the input
// is broken at the first node of the cycle encountered.
func BuildForest(flat []models.Category) []models.Category {
	byID := make(map[string]int, len(flat))
	for i, c := range flat {
		byID[c.ID] = i
	}

	children := make(map[string][]int, len(flat))
	var roots []int
	for i, c := range flat {
		if c.ParentID == nil {
			roots = append(roots, i)
			continue
		}
		if _, ok := byID[*c.ParentID]; !ok {
			roots = append(roots, i)
			continue
		}
		children[*c.ParentID] = append(children[*c.ParentID], i)
	}

	visited := make([]bool, len(flat))
	var build func(i int) models.Category
	build = func(i int) models.Category {
		visited[i] = true
		c := flat[i]
		c.Children = nil
		for _, ci := range children[c.ID] {
			if !visited[ci] {
				c.Children = append(c.Children, build(ci))
			}
		}
		return c
	}

	var forest []models.Category
	for _, i := range roots {
		forest = append(forest, build(i))
	}
	for i := range flat {
		if !visited[i] {
			forest = append(forest, build(i))
		}
	}
	return RecalcDepths(forest)
}

// Validate checks the structural invariants of an incoming forest: every
// id is non-empty and unique, and no node sits deeper than maxDepth.
func Validate(forest []models.Category, maxDepth int) error {
	seen := make(map[string]struct{})
	for n, depth := range Flatten(forest) {
		if n.ID == "" {
			return &ValidationError{Message: fmt.Sprintf("category %q has no id", n.Name)}
		}
		if _, dup := seen[n.ID]; dup {
			return &ValidationError{Message: fmt.Sprintf("duplicate category id %s", n.ID)}
		}
		seen[n.ID] = struct{}{}
		if depth > maxDepth {
			return &ValidationError{Message: fmt.Sprintf("category %q sits at depth %d, exceeding the maximum depth of %d",
				n.Name, depth, maxDepth)}
		}
	}
	return nil
}

// Remove returns a copy of the forest without the node id and its subtree.
// It is the local rollback for an optimistic add whose collaborator call
// failed. An unknown id returns an unchanged copy.
func Remove(forest []models.Category, id string) []models.Category {
	out, _ := detach(Clone(forest), id)
	return RecalcDepths(out)
}

// InsertPending returns a copy of the forest with a new leaf appended under
// parentID (or as a root when parentID is nil). It renders an optimistic
// add before the collaborator has assigned a real id.
func InsertPending(forest []models.Category, tempID string, req AddRequest) ([]models.Category, error) {
	out := Clone(forest)
	node := models.Category{
		ID:           tempID,
		Name:         req.Name,
		Code:         req.Code,
		ThumbnailRef: req.ThumbnailRef,
	}
	if req.ParentID == nil {
		out = append(out, node)
		return RecalcDepths(out), nil
	}
	parent := FindNode(out, *req.ParentID)
	if parent == nil {
		return nil, notFound(*req.ParentID)
	}
	parent.Children = append(parent.Children, node)
	return RecalcDepths(out), nil
}

// ReplaceID returns a copy of the forest with oldID renamed to newID,
// including the ParentID of its children.
func ReplaceID(forest []models.Category, oldID, newID string) []models.Category {
	out := Clone(forest)
	if n := FindNode(out, oldID); n != nil {
		n.ID = newID
	}
	return RecalcDepths(out)
}

// Splice performs a validated move locally and returns the new forest. The
// move is checked with ValidateMove first; a skipped move (unknown ids)
// returns an unchanged copy.
func Splice(forest []models.Category, m Move, maxDepth int) ([]models.Category, error) {
	decision, err := ValidateMove(forest, m, maxDepth)
	if err != nil {
		return nil, err
	}
	if decision == MoveSkipped {
		return RecalcDepths(forest), nil
	}

	out, dragged := detach(Clone(forest), m.DraggedID)
	out = insertRelative(out, *dragged, m.TargetID, m.Position)
	return RecalcDepths(out), nil
}

// detach removes id from the forest and returns the removed node.
func detach(nodes []models.Category, id string) ([]models.Category, *models.Category) {
	for i := range nodes {
		if nodes[i].ID == id {
			removed := nodes[i]
			return slices.Delete(nodes, i, i+1), &removed
		}
		var removed *models.Category
		nodes[i].Children, removed = detach(nodes[i].Children, id)
		if removed != nil {
			return nodes, removed
		}
	}
	return nodes, nil
}

// insertRelative places node before, after or inside targetID.
func insertRelative(nodes []models.Category, node models.Category, targetID string, pos Position) []models.Category {
	for i := range nodes {
		if nodes[i].ID != targetID {
			nodes[i].Children = insertRelative(nodes[i].Children, node, targetID, pos)
			continue
		}
		switch pos {
		case PositionBefore:
			return slices.Insert(nodes, i, node)
		case PositionAfter:
			return slices.Insert(nodes, i+1, node)
		default:
			nodes[i].Children = append(nodes[i].Children, node)
			return nodes
		}
	}
	return nodes
}
