// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed validation errors below match ErrValidation via
// errors.Is, so callers can branch on the class without knowing the type.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("category not found")
	ErrNotConfirmed      = errors.New("deletion not confirmed")
	ErrInvalidTransition = errors.New("invalid interaction transition")
	ErrPendingNode       = errors.New("category is still being created")
	ErrNoThumbnails      = errors.New("thumbnail uploads are not configured")
)

// ValidationError reports a rejected field value.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string        { return e.Message }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CycleError reports a move that would place a node inside its own subtree.
type CycleError struct {
	DraggedID   string
	DraggedName string
	TargetID    string
	TargetName  string
}

func (e *CycleError) Error() string {
	if e.DraggedID == e.TargetID {
		return fmt.Sprintf("cannot move %q relative to itself", e.DraggedName)
	}
	return fmt.Sprintf("cannot move %q into its own descendant %q", e.DraggedName, e.TargetName)
}

func (e *CycleError) Is(target error) bool { return target == ErrValidation }

// DepthError reports an add or move that would push part of the tree past
// the configured maximum depth. NewBase is the depth the node itself would
// occupy; NewMax is the deepest level its subtree would reach.
type DepthError struct {
	NodeID     string
	NodeName   string
	TargetID   string
	TargetName string
	NewBase    int
	NewMax     int
	MaxDepth   int
}

func (e *DepthError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("cannot add %q under %q: it would sit at depth %d, exceeding the maximum depth of %d",
			e.NodeName, e.TargetName, e.NewBase, e.MaxDepth)
	}
	return fmt.Sprintf("cannot move %q to %q: it would sit at depth %d and its subtree would reach depth %d, exceeding the maximum depth of %d",
		e.NodeName, e.TargetName, e.NewBase, e.NewMax, e.MaxDepth)
}

func (e *DepthError) Is(target error) bool { return target == ErrValidation }

// HasChildrenError reports an attempt to delete a non-leaf node.
type HasChildrenError struct {
	ID    string
	Name  string
	Count int
}

func (e *HasChildrenError) Error() string {
	noun := "children"
	if e.Count == 1 {
		noun = "child"
	}
	return fmt.Sprintf("cannot delete %q: %d %s", e.Name, e.Count, noun)
}

func (e *HasChildrenError) Is(target error) bool { return target == ErrValidation }

// notFound wraps ErrNotFound with the id that could not be resolved.
func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
