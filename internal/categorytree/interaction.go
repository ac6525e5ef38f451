// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import "fmt"

// EditState is the per-node form state of the tree view.
type EditState int

const (
	EditIdle EditState = iota
	EditRenaming
	EditAddingChild
)

func (s EditState) String() string {
	switch s {
	case EditIdle:
		return "idle"
	case EditRenaming:
		return "editing"
	case EditAddingChild:
		return "adding-child"
	}
	return fmt.Sprintf("EditState(%d)", int(s))
}

// DragPhase is the state of the single in-flight drag gesture.
type DragPhase int

const (
	DragNone DragPhase = iota
	DragActive
	DragAccepted
	DragRejected
)

func (p DragPhase) String() string {
	switch p {
	case DragNone:
		return "none"
	case DragActive:
		return "dragging"
	case DragAccepted:
		return "accepted"
	case DragRejected:
		return "rejected"
	}
	return fmt.Sprintf("DragPhase(%d)", int(p))
}

type nodeFlags struct {
	collapsed bool
	edit      EditState
}

// InteractionState holds the transient view flags of a tree, keyed by node
// id and kept apart from the category values so the forest stays plain
// data. It is meant for a single interactive actor and is not safe for
// concurrent use.
type InteractionState struct {
	nodes    map[string]*nodeFlags
	dragging string
}

// NewInteractionState returns an empty state where every node is expanded
// and idle.
func NewInteractionState() *InteractionState {
	return &InteractionState{nodes: make(map[string]*nodeFlags)}
}

func (s *InteractionState) flags(id string) *nodeFlags {
	f, ok := s.nodes[id]
	if !ok {
		f = &nodeFlags{}
		s.nodes[id] = f
	}
	return f
}

// Expanded reports whether id shows its children. Nodes are expanded until
// collapsed. A nil state treats everything as expanded.
func (s *InteractionState) Expanded(id string) bool {
	if s == nil {
		return true
	}
	f, ok := s.nodes[id]
	return !ok || !f.collapsed
}

// SetExpanded records the expanded flag for id.
func (s *InteractionState) SetExpanded(id string, expanded bool) {
	s.flags(id).collapsed = !expanded
}

// Toggle flips the expanded flag for id and returns the new value.
func (s *InteractionState) Toggle(id string) bool {
	f := s.flags(id)
	f.collapsed = !f.collapsed
	return !f.collapsed
}

// Edit returns the form state of id.
func (s *InteractionState) Edit(id string) EditState {
	if f, ok := s.nodes[id]; ok {
		return f.edit
	}
	return EditIdle
}

// BeginRename moves id from Idle to Editing.
func (s *InteractionState) BeginRename(id string) error {
	return s.begin(id, EditRenaming)
}

// BeginAddChild moves id from Idle to AddingChild.
func (s *InteractionState) BeginAddChild(id string) error {
	return s.begin(id, EditAddingChild)
}

func (s *InteractionState) begin(id string, next EditState) error {
	f := s.flags(id)
	if f.edit != EditIdle {
		return fmt.Errorf("%w: %s is %s, cannot start %s", ErrInvalidTransition, id, f.edit, next)
	}
	f.edit = next
	return nil
}

// Commit ends the open form on id and returns which form it was, so the
// caller knows whether to issue an update or an add. The node goes back
// to Idle. Committing an idle node is an error.
func (s *InteractionState) Commit(id string) (EditState, error) {
	f, ok := s.nodes[id]
	if !ok || f.edit == EditIdle {
		return EditIdle, fmt.Errorf("%w: %s has no open form", ErrInvalidTransition, id)
	}
	prev := f.edit
	f.edit = EditIdle
	return prev, nil
}

// Cancel discards any open form on id. Nothing was committed, so nothing
// needs reverting. Cancelling an idle node is a no-op.
func (s *InteractionState) Cancel(id string) {
	if f, ok := s.nodes[id]; ok {
		f.edit = EditIdle
	}
}

// Escape cancels every open form and any drag in progress.
func (s *InteractionState) Escape() {
	for _, f := range s.nodes {
		f.edit = EditIdle
	}
	s.dragging = ""
}

// BeginDrag starts dragging id. Only one drag may be active.
func (s *InteractionState) BeginDrag(id string) error {
	if id == "" {
		return fmt.Errorf("%w: drag needs a category id", ErrInvalidTransition)
	}
	if s.dragging != "" {
		return fmt.Errorf("%w: already dragging %s", ErrInvalidTransition, s.dragging)
	}
	s.dragging = id
	return nil
}

// Dragging returns the id being dragged, if any.
func (s *InteractionState) Dragging() (string, bool) {
	return s.dragging, s.dragging != ""
}

// Phase returns DragActive while a drag is in progress and DragNone
// otherwise. Accepted and Rejected are only reported by Drop.
func (s *InteractionState) Phase() DragPhase {
	if s.dragging != "" {
		return DragActive
	}
	return DragNone
}

// Drop finishes the active drag with the editor's verdict: a nil moveErr
// means the move was accepted. The drag state returns to None.
func (s *InteractionState) Drop(moveErr error) (DragPhase, error) {
	if s.dragging == "" {
		return DragNone, fmt.Errorf("%w: no drag in progress", ErrInvalidTransition)
	}
	s.dragging = ""
	if moveErr != nil {
		return DragRejected, nil
	}
	return DragAccepted, nil
}

// CancelDrag abandons the active drag without a move.
func (s *InteractionState) CancelDrag() {
	s.dragging = ""
}

// Retarget moves the flags kept for a temporary id onto its server id.
func (s *InteractionState) Retarget(tempID, realID string) {
	if f, ok := s.nodes[tempID]; ok {
		s.nodes[realID] = f
		delete(s.nodes, tempID)
	}
	if s.dragging == tempID {
		s.dragging = realID
	}
}

// Forget drops all flags for id, e.g. after it was deleted.
func (s *InteractionState) Forget(id string) {
	delete(s.nodes, id)
	if s.dragging == id {
		s.dragging = ""
	}
}
