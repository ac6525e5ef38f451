// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"context"
	"fmt"

	"facilityconsole/internal/models"
)

// CommandKind tags the variants accepted by Dispatch.
type CommandKind string

const (
	CommandAdd    CommandKind = "add"
	CommandUpdate CommandKind = "update"
	CommandDelete CommandKind = "delete"
	CommandMove   CommandKind = "move"
)

// Command is one tree mutation. The view hands a single dispatcher down
// the tree instead of one callback per operation.
type Command interface {
	Kind() CommandKind
}

type (
	AddCommand    struct{ Request AddRequest }
	UpdateCommand struct{ Request UpdateRequest }
	DeleteCommand struct{ ID string }
	MoveCommand   struct{ Move Move }
)

func (AddCommand) Kind() CommandKind    { return CommandAdd }
func (UpdateCommand) Kind() CommandKind { return CommandUpdate }
func (DeleteCommand) Kind() CommandKind { return CommandDelete }
func (MoveCommand) Kind() CommandKind   { return CommandMove }

// Outcome reports what Dispatch did. TempID and Result are set for adds,
// Decision for moves.
type Outcome struct {
	Kind     CommandKind
	TempID   string
	Result   <-chan AddResult
	Decision MoveDecision
}

// Dispatch routes cmd to the matching editor operation.
func (e *Editor) Dispatch(ctx context.Context, forest []models.Category, cmd Command) (Outcome, error) {
	switch c := cmd.(type) {
	case AddCommand:
		tempID, result, err := e.Add(ctx, forest, c.Request)
		return Outcome{Kind: CommandAdd, TempID: tempID, Result: result}, err
	case UpdateCommand:
		return Outcome{Kind: CommandUpdate}, e.Update(ctx, forest, c.Request)
	case DeleteCommand:
		return Outcome{Kind: CommandDelete}, e.Delete(ctx, forest, c.ID)
	case MoveCommand:
		decision, err := e.Move(ctx, forest, c.Move)
		return Outcome{Kind: CommandMove, Decision: decision}, err
	case nil:
		return Outcome{}, &ValidationError{Message: "nil command"}
	}
	return Outcome{Kind: cmd.Kind()}, &ValidationError{Message: fmt.Sprintf("unsupported command %q", cmd.Kind())}
}
