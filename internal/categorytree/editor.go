// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"facilityconsole/internal/models"
)

// Editor limits.
const (
	DefaultMaxDepth = 3
	MaxNameLength   = 120
	MaxCodeLength   = 64
)

// AddRequest describes a new category.
type AddRequest struct {
	Name         string  `json:"name"`
	ParentID     *string `json:"parent_id"`
	ThumbnailRef string  `json:"thumbnail_ref,omitempty"`
	Code         string  `json:"code,omitempty"`
}

// UpdateRequest renames a category and replaces its code and thumbnail.
type UpdateRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ThumbnailRef string `json:"thumbnail_ref,omitempty"`
	Code         string `json:"code,omitempty"`
}

// Thumbnail is an uploaded image waiting to be stored.
type Thumbnail struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Collaborator persists accepted mutations. It is the system of record;
// the editor only decides whether a mutation may be attempted. Errors are
// returned to the editor's caller unchanged.
type Collaborator interface {
	// AddCategory stores a new node and returns its server-assigned id.
	AddCategory(ctx context.Context, req AddRequest) (string, error)
	UpdateCategory(ctx context.Context, req UpdateRequest) error
	// DeleteCategory is only called for leaves.
	DeleteCategory(ctx context.Context, id string) error
	MoveCategory(ctx context.Context, m Move) error
}

// ThumbnailUploader stores thumbnail images and returns an opaque reference.
type ThumbnailUploader interface {
	UploadThumbnail(ctx context.Context, t Thumbnail) (string, error)
}

// AddResult is delivered once the collaborator has answered an Add.
type AddResult struct {
	TempID string
	ID     string
	// RolledBack is set when Rollback was called for TempID before the
	// collaborator answered. The server may still hold the node under ID.
	RolledBack bool
	Err        error
}

// Options configures an Editor. Zero values select the defaults.
type Options struct {
	// MaxDepth bounds the depth of every node. Defaults to DefaultMaxDepth.
	MaxDepth int
	// Reconcile is told once per successful add which server id replaced a
	// temporary one. It must not fail.
	Reconcile func(tempID, realID string)
	// Confirm must approve each delete. A nil Confirm rejects all deletes.
	Confirm    func(node *models.Category) bool
	Thumbnails ThumbnailUploader
	Logger     *slog.Logger
}

// Editor validates tree mutations locally and hands accepted ones to the
// collaborator. The forest is passed to every call; the editor keeps no
// copy of it. Its only state is the set of adds still awaiting a server id.
type Editor struct {
	collab    Collaborator
	thumbs    ThumbnailUploader
	maxDepth  int
	reconcile func(tempID, realID string)
	confirm   func(node *models.Category) bool
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]bool // temp id -> rolled back
}

// NewEditor returns an editor that delegates to collab.
func NewEditor(collab Collaborator, opts Options) (*Editor, error) {
	if collab == nil {
		return nil, errors.New("categorytree: nil collaborator")
	}
	if opts.MaxDepth < 0 {
		return nil, fmt.Errorf("categorytree: max depth must be positive, got %d", opts.MaxDepth)
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Editor{
		collab:    collab,
		thumbs:    opts.Thumbnails,
		maxDepth:  opts.MaxDepth,
		reconcile: opts.Reconcile,
		confirm:   opts.Confirm,
		logger:    opts.Logger,
		pending:   make(map[string]bool),
	}, nil
}

// MaxDepth returns the configured depth bound.
func (e *Editor) MaxDepth() int {
	return e.maxDepth
}

// validateFields applies the name and code rules. name must be trimmed.
func validateFields(name, code string) error {
	err := validation.Errors{
		"name": validation.Validate(name,
			validation.Required.Error("name is required"),
			validation.RuneLength(1, MaxNameLength),
		),
		"code": validation.Validate(code,
			validation.RuneLength(0, MaxCodeLength),
		),
	}.Filter()
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// Add validates a new category and returns its temporary id at once,
// before the collaborator is consulted. The collaborator runs in the
// background; its answer arrives on the returned channel, which receives
// exactly one AddResult and is then closed. When the collaborator assigns
// a different id, Reconcile fires once before the result is sent.
func (e *Editor) Add(ctx context.Context, forest []models.Category, req AddRequest) (string, <-chan AddResult, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if err := validateFields(req.Name, req.Code); err != nil {
		return "", nil, err
	}

	if req.ParentID != nil {
		forest = RecalcDepths(forest)
		parent := FindNode(forest, *req.ParentID)
		if parent == nil {
			e.logger.Info("add skipped, parent not found", "parent_id", *req.ParentID)
			return "", nil, notFound(*req.ParentID)
		}
		if IsTempID(parent.ID) {
			return "", nil, fmt.Errorf("%w: %s", ErrPendingNode, parent.ID)
		}
		if depth := parent.Depth + 1; depth > e.maxDepth {
			return "", nil, &DepthError{
				NodeName:   req.Name,
				TargetID:   parent.ID,
				TargetName: parent.Name,
				NewBase:    depth,
				NewMax:     depth,
				MaxDepth:   e.maxDepth,
			}
		}
	}

	tempID := NewTempID()
	e.mu.Lock()
	e.pending[tempID] = false
	e.mu.Unlock()

	out := make(chan AddResult, 1)
	go func() {
		defer close(out)
		realID, err := e.collab.AddCategory(ctx, req)
		out <- e.settleAdd(tempID, realID, err)
	}()
	return tempID, out, nil
}

// settleAdd records the collaborator's answer for tempID.
func (e *Editor) settleAdd(tempID, realID string, err error) AddResult {
	e.mu.Lock()
	rolledBack := e.pending[tempID]
	delete(e.pending, tempID)
	e.mu.Unlock()

	res := AddResult{TempID: tempID, ID: realID, RolledBack: rolledBack}
	if err != nil {
		e.logger.Warn("add category failed", "temp_id", tempID, "error", err)
		res.Err = err
		return res
	}
	if realID == "" {
		res.Err = fmt.Errorf("add category %s: collaborator returned an empty id", tempID)
		return res
	}
	if rolledBack {
		e.logger.Info("add settled after rollback, not reconciling", "temp_id", tempID, "id", realID)
		return res
	}
	if realID != tempID && e.reconcile != nil {
		e.reconcile(tempID, realID)
	}
	e.logger.Info("category added", "temp_id", tempID, "id", realID)
	return res
}

// Rollback abandons an add that has not been answered yet: a later
// success will not be reconciled. Unknown or already settled ids return
// ErrNotFound.
func (e *Editor) Rollback(tempID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pending[tempID]; !ok {
		return notFound(tempID)
	}
	e.pending[tempID] = true
	return nil
}

// Pending returns the temporary ids whose adds are still in flight and
// have not been rolled back, sorted.
func (e *Editor) Pending() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.pending))
	for id, rolledBack := range e.pending {
		if !rolledBack {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Update renames a category. A missing node is reported as ErrNotFound
// and nothing is called.
func (e *Editor) Update(ctx context.Context, forest []models.Category, req UpdateRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Code = strings.TrimSpace(req.Code)
	if err := validateFields(req.Name, req.Code); err != nil {
		return err
	}
	if FindNode(forest, req.ID) == nil {
		e.logger.Info("update skipped, category not found", "id", req.ID)
		return notFound(req.ID)
	}
	if IsTempID(req.ID) {
		return fmt.Errorf("%w: %s", ErrPendingNode, req.ID)
	}
	if err := e.collab.UpdateCategory(ctx, req); err != nil {
		return err
	}
	e.logger.Info("category updated", "id", req.ID, "name", req.Name)
	return nil
}

// Delete removes a leaf category once Confirm approves it.
func (e *Editor) Delete(ctx context.Context, forest []models.Category, id string) error {
	node := FindNode(forest, id)
	if node == nil {
		e.logger.Info("delete skipped, category not found", "id", id)
		return notFound(id)
	}
	if n := ChildrenCount(node); n > 0 {
		return &HasChildrenError{ID: node.ID, Name: node.Name, Count: n}
	}
	if IsTempID(id) {
		return fmt.Errorf("%w: %s", ErrPendingNode, id)
	}
	if e.confirm == nil || !e.confirm(node) {
		return ErrNotConfirmed
	}
	if err := e.collab.DeleteCategory(ctx, id); err != nil {
		return err
	}
	e.logger.Info("category deleted", "id", id, "name", node.Name)
	return nil
}

// Move validates m and, if accepted, asks the collaborator to relocate the
// node. A skipped move returns MoveSkipped and a nil error. If the
// collaborator fails the decision is still MoveAccepted and its error is
// returned.
func (e *Editor) Move(ctx context.Context, forest []models.Category, m Move) (MoveDecision, error) {
	decision, err := ValidateMove(forest, m, e.maxDepth)
	if err != nil {
		e.logger.Debug("move rejected", "dragged_id", m.DraggedID, "target_id", m.TargetID,
			"position", m.Position, "reason", err)
		return decision, err
	}
	if decision == MoveSkipped {
		e.logger.Info("move skipped, category not found", "dragged_id", m.DraggedID, "target_id", m.TargetID)
		return decision, nil
	}
	if IsTempID(m.DraggedID) || IsTempID(m.TargetID) {
		return MoveRejected, fmt.Errorf("%w: move involves an unsaved category", ErrPendingNode)
	}
	if err := e.collab.MoveCategory(ctx, m); err != nil {
		return decision, err
	}
	e.logger.Info("category moved", "dragged_id", m.DraggedID, "target_id", m.TargetID, "position", m.Position)
	return decision, nil
}

// UploadThumbnail stores an image through the configured uploader and
// returns the reference to put on a category.
func (e *Editor) UploadThumbnail(ctx context.Context, t Thumbnail) (string, error) {
	if e.thumbs == nil {
		return "", ErrNoThumbnails
	}
	if len(t.Data) == 0 {
		return "", &ValidationError{Message: "thumbnail is empty"}
	}
	return e.thumbs.UploadThumbnail(ctx, t)
}
