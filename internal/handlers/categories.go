// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers serves the category tree API. Every mutation is checked
// by a categorytree.Editor against the current forest before it reaches
// the store, so the depth bound, cycle prevention and leaf-only deletes
// hold no matter which client calls the API.
package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/imaging"
	"facilityconsole/internal/metrics"
	"facilityconsole/internal/models"
	"facilityconsole/internal/store"
)

// CategoryRepository is the system of record for category trees.
type CategoryRepository interface {
	Tree(ctx context.Context, kind models.CategoryKind) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, kind models.CategoryKind, m categorytree.Move) error
}

// TreeCache holds rendered forests between mutations. Get returns the
// generation it looked under; Set only becomes visible if no Invalidate
// happened since that generation was read.
type TreeCache interface {
	Get(ctx context.Context, kind models.CategoryKind) ([]models.Category, int64, bool)
	Set(ctx context.Context, kind models.CategoryKind, gen int64, forest []models.Category)
	Invalidate(ctx context.Context, kind models.CategoryKind)
}

// ThumbnailStore stores thumbnail images and removes replaced ones.
type ThumbnailStore interface {
	categorytree.ThumbnailUploader
	DeleteThumbnail(ctx context.Context, ref string) error
}

// Categories groups the category tree handlers.
type Categories struct {
	repo     CategoryRepository
	cache    TreeCache
	thumbs   ThumbnailStore
	metrics  *metrics.Metrics
	maxDepth int
}

// NewCategories creates the category handler group. cache, thumbs and m
// may be nil.
func NewCategories(repo CategoryRepository, cache TreeCache, thumbs ThumbnailStore, m *metrics.Metrics, maxDepth int) *Categories {
	return &Categories{
		repo:     repo,
		cache:    cache,
		thumbs:   thumbs,
		metrics:  m,
		maxDepth: maxDepth,
	}
}

// storeCollaborator adapts the repository to the editor for one kind.
type storeCollaborator struct {
	repo CategoryRepository
	kind models.CategoryKind
}

func (s storeCollaborator) AddCategory(ctx context.Context, req categorytree.AddRequest) (string, error) {
	created, err := s.repo.Create(ctx, &models.Category{
		Kind:         s.kind,
		Name:         req.Name,
		Code:         req.Code,
		ParentID:     req.ParentID,
		ThumbnailRef: req.ThumbnailRef,
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (s storeCollaborator) UpdateCategory(ctx context.Context, req categorytree.UpdateRequest) error {
	return s.repo.Update(ctx, &models.Category{
		ID:           req.ID,
		Kind:         s.kind,
		Name:         req.Name,
		Code:         req.Code,
		ThumbnailRef: req.ThumbnailRef,
	})
}

func (s storeCollaborator) DeleteCategory(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s storeCollaborator) MoveCategory(ctx context.Context, m categorytree.Move) error {
	return s.repo.Move(ctx, s.kind, m)
}

// editor builds a request-scoped editor for kind.
func (h *Categories) editor(kind models.CategoryKind, opts categorytree.Options) (*categorytree.Editor, error) {
	opts.MaxDepth = h.maxDepth
	if h.thumbs != nil {
		opts.Thumbnails = h.thumbs
	}
	opts.Logger = slog.Default().With("kind", kind)
	return categorytree.NewEditor(storeCollaborator{repo: h.repo, kind: kind}, opts)
}

// forest returns the current tree for kind, from the cache when possible.
func (h *Categories) forest(ctx context.Context, kind models.CategoryKind) ([]models.Category, error) {
	if h.cache == nil {
		return h.repo.Tree(ctx, kind)
	}
	forest, gen, ok := h.cache.Get(ctx, kind)
	h.metrics.ObserveTreeCache(ok)
	if ok {
		return categorytree.RecalcDepths(forest), nil
	}
	forest, err := h.repo.Tree(ctx, kind)
	if err != nil {
		return nil, err
	}
	h.cache.Set(ctx, kind, gen, forest)
	return forest, nil
}

// changed drops the cached tree after a mutation that reached the store.
// It runs even if the request was cancelled after the write committed.
func (h *Categories) changed(ctx context.Context, kind models.CategoryKind) {
	if h.cache != nil {
		h.cache.Invalidate(context.WithoutCancel(ctx), kind)
	}
}

// dropThumbnail removes a replaced or orphaned thumbnail. Failures only
// leave an unreferenced object behind, so they are logged and ignored.
func (h *Categories) dropThumbnail(ctx context.Context, ref string) {
	if h.thumbs == nil || ref == "" {
		return
	}
	if err := h.thumbs.DeleteThumbnail(ctx, ref); err != nil {
		slog.Warn("thumbnail cleanup failed", "ref", ref, "error", err)
	}
}

// flatNode is one row of the flattened tree.
type flatNode struct {
	ID           string  `json:"id"`
	ParentID     *string `json:"parent_id"`
	Name         string  `json:"name"`
	Code         string  `json:"code,omitempty"`
	ThumbnailRef string  `json:"thumbnail_ref,omitempty"`
	Depth        int     `json:"depth"`
	Children     int     `json:"children"`
	Descendants  int     `json:"descendants"`
}

// List returns the tree of one kind. With ?flat=1 the tree is returned as
// an ordered list of rows with depths; ids in ?collapsed= hide their
// descendants from that list.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category kind")
		return
	}

	forest, err := h.forest(r.Context(), kind)
	if err != nil {
		slog.Error("load category tree failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load categories")
		return
	}

	if !queryFlag(r, "flat") {
		if forest == nil {
			forest = []models.Category{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"kind":       kind,
			"max_depth":  h.maxDepth,
			"categories": forest,
		})
		return
	}

	state := categorytree.NewInteractionState()
	for _, id := range queryList(r, "collapsed") {
		state.SetExpanded(id, false)
	}
	rows := []flatNode{}
	for node, depth := range categorytree.FlattenVisible(forest, state) {
		rows = append(rows, flatNode{
			ID:           node.ID,
			ParentID:     node.ParentID,
			Name:         node.Name,
			Code:         node.Code,
			ThumbnailRef: node.ThumbnailRef,
			Depth:        depth,
			Children:     categorytree.ChildrenCount(node),
			Descendants:  categorytree.DescendantCount(node),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":       kind,
		"max_depth":  h.maxDepth,
		"categories": rows,
	})
}

// Create adds a category. The temporary id is issued before the store is
// called; the response carries it together with the id the store assigned.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category kind")
		return
	}

	var req categorytree.AddRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, kind, "add", err)
		return
	}

	forest, err := h.forest(r.Context(), kind)
	if err != nil {
		h.fail(w, kind, "add", err)
		return
	}

	reconciled := make(map[string]string, 1)
	ed, err := h.editor(kind, categorytree.Options{
		Reconcile: func(tempID, realID string) { reconciled[tempID] = realID },
	})
	if err != nil {
		h.fail(w, kind, "add", err)
		return
	}

	tempID, result, err := ed.Add(r.Context(), forest, req)
	if err != nil {
		h.fail(w, kind, "add", err)
		return
	}

	var res categorytree.AddResult
	select {
	case res = <-result:
	case <-r.Context().Done():
		ed.Rollback(tempID)
		slog.Warn("add abandoned, client went away", "kind", kind, "temp_id", tempID)
		// The insert may still commit; drop the cached tree once it has.
		go func(ctx context.Context) {
			if res := <-result; res.Err == nil {
				h.changed(ctx, kind)
			}
		}(r.Context())
		return
	}
	if res.Err != nil {
		h.fail(w, kind, "add", res.Err)
		return
	}

	h.changed(r.Context(), kind)
	h.metrics.ObserveCategoryOp(string(kind), "add", "ok")
	writeJSON(w, http.StatusCreated, map[string]any{
		"temp_id": tempID,
		"id":      reconciled[tempID],
	})
}

// updateBody is the PUT payload. Omitted code or thumbnail_ref keep the
// stored values.
type updateBody struct {
	Name         string  `json:"name"`
	Code         *string `json:"code"`
	ThumbnailRef *string `json:"thumbnail_ref"`
}

// Update renames a category and optionally replaces its code and thumbnail.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category kind")
		return
	}

	var body updateBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, kind, "update", err)
		return
	}

	forest, err := h.forest(r.Context(), kind)
	if err != nil {
		h.fail(w, kind, "update", err)
		return
	}

	req := categorytree.UpdateRequest{ID: chi.URLParam(r, "id"), Name: body.Name}
	var oldThumb string
	if node := categorytree.FindNode(forest, req.ID); node != nil {
		req.Code, req.ThumbnailRef, oldThumb = node.Code, node.ThumbnailRef, node.ThumbnailRef
	}
	if body.Code != nil {
		req.Code = *body.Code
	}
	if body.ThumbnailRef != nil {
		req.ThumbnailRef = strings.TrimSpace(*body.ThumbnailRef)
	}

	ed, err := h.editor(kind, categorytree.Options{})
	if err != nil {
		h.fail(w, kind, "update", err)
		return
	}
	if err := ed.Update(r.Context(), forest, req); err != nil {
		h.fail(w, kind, "update", err)
		return
	}

	if oldThumb != req.ThumbnailRef {
		h.dropThumbnail(r.Context(), oldThumb)
	}
	h.changed(r.Context(), kind)
	h.metrics.ObserveCategoryOp(string(kind), "update", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID})
}

// Delete removes a leaf category. The caller confirms with ?confirm=true.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category kind")
		return
	}

	forest, err := h.forest(r.Context(), kind)
	if err != nil {
		h.fail(w, kind, "delete", err)
		return
	}

	confirmed := queryFlag(r, "confirm")
	var thumb string
	ed, err := h.editor(kind, categorytree.Options{
		Confirm: func(node *models.Category) bool {
			thumb = node.ThumbnailRef
			return confirmed
		},
	})
	if err != nil {
		h.fail(w, kind, "delete", err)
		return
	}

	if err := ed.Delete(r.Context(), forest, chi.URLParam(r, "id")); err != nil {
		h.fail(w, kind, "delete", err)
		return
	}

	h.dropThumbnail(r.Context(), thumb)
	h.changed(r.Context(), kind)
	h.metrics.ObserveCategoryOp(string(kind), "delete", "ok")
	w.WriteHeader(http.StatusNoContent)
}

// moveBody is the drop description sent when a drag ends.
type moveBody struct {
	TargetID string `json:"target_id"`
	Position string `json:"position"`
}

// Move relocates a category before, after or inside a target. Moves that
// name a missing category are skipped and reported as such.
func (h *Categories) Move(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown category kind")
		return
	}

	var body moveBody
	if err := decodeJSON(w, r, &body); err != nil {
		h.fail(w, kind, "move", err)
		return
	}
	pos, err := categorytree.ParsePosition(body.Position)
	if err != nil {
		h.fail(w, kind, "move", err)
		return
	}

	forest, err := h.forest(r.Context(), kind)
	if err != nil {
		h.fail(w, kind, "move", err)
		return
	}

	ed, err := h.editor(kind, categorytree.Options{})
	if err != nil {
		h.fail(w, kind, "move", err)
		return
	}

	m := categorytree.Move{DraggedID: chi.URLParam(r, "id"), TargetID: body.TargetID, Position: pos}
	decision, err := ed.Move(r.Context(), forest, m)
	h.metrics.ObserveMoveDecision(decision.String())
	if err != nil {
		h.fail(w, kind, "move", err)
		return
	}

	if decision == categorytree.MoveAccepted {
		h.changed(r.Context(), kind)
	}
	h.metrics.ObserveCategoryOp(string(kind), "move", "ok")
	writeJSON(w, http.StatusOK, map[string]string{"decision": decision.String()})
}

// UploadThumbnail accepts a multipart image in the "file" field, stores a
// resized copy and returns the reference to put on a category.
func (h *Categories) UploadThumbnail(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxThumbnailSize+1024)
	if err := r.ParseMultipartForm(maxThumbnailSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	// Sniff the real content type; the client header is not trusted.
	contentType, ok := imaging.DetectType(data)
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, "file type not allowed: "+contentType)
		return
	}

	// Uploads are not tied to a kind; the editor only needs the uploader.
	ed, err := h.editor(models.CategoryKindAsset, categorytree.Options{})
	if err != nil {
		writeEditorError(w, err)
		return
	}
	ref, err := ed.UploadThumbnail(r.Context(), categorytree.Thumbnail{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		writeEditorError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"thumbnail_ref": ref})
}

// fail counts a failed operation and writes the mapped error response.
func (h *Categories) fail(w http.ResponseWriter, kind models.CategoryKind, op string, err error) {
	status := writeEditorError(w, err)
	result := "error"
	switch {
	case status == http.StatusNotFound:
		result = "not_found"
	case status == http.StatusConflict:
		result = "conflict"
	case status < http.StatusInternalServerError:
		result = "invalid"
	}
	h.metrics.ObserveCategoryOp(string(kind), op, result)
}

// writeEditorError maps editor, store and request errors to HTTP statuses
// and writes a JSON error body. It returns the status written.
func writeEditorError(w http.ResponseWriter, err error) int {
	var (
		status  int
		cycle   *categorytree.CycleError
		depth   *categorytree.DepthError
		hasKids *categorytree.HasChildrenError
	)
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, categorytree.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.As(err, &hasKids), errors.Is(err, store.ErrHasChildren),
		errors.Is(err, categorytree.ErrNotConfirmed),
		errors.Is(err, categorytree.ErrPendingNode),
		errors.Is(err, store.ErrDuplicateCode):
		status = http.StatusConflict
	case errors.As(err, &cycle), errors.As(err, &depth),
		errors.Is(err, store.ErrInvalidMove), errors.Is(err, store.ErrTooDeep):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, categorytree.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, imaging.ErrUnsupported):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, categorytree.ErrNoThumbnails):
		status = http.StatusNotImplemented
	default:
		slog.Error("category request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
	return status
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
