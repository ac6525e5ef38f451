package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/models"
)

// createTestRoot creates an isolated root category and schedules removal
// of its subtree.
func createTestRoot(t *testing.T, s *CategoryStore) *models.Category {
	t.Helper()
	root, err := s.Create(context.Background(), &models.Category{
		Kind: models.CategoryKindAsset,
		Name: "Test root " + uuid.NewString()[:8],
	})
	if err != nil {
		t.Fatalf("Create root: %v", err)
	}
	t.Cleanup(func() { cleanCategories(t, s.db, root.ID) })
	return root
}

func createChild(t *testing.T, s *CategoryStore, parent *models.Category, name string) *models.Category {
	t.Helper()
	c, err := s.Create(context.Background(), &models.Category{
		Kind:     parent.Kind,
		Name:     name,
		ParentID: &parent.ID,
	})
	if err != nil {
		t.Fatalf("Create %s: %v", name, err)
	}
	return c
}

func childNames(t *testing.T, s *CategoryStore, parentID string) []string {
	t.Helper()
	forest, err := s.Tree(context.Background(), models.CategoryKindAsset)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	node := categorytree.FindNode(forest, parentID)
	if node == nil {
		t.Fatalf("node %s not in tree", parentID)
	}
	var names []string
	for _, c := range node.Children {
		names = append(names, c.Name)
	}
	return names
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCategoryCreateAndFind(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	if root.ID == "" || root.ParentID != nil {
		t.Fatalf("unexpected root: %+v", root)
	}

	a := createChild(t, s, root, "A")
	b := createChild(t, s, root, "B")
	if a.SortOrder != 0 || b.SortOrder != 1 {
		t.Errorf("sort orders: got %d, %d, want 0, 1", a.SortOrder, b.SortOrder)
	}

	found, err := s.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if found == nil || found.Name != "B" || found.ParentID == nil || *found.ParentID != root.ID {
		t.Errorf("FindByID: got %+v", found)
	}

	missing, err := s.FindByID(ctx, uuid.NewString())
	if err != nil || missing != nil {
		t.Errorf("FindByID missing: got %+v, %v", missing, err)
	}
	garbage, err := s.FindByID(ctx, "not-a-uuid")
	if err != nil || garbage != nil {
		t.Errorf("FindByID garbage: got %+v, %v", garbage, err)
	}
}

func TestCategoryTreeDepths(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)

	root := createTestRoot(t, s)
	a := createChild(t, s, root, "A")
	b := createChild(t, s, a, "B")

	forest, err := s.Tree(context.Background(), models.CategoryKindAsset)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	node := categorytree.FindNode(forest, b.ID)
	if node == nil || node.Depth != 2 {
		t.Fatalf("B depth: got %+v", node)
	}
}

func TestCategoryUpdate(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	root.Name = root.Name + " renamed"
	root.ThumbnailRef = "thumbnails/x.jpg"
	if err := s.Update(ctx, root); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := s.FindByID(ctx, root.ID)
	if got.Name != root.Name || got.ThumbnailRef != "thumbnails/x.jpg" {
		t.Errorf("Update not persisted: %+v", got)
	}

	err := s.Update(ctx, &models.Category{ID: uuid.NewString(), Name: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing: got %v, want ErrNotFound", err)
	}
}

func TestCategoryDuplicateCode(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	code := "T-" + uuid.NewString()[:8]
	a := createChild(t, s, root, "A")
	a.Code = code
	if err := s.Update(ctx, a); err != nil {
		t.Fatalf("Update code: %v", err)
	}

	_, err := s.Create(ctx, &models.Category{Kind: models.CategoryKindAsset, Name: "B", Code: code, ParentID: &root.ID})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("duplicate code: got %v, want ErrDuplicateCode", err)
	}
}

func TestCategoryDelete(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	leaf := createChild(t, s, root, "Leaf")

	if err := s.Delete(ctx, root.ID); !errors.Is(err, ErrHasChildren) {
		t.Errorf("Delete parent: got %v, want ErrHasChildren", err)
	}
	if err := s.Delete(ctx, leaf.ID); err != nil {
		t.Fatalf("Delete leaf: %v", err)
	}
	if err := s.Delete(ctx, leaf.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete twice: got %v, want ErrNotFound", err)
	}
}

func TestCategoryMove(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	a := createChild(t, s, root, "A")
	b := createChild(t, s, root, "B")
	c := createChild(t, s, root, "C")

	if err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: c.ID, TargetID: a.ID, Position: categorytree.PositionBefore}); err != nil {
		t.Fatalf("Move before: %v", err)
	}
	if got := childNames(t, s, root.ID); !equalNames(got, []string{"C", "A", "B"}) {
		t.Errorf("after before-move: got %v", got)
	}

	if err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: c.ID, TargetID: a.ID, Position: categorytree.PositionAfter}); err != nil {
		t.Fatalf("Move after: %v", err)
	}
	if got := childNames(t, s, root.ID); !equalNames(got, []string{"A", "C", "B"}) {
		t.Errorf("after after-move: got %v", got)
	}

	if err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: b.ID, TargetID: a.ID, Position: categorytree.PositionInside}); err != nil {
		t.Fatalf("Move inside: %v", err)
	}
	if got := childNames(t, s, a.ID); !equalNames(got, []string{"B"}) {
		t.Errorf("A children: got %v", got)
	}
	if got := childNames(t, s, root.ID); !equalNames(got, []string{"A", "C"}) {
		t.Errorf("root children: got %v", got)
	}
}

func TestCategoryMoveRejectsSubtree(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)
	ctx := context.Background()

	root := createTestRoot(t, s)
	a := createChild(t, s, root, "A")
	b := createChild(t, s, a, "B")

	err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: a.ID, TargetID: b.ID, Position: categorytree.PositionInside})
	if !errors.Is(err, ErrInvalidMove) {
		t.Errorf("move into descendant: got %v, want ErrInvalidMove", err)
	}

	err = s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: a.ID, TargetID: uuid.NewString(), Position: categorytree.PositionAfter})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing target: got %v, want ErrNotFound", err)
	}

	err = s.Move(ctx, models.CategoryKindDevice, categorytree.Move{DraggedID: a.ID, TargetID: b.ID, Position: categorytree.PositionAfter})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("wrong kind: got %v, want ErrNotFound", err)
	}
}

func TestPlaceSibling(t *testing.T) {
	a, b, c, d := uuid.New(), uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name string
		pos  categorytree.Position
		tgt  uuid.UUID
		want []uuid.UUID
	}{
		{"before first", categorytree.PositionBefore, a, []uuid.UUID{d, a, b, c}},
		{"after first", categorytree.PositionAfter, a, []uuid.UUID{a, d, b, c}},
		{"after last", categorytree.PositionAfter, c, []uuid.UUID{a, b, c, d}},
		{"inside appends", categorytree.PositionInside, b, []uuid.UUID{a, b, c, d}},
		{"unknown target appends", categorytree.PositionBefore, uuid.New(), []uuid.UUID{a, b, c, d}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := placeSibling([]uuid.UUID{a, b, c}, d, tt.tgt, tt.pos)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestCategoryCreateMissingParent(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 0)

	missing := uuid.NewString()
	_, err := s.Create(context.Background(), &models.Category{
		Kind:     models.CategoryKindAsset,
		Name:     "Orphan",
		ParentID: &missing,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestMapPgError(t *testing.T) {
	fk := &pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "categories_parent_id_fkey"}

	tests := []struct {
		name  string
		err   error
		fkErr error
		want  error
	}{
		{"unique", &pgconn.PgError{Code: pgUniqueViolation}, nil, ErrDuplicateCode},
		{"fk on insert", fk, ErrNotFound, ErrNotFound},
		{"fk on delete", fk, ErrHasChildren, ErrHasChildren},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapPgError(tt.err, tt.fkErr); !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	other := errors.New("connection refused")
	if got := mapPgError(other, ErrNotFound); got != other {
		t.Errorf("unrelated errors pass through, got %v", got)
	}
	if got := mapPgError(fk, nil); got != fk {
		t.Errorf("fk without a mapping passes through, got %v", got)
	}
}

func TestCategoryCreateRespectsMaxDepth(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 2)

	root := createTestRoot(t, s)
	a := createChild(t, s, root, "A")
	b := createChild(t, s, a, "B")

	_, err := s.Create(context.Background(), &models.Category{
		Kind:     models.CategoryKindAsset,
		Name:     "C",
		ParentID: &b.ID,
	})
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("create at depth 3: got %v, want ErrTooDeep", err)
	}
	if got := childNames(t, s, b.ID); len(got) != 0 {
		t.Errorf("rejected create left children %v", got)
	}
}

// The store checks depth against the stored tree, so a caller that
// validated a move against an outdated copy cannot push a subtree past
// the limit.
func TestCategoryMoveRespectsMaxDepth(t *testing.T) {
	db := testDB(t)
	s := NewCategoryStore(db, 2)
	ctx := context.Background()

	root := createTestRoot(t, s)
	a := createChild(t, s, root, "A")
	b := createChild(t, s, root, "B")
	createChild(t, s, b, "B1")

	// B has a child, so B inside A would put B1 at depth 3.
	err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: b.ID, TargetID: a.ID, Position: categorytree.PositionInside})
	if !errors.Is(err, ErrTooDeep) {
		t.Fatalf("move inside: got %v, want ErrTooDeep", err)
	}
	if got := childNames(t, s, root.ID); !equalNames(got, []string{"A", "B"}) {
		t.Errorf("rejected move changed the tree: %v", got)
	}

	// A leaf fits one level below A.
	leaf := createChild(t, s, root, "Leaf")
	if err := s.Move(ctx, models.CategoryKindAsset, categorytree.Move{DraggedID: leaf.ID, TargetID: a.ID, Position: categorytree.PositionInside}); err != nil {
		t.Fatalf("move leaf inside: %v", err)
	}
	if got := childNames(t, s, a.ID); !equalNames(got, []string{"Leaf"}) {
		t.Errorf("A children: got %v", got)
	}
}
