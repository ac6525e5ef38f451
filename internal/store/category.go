// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/models"
)

// Store errors. Handlers map them to HTTP statuses.
var (
	ErrNotFound      = errors.New("category not found")
	ErrHasChildren   = errors.New("category has children")
	ErrDuplicateCode = errors.New("category code already in use")
	ErrInvalidMove   = errors.New("invalid category move")
	ErrTooDeep       = errors.New("category tree too deep")
)

// PostgreSQL error codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// CategoryStore manages categories in the database. Creates and moves
// enforce maxDepth against the stored tree, whatever view the caller
// validated against.
type CategoryStore struct {
	db       *sql.DB
	maxDepth int
}

// NewCategoryStore returns a new CategoryStore. A maxDepth of zero selects
// categorytree.DefaultMaxDepth.
func NewCategoryStore(db *sql.DB, maxDepth int) *CategoryStore {
	if maxDepth <= 0 {
		maxDepth = categorytree.DefaultMaxDepth
	}
	return &CategoryStore{db: db, maxDepth: maxDepth}
}

const categoryColumns = `id, kind, name, code, parent_id, sort_order, thumbnail_ref, created_at, updated_at`

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var (
		c        models.Category
		id       uuid.UUID
		parentID *uuid.UUID
	)
	err := scanner.Scan(
		&id, &c.Kind, &c.Name, &c.Code, &parentID,
		&c.SortOrder, &c.ThumbnailRef, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.String()
	if parentID != nil {
		p := parentID.String()
		c.ParentID = &p
	}
	return &c, nil
}

// parseID converts a category id. Anything that is not a UUID cannot
// exist in the table, so it is reported as not found.
func parseID(id string) (uuid.UUID, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return u, nil
}

func parseParentID(id *string) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	u, err := parseID(*id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// mapPgError translates constraint violations into store errors. A
// parent_id foreign key violation means a missing parent on writes and a
// remaining child on deletes, so the caller supplies fkErr.
func mapPgError(err, fkErr error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgUniqueViolation:
		return fmt.Errorf("%w: %s", ErrDuplicateCode, pgErr.Detail)
	case pgForeignKeyViolation:
		if pgErr.ConstraintName == "categories_parent_id_fkey" && fkErr != nil {
			return fmt.Errorf("%w: %s", fkErr, pgErr.Detail)
		}
	}
	return err
}

// List returns all categories of a kind ordered by sort_order.
func (s *CategoryStore) List(ctx context.Context, kind models.CategoryKind) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE kind = $1
		ORDER BY sort_order, name
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var items []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Tree returns the categories of a kind as a nested forest with depths.
func (s *CategoryStore) Tree(ctx context.Context, kind models.CategoryKind) ([]models.Category, error) {
	flat, err := s.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	return categorytree.BuildForest(flat), nil
}

// FindByID retrieves a category by ID. Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id string) (*models.Category, error) {
	uid, err := parseID(id)
	if err != nil {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, uid)
	c, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	return c, nil
}

// Create inserts a new category at the end of its parent's children and
// returns it with the assigned id.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	parentID, err := parseParentID(c.ParentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if parentID != nil {
		if err := lockKind(ctx, tx, c.Kind); err != nil {
			return nil, err
		}
		depth, err := nodeDepth(ctx, tx, *parentID)
		if err != nil {
			return nil, err
		}
		if depth+1 > s.maxDepth {
			return nil, fmt.Errorf("%w: %s would sit at depth %d, maximum is %d",
				ErrTooDeep, c.Name, depth+1, s.maxDepth)
		}
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO categories (kind, name, code, parent_id, sort_order, thumbnail_ref)
		VALUES ($1, $2, $3, $4,
			COALESCE((SELECT MAX(sort_order) + 1 FROM categories
			          WHERE kind = $1 AND parent_id IS NOT DISTINCT FROM $4), 0),
			$5)
		RETURNING `+categoryColumns,
		c.Kind, c.Name, c.Code, parentID, c.ThumbnailRef,
	)
	result, err := scanCategory(row)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", mapPgError(err, ErrNotFound))
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create: %w", err)
	}
	return result, nil
}

// Update modifies the name, code and thumbnail of an existing category.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	uid, err := parseID(c.ID)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories SET
			name = $1, code = $2, thumbnail_ref = $3, updated_at = NOW()
		WHERE id = $4
	`, c.Name, c.Code, c.ThumbnailRef, uid)
	if err != nil {
		return fmt.Errorf("update category: %w", mapPgError(err, nil))
	}
	return requireRow(res, c.ID)
}

// Delete removes a leaf category by ID. The parent_id foreign key refuses
// to delete a category that still has children.
func (s *CategoryStore) Delete(ctx context.Context, id string) error {
	uid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, uid)
	if err != nil {
		return fmt.Errorf("delete category: %w", mapPgError(err, ErrHasChildren))
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Move relocates a category relative to a target in one transaction: the
// dragged node takes its new parent, and the sort_order of the destination
// sibling list is rewritten so the dragged node sits at the requested
// position. The subtree check is repeated here against the stored tree,
// which may have changed since the caller validated its copy.
func (s *CategoryStore) Move(ctx context.Context, kind models.CategoryKind, m categorytree.Move) error {
	draggedID, err := parseID(m.DraggedID)
	if err != nil {
		return err
	}
	targetID, err := parseID(m.TargetID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := lockKind(ctx, tx, kind); err != nil {
		return err
	}

	var targetParent *uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT parent_id FROM categories WHERE id = $1 AND kind = $2`, targetID, kind,
	).Scan(&targetParent)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrNotFound, m.TargetID)
	}
	if err != nil {
		return fmt.Errorf("find move target: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND kind = $2)`, draggedID, kind,
	).Scan(&exists); err != nil {
		return fmt.Errorf("find dragged category: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, m.DraggedID)
	}

	newParent := targetParent
	newBase := 0
	if m.Position == categorytree.PositionInside {
		newParent = &targetID
	}
	if newParent != nil {
		parentDepth, err := nodeDepth(ctx, tx, *newParent)
		if err != nil {
			return err
		}
		newBase = parentDepth + 1
	}

	var cycle bool
	if err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT EXISTS (SELECT 1 FROM subtree WHERE id = $2)
	`, draggedID, targetID).Scan(&cycle); err != nil {
		return fmt.Errorf("check move subtree: %w", err)
	}
	if cycle {
		return fmt.Errorf("%w: %s is inside the subtree of %s", ErrInvalidMove, m.TargetID, m.DraggedID)
	}

	var span int
	if err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id, 0 AS level FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, s.level + 1 FROM categories c JOIN subtree s ON c.parent_id = s.id
		)
		SELECT MAX(level) FROM subtree
	`, draggedID).Scan(&span); err != nil {
		return fmt.Errorf("measure move subtree: %w", err)
	}
	if newBase+span > s.maxDepth {
		return fmt.Errorf("%w: %s would reach depth %d, maximum is %d",
			ErrTooDeep, m.DraggedID, newBase+span, s.maxDepth)
	}

	siblings, err := siblingIDs(ctx, tx, kind, newParent, draggedID)
	if err != nil {
		return err
	}
	order := placeSibling(siblings, draggedID, targetID, m.Position)

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE categories SET parent_id = $1, updated_at = $2 WHERE id = $3`,
		newParent, now, draggedID,
	); err != nil {
		return fmt.Errorf("reparent category: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `UPDATE categories SET sort_order = $1, updated_at = $2 WHERE id = $3`)
	if err != nil {
		return fmt.Errorf("prepare reorder: %w", err)
	}
	defer stmt.Close()

	for i, id := range order {
		if _, err := stmt.ExecContext(ctx, i, now, id); err != nil {
			return fmt.Errorf("reorder category %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// lockKind locks every category of kind until the transaction ends, so
// depth and cycle checks see the tree the write will land in.
func lockKind(ctx context.Context, tx *sql.Tx, kind models.CategoryKind) error {
	if _, err := tx.ExecContext(ctx, `SELECT id FROM categories WHERE kind = $1 FOR UPDATE`, kind); err != nil {
		return fmt.Errorf("lock categories: %w", err)
	}
	return nil
}

// nodeDepth returns the depth of id in the stored tree by walking up its
// ancestors. Roots are 0.
func nodeDepth(ctx context.Context, tx *sql.Tx, id uuid.UUID) (int, error) {
	var depth sql.NullInt64
	err := tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT parent_id, 0 AS depth FROM categories WHERE id = $1
			UNION ALL
			SELECT c.parent_id, a.depth + 1 FROM categories c JOIN ancestors a ON c.id = a.parent_id
		)
		SELECT MAX(depth) FROM ancestors
	`, id).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("category depth: %w", err)
	}
	if !depth.Valid {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return int(depth.Int64), nil
}

// siblingIDs lists the children of parentID in display order, leaving out
// the node being moved.
func siblingIDs(ctx context.Context, tx *sql.Tx, kind models.CategoryKind, parentID *uuid.UUID, exclude uuid.UUID) ([]uuid.UUID, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM categories
		WHERE kind = $1 AND parent_id IS NOT DISTINCT FROM $2 AND id <> $3
		ORDER BY sort_order, name
	`, kind, parentID, exclude)
	if err != nil {
		return nil, fmt.Errorf("list siblings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sibling: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// placeSibling inserts dragged into the sibling list relative to target.
// Inside drops, and drops whose target is not in the list, append.
func placeSibling(siblings []uuid.UUID, dragged, target uuid.UUID, pos categorytree.Position) []uuid.UUID {
	idx := slices.Index(siblings, target)
	if pos == categorytree.PositionInside || idx < 0 {
		return append(siblings, dragged)
	}
	if pos == categorytree.PositionAfter {
		idx++
	}
	return slices.Insert(siblings, idx, dragged)
}
