package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/models"
)

//go:embed seed/categories.yaml
var defaultSeed []byte

// ParseSeed decodes a YAML taxonomy keyed by category kind. Every node is
// given a fresh id and the trees are checked against maxDepth.
func ParseSeed(data []byte, maxDepth int) (map[models.CategoryKind][]models.Category, error) {
	var raw map[models.CategoryKind][]models.Category
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("seed parse: %w", err)
	}

	for kind, forest := range raw {
		if !kind.Valid() {
			return nil, fmt.Errorf("seed: unknown category kind %q", kind)
		}
		assignIDs(forest, kind)
		forest = categorytree.RecalcDepths(forest)
		if err := categorytree.Validate(forest, maxDepth); err != nil {
			return nil, fmt.Errorf("seed %s: %w", kind, err)
		}
		raw[kind] = forest
	}
	return raw, nil
}

func assignIDs(nodes []models.Category, kind models.CategoryKind) {
	for i := range nodes {
		nodes[i].ID = uuid.NewString()
		nodes[i].Kind = kind
		nodes[i].SortOrder = i
		assignIDs(nodes[i].Children, kind)
	}
}

// Seed populates empty category trees with development data. path names a
// YAML taxonomy; when empty the embedded default is used. Trees that
// already hold categories are left alone.
func Seed(db *sql.DB, path string, maxDepth int) error {
	data := defaultSeed
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return fmt.Errorf("seed read %s: %w", path, err)
		}
	}

	trees, err := ParseSeed(data, maxDepth)
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, kind := range models.CategoryKinds {
		forest, ok := trees[kind]
		if !ok {
			continue
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM categories WHERE kind = $1", kind).Scan(&count); err != nil {
			return fmt.Errorf("seed check %s categories: %w", kind, err)
		}
		if count > 0 {
			slog.Info("category tree already seeded, skipping", "kind", kind)
			continue
		}

		if err := insertForest(ctx, db, forest); err != nil {
			return fmt.Errorf("seed %s: %w", kind, err)
		}

		var total int
		for range categorytree.Flatten(forest) {
			total++
		}
		slog.Info("category tree seeded", "kind", kind, "categories", total)
	}
	return nil
}

// insertForest writes a forest top-down in one transaction.
func insertForest(ctx context.Context, db *sql.DB, forest []models.Category) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO categories (id, kind, name, code, parent_id, sort_order, thumbnail_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for node := range categorytree.Flatten(forest) {
		if _, err := stmt.ExecContext(ctx,
			node.ID, node.Kind, node.Name, node.Code, node.ParentID, node.SortOrder, node.ThumbnailRef,
		); err != nil {
			return fmt.Errorf("insert %q: %w", node.Name, err)
		}
	}

	return tx.Commit()
}
