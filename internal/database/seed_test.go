package database

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"facilityconsole/internal/categorytree"
	"facilityconsole/internal/models"
)

func TestParseSeedDefault(t *testing.T) {
	trees, err := ParseSeed(defaultSeed, 3)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}

	for _, kind := range models.CategoryKinds {
		forest := trees[kind]
		if len(forest) == 0 {
			t.Errorf("default seed has no %s categories", kind)
			continue
		}
		for node := range categorytree.Flatten(forest) {
			if node.ID == "" {
				t.Errorf("%s: %q has no id", kind, node.Name)
			}
			if node.Kind != kind {
				t.Errorf("%s: %q has kind %q", kind, node.Name, node.Kind)
			}
		}
	}

	chairs := findByName(trees[models.CategoryKindAsset], "Office chairs")
	if chairs == nil {
		t.Fatal("Office chairs missing from asset seed")
	}
	if chairs.Depth != 2 || chairs.ParentID == nil {
		t.Errorf("Office chairs: depth=%d parent=%v, want depth 2 with a parent", chairs.Depth, chairs.ParentID)
	}
}

func findByName(forest []models.Category, name string) *models.Category {
	for node := range categorytree.Flatten(forest) {
		if node.Name == name {
			return node
		}
	}
	return nil
}

func TestParseSeedErrors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		maxDepth int
		want     string
	}{
		{name: "unknown kind", yaml: "building:\n  - name: X\n", maxDepth: 3, want: "unknown category kind"},
		{name: "too deep", yaml: "asset:\n  - name: A\n    children:\n      - name: B\n", maxDepth: 0, want: "maximum depth"},
		{name: "bad yaml", yaml: "asset: [", maxDepth: 3, want: "seed parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.yaml), tt.maxDepth)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestSeedIdempotent(t *testing.T) {
	db, err := Connect(testDSN())
	if err != nil {
		t.Skipf("skipping: DB not available: %v", err)
	}
	defer db.Close()

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// Seed only fills empty trees, so calling it twice must not duplicate.
	if err := Seed(db, "", 3); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	var before int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&before); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if err := Seed(db, "", 3); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	var after int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&after); err != nil {
		t.Fatalf("count categories: %v", err)
	}
	if before == 0 || before != after {
		t.Errorf("category count: before=%d after=%d", before, after)
	}
}

func TestSeedMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be absent", path)
	}
	// The file is read before the database is touched.
	if err := Seed(nil, path, 3); err == nil {
		t.Error("expected error for missing seed file")
	}
}
