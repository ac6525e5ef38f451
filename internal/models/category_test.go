package models

import "testing"

// TestCategoryKindValid verifies that only the three supported tree kinds
// are accepted.
func TestCategoryKindValid(t *testing.T) {
	tests := []struct {
		name string
		kind CategoryKind
		want bool
	}{
		{name: "asset", kind: CategoryKindAsset, want: true},
		{name: "device", kind: CategoryKindDevice, want: true},
		{name: "facility", kind: CategoryKindFacility, want: true},
		{name: "empty", kind: CategoryKind(""), want: false},
		{name: "uppercase", kind: CategoryKind("ASSET"), want: false},
		{name: "unknown", kind: CategoryKind("building"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("CategoryKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestCategoryKindsAreValid(t *testing.T) {
	if len(CategoryKinds) != 3 {
		t.Fatalf("CategoryKinds: got %d entries, want 3", len(CategoryKinds))
	}
	for _, k := range CategoryKinds {
		if !k.Valid() {
			t.Errorf("CategoryKinds contains invalid kind %q", k)
		}
	}
}

func TestCategoryIsLeafAndRoot(t *testing.T) {
	parent := "p"
	leaf := Category{ID: "a", ParentID: &parent}
	if !leaf.IsLeaf() {
		t.Error("category without children should be a leaf")
	}
	if leaf.IsRoot() {
		t.Error("category with a parent should not be a root")
	}

	root := Category{ID: "p", Children: []Category{leaf}}
	if root.IsLeaf() {
		t.Error("category with children should not be a leaf")
	}
	if !root.IsRoot() {
		t.Error("category without a parent should be a root")
	}
}
