// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// CategoryKind identifies which category tree a node belongs to.
// Each kind is an independent forest.
type CategoryKind string

const (
	CategoryKindAsset    CategoryKind = "asset"
	CategoryKindDevice   CategoryKind = "device"
	CategoryKindFacility CategoryKind = "facility"
)

// CategoryKinds lists every supported kind in display order.
var CategoryKinds = []CategoryKind{
	CategoryKindAsset,
	CategoryKindDevice,
	CategoryKindFacility,
}

// Valid reports whether k is one of the supported kinds.
func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryKindAsset, CategoryKindDevice, CategoryKindFacility:
		return true
	}
	return false
}

// Category is a node in a category tree. The tree is owned top-down:
// a node's Children are the only references to them, so a forest of
// Category values cannot contain a cycle.
type Category struct {
	ID           string       `json:"id" yaml:"-"`
	Kind         CategoryKind `json:"kind" yaml:"-"`
	Name         string       `json:"name" yaml:"name"`
	Code         string       `json:"code,omitempty" yaml:"code,omitempty"`
	ParentID     *string      `json:"parent_id" yaml:"-"`
	SortOrder    int          `json:"sort_order" yaml:"-"`
	ThumbnailRef string       `json:"thumbnail_ref,omitempty" yaml:"thumbnail,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"-"`

	// Virtual fields. Depth is derived and never trusted from input.
	Children []Category `json:"children,omitempty" yaml:"children,omitempty"`
	Depth    int        `json:"depth" yaml:"-"`
}

// IsLeaf returns true if the category has no children.
func (c *Category) IsLeaf() bool {
	return len(c.Children) == 0
}

// IsRoot returns true if the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}
