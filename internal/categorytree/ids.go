// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package categorytree

import (
	"strings"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers assigned locally to nodes whose server id
// is not yet known. Server ids are UUIDs, and a prefixed value never parses
// as one, so the two namespaces cannot collide.
const TempIDPrefix = "pending:"

// NewTempID returns a fresh temporary identifier. Each call is unique.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was produced by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
