package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"facilityconsole/internal/models"
)

// Request limits.
const (
	maxJSONBody      = 64 << 10
	maxThumbnailSize = 10 << 20
)

// errBadRequest marks a malformed request body or parameter.
var errBadRequest = errors.New("bad request")

// kindParam reads and checks the {kind} URL parameter.
func kindParam(r *http.Request) (models.CategoryKind, bool) {
	kind := models.CategoryKind(strings.ToLower(chi.URLParam(r, "kind")))
	return kind, kind.Valid()
}

// decodeJSON reads a size-limited JSON body into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", errBadRequest, maxErr.Limit)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// queryFlag reports whether a query parameter is set to a true value.
func queryFlag(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// queryList splits a comma-separated query parameter.
func queryList(r *http.Request, name string) []string {
	var out []string
	for part := range strings.SplitSeq(r.URL.Query().Get(name), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
