package shared

import (
	"strings"

	"github.com/google/uuid"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Object
// ═══════════════════════════════════════════════════════════════════════════

// NewID returns a fresh entity id.
func NewID() string {
	return uuid.NewString()
}

// ParseID validates and normalizes an id taken from a path or payload.
func ParseID(domain, raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", WrapError(domain, "ParseID", ErrInvalidID, "malformed id", err)
	}
	return id.String(), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Pagination is a 1-based page request. Zero values mean the first page at
// the default size.
type Pagination struct {
	Page     int
	PageSize int
}

// NewPagination clamps page and size into range.
func NewPagination(page, pageSize int) Pagination {
	p := Pagination{Page: max(page, 1), PageSize: pageSize}
	p.PageSize = p.Limit()
	return p
}

// Limit is the page size clamped to [1, MaxPageSize].
func (p Pagination) Limit() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

// Offset is the number of rows to skip.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}
