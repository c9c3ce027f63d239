package postgres

import "fmt"

// MaxPageSize caps the number of rows returned by a single list call.
const MaxPageSize = 50

// DefaultPageSize is used when a list call does not specify a page size.
const DefaultPageSize = 20

// ListParams carries pagination, search, and sort options for list queries.
// Zero values are normalised to sensible defaults rather than rejected.
type ListParams struct {
	// Page is 1-based.
	Page int
	// PageSize is clamped to [1, MaxPageSize].
	PageSize int
	// Search filters rows by a case-insensitive substring match on the
	// entity's searchable columns. Empty means no filter.
	Search string
	// Sort names the sort column. Columns not in the entity's whitelist
	// fall back to "id".
	Sort string
	// Desc reverses the sort direction.
	Desc bool
}

// normalized returns a copy of p with page and page size clamped into range.
func (p ListParams) normalized() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// orderBy builds an ORDER BY clause from the whitelist of sortable columns.
// Unknown sort keys fall back to id ascending. The returned fragment is
// assembled only from whitelisted identifiers, never from raw input.
func (p ListParams) orderBy(allowed map[string]string) string {
	col, ok := allowed[p.Sort]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	if col == "id" {
		return fmt.Sprintf("ORDER BY id %s", dir)
	}
	// Secondary id sort keeps pagination stable across equal keys.
	return fmt.Sprintf("ORDER BY %s %s, id ASC", col, dir)
}

// limitOffset returns LIMIT and OFFSET values for the normalised params.
func (p ListParams) limitOffset() (limit, offset int) {
	return p.PageSize, (p.Page - 1) * p.PageSize
}
