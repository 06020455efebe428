package display

import "github.com/ledgerbook/ledger/internal/shared"

// PageRequest is a 1-indexed window applied after filtering and sorting.
type PageRequest struct {
	Number int `json:"page" validate:"gte=0"`
	Size   int `json:"size" validate:"gte=0"`
}

// Normalize fills in the first page and the default size.
func (p PageRequest) Normalize() PageRequest {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = shared.DefaultPerPage
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p PageRequest) Offset() int {
	p = p.Normalize()
	return (p.Number - 1) * p.Size
}

// Limit is the maximum number of rows on the page.
func (p PageRequest) Limit() int {
	return p.Normalize().Size
}

// Meta builds pagination metadata for a filtered total.
func (p PageRequest) Meta(total int) shared.Pagination {
	p = p.Normalize()
	return shared.NewPagination(p.Number, p.Size, total)
}

// Paginate returns the page window of items.
func Paginate[T any](items []T, page PageRequest) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + page.Limit()
	if end > len(items) {
		end = len(items)
	}
	out := make([]T, end-offset)
	copy(out, items[offset:end])
	return out
}
