package pagination

import (
	"gorm.io/gorm"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Page is the envelope returned by paginated queries.
type Page[T any] struct {
	Count        int64 `json:"count"`
	NextPage     *int  `json:"next_page"`
	PreviousPage *int  `json:"previous_page"`
	Items        []T   `json:"items"`
}

// Paginate runs a count plus an offset/limit query over the given gorm
// statement. Page numbers are 1-based; out-of-range inputs are clamped.
func Paginate[T any](query *gorm.DB, page, perPage int) (*Page[T], error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	var count int64
	var model T
	if err := query.Model(&model).Count(&count).Error; err != nil {
		return nil, err
	}

	var items []T
	offset := (page - 1) * perPage
	if err := query.Offset(offset).Limit(perPage).Find(&items).Error; err != nil {
		return nil, err
	}

	return buildPage(count, page, offset, items), nil
}

func buildPage[T any](count int64, page, offset int, items []T) *Page[T] {
	result := &Page[T]{
		Count: count,
		Items: items,
	}

	if int64(offset+len(items)) < count {
		next := page + 1
		result.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		result.PreviousPage = &prev
	}

	return result
}
