package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPage(t *testing.T) {
	tests := []struct {
		name     string
		count    int64
		page     int
		offset   int
		items    []int
		wantNext *int
		wantPrev *int
	}{
		{
			name:   "single page",
			count:  3,
			page:   1,
			offset: 0,
			items:  []int{1, 2, 3},
		},
		{
			name:     "first of many",
			count:    25,
			page:     1,
			offset:   0,
			items:    []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			wantNext: intPtr(2),
		},
		{
			name:     "middle page",
			count:    25,
			page:     2,
			offset:   10,
			items:    []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20},
			wantNext: intPtr(3),
			wantPrev: intPtr(1),
		},
		{
			name:     "last partial page",
			count:    25,
			page:     3,
			offset:   20,
			items:    []int{21, 22, 23, 24, 25},
			wantPrev: intPtr(2),
		},
		{
			name:  "empty result",
			count: 0,
			page:  1,
			items: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildPage(tt.count, tt.page, tt.offset, tt.items)

			assert.Equal(t, tt.count, got.Count)
			assert.Equal(t, tt.items, got.Items)
			assert.Equal(t, tt.wantNext, got.NextPage)
			assert.Equal(t, tt.wantPrev, got.PreviousPage)
		})
	}
}

func intPtr(v int) *int { return &v }
