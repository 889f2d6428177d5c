package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	tests := []struct {
		name          string
		number, size  int
		offset, limit int
	}{
		{"defaults", 0, 0, 0, DefaultPageSize},
		{"second page", 2, 10, 10, 10},
		{"negative page", -3, 5, 0, 5},
		{"oversized", 1, MaxPageSize + 1, 0, DefaultPageSize},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			offset, limit := Page(tt.number, tt.size)
			assert.Equal(t, tt.offset, offset)
			assert.Equal(t, tt.limit, limit)
		})
	}
}
