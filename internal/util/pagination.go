package util

const (
	DefaultPageSize = 1000
	MaxPageSize     = 1000
)

// Page turns a 1-based page number and size into an offset and limit.
// Out-of-range sizes fall back to DefaultPageSize.
func Page(pageNumber, pageSize int) (offset, limit int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return (pageNumber - 1) * pageSize, pageSize
}
