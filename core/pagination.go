package core

const (
	PageSize         = 12
	LoadMorePageSize = 9
)

// Pagination describes one page of a result set.
// The requested page number is clamped to [1, NumPages], the way listing pages behave
// when given a stale or bogus `?page=`.
type Pagination struct {
	Number      int  `json:"number"`
	Size        int  `json:"size"`
	Total       int  `json:"total"`
	NumPages    int  `json:"num_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

func NewPagination(number, size, total int) Pagination {
	if size <= 0 {
		size = PageSize
	}
	if total < 0 {
		total = 0
	}
	numPages := (total + size - 1) / size
	if numPages == 0 {
		numPages = 1 // an empty result still has one (empty) page
	}
	if number < 1 {
		number = 1
	} else if number > numPages {
		number = numPages
	}
	return Pagination{
		Number:      number,
		Size:        size,
		Total:       total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
}

func (p Pagination) Offset() int {
	return (p.Number - 1) * p.Size
}

func (p Pagination) Limit() int {
	return p.Size
}
