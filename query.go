package scootblog

import "context"

// NormalizePage clamps a page number to the valid range: values below 1
// are treated as page 1.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// NewPageInfo computes the pagination envelope for a page window over
// total matching records.
func NewPageInfo(page, pageSize, total int) PageInfo {
	page = NormalizePage(page)
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return PageInfo{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalBlogs:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}
}

// ListPage returns one page of posts matching the filter together with the
// pagination envelope. The total is recomputed from the same filter so the
// envelope stays consistent with the items.
func (s *Store) ListPage(ctx context.Context, f ListFilter, ord Order, page, pageSize int) ([]BlogPost, PageInfo, error) {
	page = NormalizePage(page)
	total, err := s.Count(ctx, f)
	if err != nil {
		return nil, PageInfo{}, err
	}
	posts, err := s.List(ctx, f, ord, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, PageInfo{}, err
	}
	return posts, NewPageInfo(page, pageSize, total), nil
}
