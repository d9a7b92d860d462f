package app

import "marriott_mcp/internal/domain"

const DefaultPageSize = 5

// NormalizePage treats anything below 1 as the first page.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func pageSizeOrDefault(pageSize int) int {
	if pageSize <= 0 {
		return DefaultPageSize
	}
	return pageSize
}

func ToOffset(page, pageSize int) int {
	return (NormalizePage(page) - 1) * pageSizeOrDefault(pageSize)
}

// ToPageInfo derives page metadata from the provider-reported total,
// never from the number of rows actually returned.
func ToPageInfo(total, pageSize, page, returned int) domain.PageInfo {
	pageSize = pageSizeOrDefault(pageSize)
	page = NormalizePage(page)
	if total < 0 {
		total = 0
	}
	totalPages := (total + pageSize - 1) / pageSize

	pi := domain.PageInfo{
		CurrentPage:  page,
		TotalPages:   totalPages,
		TotalResults: total,
		PerPage:      pageSize,
		HasNextPage:  page < totalPages,
		HasPrevPage:  page > 1,
	}
	if returned > 0 {
		offset := ToOffset(page, pageSize)
		pi.ShowingFrom = offset + 1
		pi.ShowingTo = offset + returned
	}
	return pi
}
