package handler // handler implements the HTTP endpoints of the platform

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Pagination bounds shared by every paged listing endpoint.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams reads ?page and ?page_size query parameters and converts
// them to a LIMIT/OFFSET pair.  Page numbers start at 1; sizes are
// clamped to maxPageSize and fall back to the default when absent or
// malformed.
func pageParams(c echo.Context) (limit, offset int) {
	page := 1
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	size := defaultPageSize
	if v, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && v > 0 {
		size = v
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
