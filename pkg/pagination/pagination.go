package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated page/limit values for list endpoints. Offset is
// precomputed for repositories that take raw offsets.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string, falling back to
// defaults and clamping limit to [MinLimit, MaxLimit].
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Pages reports how many pages a result set of total rows spans at the
// current limit.
func (p Params) Pages(total int64) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	pages := int(total / int64(p.Limit))
	if total%int64(p.Limit) != 0 {
		pages++
	}
	return pages
}
