package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func paramsFor(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := paramsFor("")
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Equal(t, 0, p.Offset)
	})

	t.Run("explicit values", func(t *testing.T) {
		p := paramsFor("page=3&limit=10")
		assert.Equal(t, 3, p.Page)
		assert.Equal(t, 10, p.Limit)
		assert.Equal(t, 20, p.Offset)
	})

	t.Run("limit clamped to max", func(t *testing.T) {
		p := paramsFor("limit=5000")
		assert.Equal(t, MaxLimit, p.Limit)
	})

	t.Run("garbage falls back to defaults", func(t *testing.T) {
		p := paramsFor("page=-2&limit=abc")
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
	})
}

func TestPages(t *testing.T) {
	p := Params{Page: 1, Limit: 20}

	assert.Equal(t, 0, p.Pages(0))
	assert.Equal(t, 1, p.Pages(1))
	assert.Equal(t, 1, p.Pages(20))
	assert.Equal(t, 2, p.Pages(21))
	assert.Equal(t, 5, p.Pages(100))
}
