package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Limit: DefaultPageLimit}, NewPage(0, 0))
	assert.Equal(t, Page{Number: 3, Limit: 20}, NewPage(3, 20))
	assert.Equal(t, Page{Number: 1, Limit: MaxPageLimit}, NewPage(-4, 1000))
}

func TestPageFromQuery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/jobs?page=2&limit=1000", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	p := PageFromQuery(c)
	assert.Equal(t, 2, p.Number)
	assert.Equal(t, 50, p.Limit)
	assert.EqualValues(t, 50, p.Skip())
}

func TestPaginate(t *testing.T) {
	p := NewPage(1, 10).Paginate(25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPage(3, 10).Paginate(25)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPage(1, 10).Paginate(0)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)
}
