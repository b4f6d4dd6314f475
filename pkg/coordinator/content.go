package coordinator

import (
	"sync/atomic"

	"github.com/dtnitsch/news-insight/models"
	"github.com/dtnitsch/news-insight/pkg/parser"
)

// ContentCell holds the latest known page content. Values are replaced
// whole and never mutated, so readers cannot observe a torn page.
type ContentCell struct {
	p atomic.Pointer[models.PageContent]
}

// Load returns the latest page, or nil.
func (c *ContentCell) Load() *models.PageContent {
	return c.p.Load()
}

// Replace stores a copy of page if it is usable. Warm-up pages and pages
// without text are rejected and leave the cell unchanged.
func (c *ContentCell) Replace(page *models.PageContent) bool {
	if page == nil || !parser.Usable(page) {
		return false
	}
	cp := *page
	c.p.Store(&cp)
	return true
}
