package indicator

import "github.com/kommundata/deso-cli/internal/model"

// Cache memoizes fetched indicator tables for one analysis run. It is
// constructor-injected rather than package state so parallel runs with
// separate caches stay independent. Not safe for concurrent use; the
// pipeline is sequential.
type Cache struct {
	tables map[model.IndicatorKind]*model.IndicatorTable
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{tables: make(map[model.IndicatorKind]*model.IndicatorTable)}
}

// Get returns the cached table for kind, if present.
func (c *Cache) Get(kind model.IndicatorKind) (*model.IndicatorTable, bool) {
	t, ok := c.tables[kind]
	return t, ok
}

// Put stores a fetched table.
func (c *Cache) Put(t *model.IndicatorTable) {
	c.tables[t.Kind] = t
}

// Clear drops all cached tables, forcing the next fetch to hit the API.
func (c *Cache) Clear() {
	c.tables = make(map[model.IndicatorKind]*model.IndicatorTable)
}
