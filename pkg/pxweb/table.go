package pxweb

import "strings"

// Standard column names produced by flattening. The region dimension always
// yields RegionCodeColumn and RegionColumn; the time dimension yields the
// cleaned form of its label ("år" → "ar").
const (
	RegionCodeColumn = "region_code"
	RegionColumn     = "region"
)

// Row is one flattened observation keyed by cleaned column name. Dimension
// columns hold string values; measure columns hold float64.
type Row map[string]any

// String returns the string value of a dimension column, or "" if absent.
func (r Row) String(col string) string {
	if v, ok := r[col].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value of a measure column.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r[col].(float64)
	return v, ok
}

// Table is the flattened form of a PxWeb dataset: one row per combination of
// non-measure dimension values, with one numeric column per content code.
type Table struct {
	// Columns lists all column names in output order: region_code, region,
	// remaining dimension columns, time column, then measure columns.
	Columns []string
	// MeasureColumns lists only the numeric columns, in content code order.
	MeasureColumns []string
	// TimeColumn is the cleaned name of the time dimension ("ar" for Swedish).
	TimeColumn string
	Rows       []Row
}

// HasColumn reports whether the table contains the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MeasureContaining returns the first measure column whose name contains the
// given substring (case-insensitive), or "" if none matches.
func (t *Table) MeasureContaining(substr string) string {
	substr = strings.ToLower(substr)
	for _, c := range t.MeasureColumns {
		if strings.Contains(strings.ToLower(c), substr) {
			return c
		}
	}
	return ""
}
