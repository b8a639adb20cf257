package model

// IndicatorKind identifies one of the three socioeconomic indicators.
type IndicatorKind string

const (
	IndicatorEducation    IndicatorKind = "education"
	IndicatorEconomic     IndicatorKind = "economic_standard"
	IndicatorUnemployment IndicatorKind = "unemployment"
)

// Kinds lists all indicator kinds in fetch order.
var Kinds = []IndicatorKind{IndicatorEducation, IndicatorEconomic, IndicatorUnemployment}

// Valid reports whether k names a known indicator.
func (k IndicatorKind) Valid() bool {
	switch k {
	case IndicatorEducation, IndicatorEconomic, IndicatorUnemployment:
		return true
	}
	return false
}

// IndicatorRecord is one normalized observation: the indicator value for a
// DeSO area in a given year, as a percentage in [0, 100].
type IndicatorRecord struct {
	AreaCode string  `json:"area_code" csv:"deso"`
	AreaName string  `json:"area_name" csv:"area_name"`
	Year     int     `json:"year" csv:"year"`
	Value    float64 `json:"value" csv:"value"`
}

// IndicatorTable holds all observations for one indicator kind.
// After aggregation there is at most one record per (area, year).
type IndicatorTable struct {
	Kind    IndicatorKind     `json:"kind"`
	Records []IndicatorRecord `json:"records"`
}

// Empty reports whether the table holds no observations.
func (t *IndicatorTable) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Years returns the distinct years present in the table, unordered.
func (t *IndicatorTable) Years() []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range t.Records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	return years
}
