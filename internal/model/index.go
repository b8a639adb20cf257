package model

// CompositeIndexRecord is the joined row for one (area, year): the three
// indicator percentages plus their unweighted mean. Rows only exist where
// all three indicators had data (inner join).
type CompositeIndexRecord struct {
	AreaCode               string  `json:"deso" csv:"deso"`
	AreaName               string  `json:"area_name" csv:"area_name"`
	Year                   int     `json:"year" csv:"year"`
	EducationPct           float64 `json:"education_percentage" csv:"education_percentage"`
	LowEconomicStandardPct float64 `json:"low_economic_standard_percentage" csv:"low_economic_standard_percentage"`
	UnemploymentPct        float64 `json:"unemployment_rate_percentage" csv:"unemployment_rate_percentage"`
	Index                  float64 `json:"socioeconomic_index" csv:"socioeconomic_index"`
}

// AreaType is the ordinal 1-5 classification of an area. Type 1 is the worst
// outcome (highest index), type 5 the best.
type AreaType int

const (
	AreaTypeMajorChallenges AreaType = 1
	AreaTypeChallenges      AreaType = 2
	AreaTypeMixed           AreaType = 3
	AreaTypeGood            AreaType = 4
	AreaTypeVeryGood        AreaType = 5
)

// areaTypeSV holds the official Swedish area type descriptions.
var areaTypeSV = map[AreaType]string{
	AreaTypeMajorChallenges: "Områden med stora socioekonomiska utmaningar",
	AreaTypeChallenges:      "Områden med socioekonomiska utmaningar",
	AreaTypeMixed:           "Socioekonomiskt blandade områden",
	AreaTypeGood:            "Områden med goda socioekonomiska förutsättningar",
	AreaTypeVeryGood:        "Områden med mycket goda socioekonomiska förutsättningar",
}

// areaTypeEN holds English area type descriptions.
var areaTypeEN = map[AreaType]string{
	AreaTypeMajorChallenges: "Areas with major socioeconomic challenges",
	AreaTypeChallenges:      "Areas with socioeconomic challenges",
	AreaTypeMixed:           "Socioeconomically mixed areas",
	AreaTypeGood:            "Areas with good socioeconomic conditions",
	AreaTypeVeryGood:        "Areas with very good socioeconomic conditions",
}

// Description returns the area type description in the given language
// ("sv" or "en"). Unknown languages fall back to Swedish.
func (a AreaType) Description(lang string) string {
	if lang == "en" {
		return areaTypeEN[a]
	}
	return areaTypeSV[a]
}

// ClassifiedRecord extends a CompositeIndexRecord with the tier assignment
// and geographic names derived from the area code prefix.
type ClassifiedRecord struct {
	CompositeIndexRecord
	AreaType            AreaType `json:"area_type" csv:"area_type"`
	AreaTypeDescription string   `json:"area_type_description" csv:"area_type_description"`
	Municipality        string   `json:"kommun" csv:"kommun"`
	County              string   `json:"lan" csv:"lan"`
}
