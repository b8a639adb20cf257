package export

import (
	"sort"

	"github.com/kommundata/deso-cli/internal/model"
)

// DistributionLine is the number and share of areas assigned one area
// type in one year.
type DistributionLine struct {
	Year        int            `json:"year"`
	AreaType    model.AreaType `json:"area_type"`
	Description string         `json:"description"`
	Areas       int            `json:"areas"`
	SharePct    float64        `json:"share_percentage"`
}

// Distribution summarises how many areas fell into each area type,
// per year. Lines are ordered by (year, area type) and only cover
// types that occur. Descriptions follow the language already present
// on the records.
func Distribution(records []model.ClassifiedRecord) []DistributionLine {
	type key struct {
		year     int
		areaType model.AreaType
	}

	counts := make(map[key]int)
	descs := make(map[key]string)
	yearTotals := make(map[int]int)
	for _, r := range records {
		k := key{r.Year, r.AreaType}
		counts[k]++
		descs[k] = r.AreaTypeDescription
		yearTotals[r.Year]++
	}

	lines := make([]DistributionLine, 0, len(counts))
	for k, n := range counts {
		lines = append(lines, DistributionLine{
			Year:        k.year,
			AreaType:    k.areaType,
			Description: descs[k],
			Areas:       n,
			SharePct:    100 * float64(n) / float64(yearTotals[k.year]),
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Year != lines[j].Year {
			return lines[i].Year < lines[j].Year
		}
		return lines[i].AreaType < lines[j].AreaType
	})
	return lines
}
