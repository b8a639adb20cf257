// Package index merges the three indicator tables into the composite
// socioeconomic index.
package index

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/indicator"
	"github.com/kommundata/deso-cli/internal/metrics"
	"github.com/kommundata/deso-cli/internal/model"
)

// Calculator joins the indicator tables and computes the composite index.
// It consults the shared cache before fetching.
type Calculator struct {
	fetcher *indicator.Fetcher
	cache   *indicator.Cache
}

// NewCalculator creates a Calculator sharing the fetcher's cache.
func NewCalculator(f *indicator.Fetcher, cache *indicator.Cache) *Calculator {
	return &Calculator{fetcher: f, cache: cache}
}

// Calculate fetches any missing indicators and inner-joins the three tables
// on (area, year). The composite index is the unweighted mean of the three
// percentages. A failed fetch for any indicator fails the whole calculation.
// Cached tables are reused only when they cover every requested year;
// otherwise the cache is cleared so a reused Calculator never mixes year
// sets.
func (c *Calculator) Calculate(ctx context.Context, years []int) ([]model.CompositeIndexRecord, error) {
	if !c.cacheCovers(years) {
		c.cache.Clear()
	}

	tables := make(map[model.IndicatorKind]*model.IndicatorTable, len(model.Kinds))
	for _, kind := range model.Kinds {
		table, ok := c.cache.Get(kind)
		if !ok {
			var err error
			table, err = c.fetcher.Fetch(ctx, kind, years)
			if err != nil {
				return nil, eris.Wrapf(err, "index: %s unavailable", kind)
			}
		}
		tables[kind] = table
	}
	return Join(
		tables[model.IndicatorEducation],
		tables[model.IndicatorEconomic],
		tables[model.IndicatorUnemployment],
	), nil
}

// cacheCovers reports whether every indicator has a cached table containing
// all requested years. An empty table never covers anything, so a retry
// after an empty fetch goes back to the API.
func (c *Calculator) cacheCovers(years []int) bool {
	for _, kind := range model.Kinds {
		table, ok := c.cache.Get(kind)
		if !ok || table.Empty() {
			return false
		}
		cached := make(map[int]bool, len(table.Records))
		for _, y := range table.Years() {
			cached[y] = true
		}
		for _, y := range years {
			if !cached[y] {
				return false
			}
		}
	}
	return true
}

// joinKey identifies one (area, year) pair across tables.
type joinKey struct {
	code string
	year int
}

// Join inner-joins three indicator tables on (area, year) and computes the
// composite index. Complete rows only: an output record exists iff all
// three inputs contain the pair. Dropped pairs are logged since the policy
// silently shrinks coverage. Exported separately from Calculate so
// pre-fetched tables can be joined without a fetcher.
func Join(education, economic, unemployment *model.IndicatorTable) []model.CompositeIndexRecord {
	type partial struct {
		name           string
		education      float64
		economic       float64
		unemployment   float64
		hasEco, hasUne bool
	}

	merged := make(map[joinKey]*partial, len(education.Records))
	for _, r := range education.Records {
		merged[joinKey{r.AreaCode, r.Year}] = &partial{name: r.AreaName, education: r.Value}
	}
	unmatchedOther := 0
	for _, r := range economic.Records {
		p, ok := merged[joinKey{r.AreaCode, r.Year}]
		if !ok {
			unmatchedOther++
			continue
		}
		p.economic = r.Value
		p.hasEco = true
	}
	for _, r := range unemployment.Records {
		p, ok := merged[joinKey{r.AreaCode, r.Year}]
		if !ok {
			unmatchedOther++
			continue
		}
		p.unemployment = r.Value
		p.hasUne = true
	}

	out := make([]model.CompositeIndexRecord, 0, len(merged))
	droppedBase := 0
	for key, p := range merged {
		if !p.hasEco || !p.hasUne {
			droppedBase++
			continue
		}
		out = append(out, model.CompositeIndexRecord{
			AreaCode:               key.code,
			AreaName:               p.name,
			Year:                   key.year,
			EducationPct:           p.education,
			LowEconomicStandardPct: p.economic,
			UnemploymentPct:        p.unemployment,
			Index:                  (p.education + p.economic + p.unemployment) / 3,
		})
	}

	if dropped := droppedBase + unmatchedOther; dropped > 0 {
		metrics.JoinDropped.Add(float64(dropped))
		zap.L().Warn("inner join dropped rows with incomplete indicator coverage",
			zap.Int("dropped", dropped),
			zap.Int("joined", len(out)),
		)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].AreaCode != out[j].AreaCode {
			return out[i].AreaCode < out[j].AreaCode
		}
		return out[i].Year < out[j].Year
	})
	return out
}
