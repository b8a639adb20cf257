// Package indicator fetches the three socioeconomic indicators from the
// PxWeb API and normalizes each into a per-area, per-year percentage table.
package indicator

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/metrics"
	"github.com/kommundata/deso-cli/internal/model"
	"github.com/kommundata/deso-cli/pkg/pxweb"
)

// Fetcher issues one PxWeb query per indicator and reshapes the response.
// Successful results are written to the injected cache.
type Fetcher struct {
	client  pxweb.Client
	catalog *Catalog
	cache   *Cache
}

// New creates a Fetcher. The cache may be shared with the index calculator.
func New(client pxweb.Client, catalog *Catalog, cache *Cache) *Fetcher {
	return &Fetcher{client: client, catalog: catalog, cache: cache}
}

// Fetch retrieves one indicator for the given years. A query that returns
// zero rows yields an empty table, not an error; transport and schema
// failures are returned as errors and nothing is cached.
func (f *Fetcher) Fetch(ctx context.Context, kind model.IndicatorKind, years []int) (*model.IndicatorTable, error) {
	if !kind.Valid() {
		return nil, eris.Errorf("indicator: unknown kind %q", kind)
	}
	if len(years) == 0 {
		return nil, eris.New("indicator: at least one year is required")
	}

	start := time.Now()
	table, err := f.fetch(ctx, kind, years)
	metrics.FetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchTotal.WithLabelValues(string(kind), "error").Inc()
		return nil, err
	}
	metrics.FetchTotal.WithLabelValues(string(kind), "ok").Inc()

	zap.L().Info("indicator fetched",
		zap.String("indicator", string(kind)),
		zap.Ints("years", years),
		zap.Int("areas", len(table.Records)),
	)

	f.cache.Put(table)
	return table, nil
}

func (f *Fetcher) fetch(ctx context.Context, kind model.IndicatorKind, years []int) (*model.IndicatorTable, error) {
	q, err := f.catalog.Query(kind)
	if err != nil {
		return nil, err
	}

	raw, err := f.client.Data(ctx, q.Table, q.selection(years))
	if err != nil {
		return nil, eris.Wrapf(err, "indicator: fetch %s", kind)
	}

	switch kind {
	case model.IndicatorEducation:
		return reshapeEducation(raw, q.LabelMatch)
	case model.IndicatorEconomic:
		return reshapeEconomic(raw)
	default:
		return reshapeUnemployment(raw)
	}
}

// areaYear keys the grouping maps used while reshaping.
type areaYear struct {
	code string
	year int
}

// reshapeEducation computes the share of the population whose education
// level label matches the filter, per (area, year):
// 100 * sum(matching) / sum(all levels).
func reshapeEducation(t *pxweb.Table, labelMatch string) (*model.IndicatorTable, error) {
	if len(t.MeasureColumns) == 0 {
		return nil, eris.New("indicator: education response has no measure column")
	}
	measure := t.MeasureColumns[0]

	levelCol := dimensionColumn(t)
	if levelCol == "" {
		return nil, eris.New("indicator: education response has no education level column")
	}
	if labelMatch == "" {
		labelMatch = "förgymnasial"
	}
	labelMatch = strings.ToLower(labelMatch)

	type sums struct {
		matched, total float64
		name           string
	}
	groups := make(map[areaYear]*sums)

	for _, row := range t.Rows {
		year, ok := rowYear(row, t.TimeColumn)
		if !ok {
			continue
		}
		v, ok := row.Float(measure)
		if !ok {
			continue
		}
		key := areaYear{code: row.String(pxweb.RegionCodeColumn), year: year}
		g := groups[key]
		if g == nil {
			g = &sums{name: row.String(pxweb.RegionColumn)}
			groups[key] = g
		}
		g.total += v
		if strings.Contains(strings.ToLower(row.String(levelCol)), labelMatch) {
			g.matched += v
		}
	}

	table := &model.IndicatorTable{Kind: model.IndicatorEducation}
	for key, g := range groups {
		if g.total == 0 {
			continue
		}
		table.Records = append(table.Records, model.IndicatorRecord{
			AreaCode: key.code,
			AreaName: g.name,
			Year:     key.year,
			Value:    100 * g.matched / g.total,
		})
	}
	sortRecords(table.Records)
	return table, nil
}

// reshapeEconomic extracts the low-economic-standard share. The measure
// column is matched by name ("andel"/"percentage"), falling back to the
// first measure column. Values observed as fractions (max ≤ 1.0) are
// rescaled to percentages; this is unit inference, not unit declaration,
// and the rescale is logged.
func reshapeEconomic(t *pxweb.Table) (*model.IndicatorTable, error) {
	if len(t.MeasureColumns) == 0 {
		return nil, eris.New("indicator: economic standard response has no measure column")
	}
	measure := t.MeasureContaining("andel")
	if measure == "" {
		measure = t.MeasureContaining("percentage")
	}
	if measure == "" {
		measure = t.MeasureColumns[0]
	}

	type obs struct {
		value float64
		name  string
	}
	groups := make(map[areaYear]obs)
	maxValue := 0.0

	for _, row := range t.Rows {
		year, ok := rowYear(row, t.TimeColumn)
		if !ok {
			continue
		}
		v, ok := row.Float(measure)
		if !ok {
			continue
		}
		groups[areaYear{code: row.String(pxweb.RegionCodeColumn), year: year}] = obs{
			value: v,
			name:  row.String(pxweb.RegionColumn),
		}
		if v > maxValue {
			maxValue = v
		}
	}

	scale := 1.0
	if len(groups) > 0 && maxValue <= 1.0 {
		zap.L().Warn("economic standard values look like fractions, rescaling to percent",
			zap.Float64("observed_max", maxValue),
		)
		scale = 100.0
	}

	table := &model.IndicatorTable{Kind: model.IndicatorEconomic}
	for key, o := range groups {
		table.Records = append(table.Records, model.IndicatorRecord{
			AreaCode: key.code,
			AreaName: o.name,
			Year:     key.year,
			Value:    o.value * scale,
		})
	}
	sortRecords(table.Records)
	return table, nil
}

// reshapeUnemployment computes 100 * unemployed / labor force per
// (area, year), averaging any duplicate rows.
func reshapeUnemployment(t *pxweb.Table) (*model.IndicatorTable, error) {
	laborCol := t.MeasureContaining("arbetskraften")
	if laborCol == "" {
		laborCol = t.MeasureContaining("labour force")
	}
	unempCol := ""
	for _, c := range t.MeasureColumns {
		if c != laborCol && strings.Contains(c, "arbetslosa") {
			unempCol = c
			break
		}
	}
	if (laborCol == "" || unempCol == "") && len(t.MeasureColumns) == 2 {
		// Positional fallback: content codes were requested as
		// (unemployed, labor force).
		unempCol, laborCol = t.MeasureColumns[0], t.MeasureColumns[1]
	}
	if laborCol == "" || unempCol == "" {
		return nil, eris.Errorf("indicator: unemployment response missing expected measures (have %v)", t.MeasureColumns)
	}

	type sums struct {
		rateSum float64
		n       int
		name    string
	}
	groups := make(map[areaYear]*sums)

	for _, row := range t.Rows {
		year, ok := rowYear(row, t.TimeColumn)
		if !ok {
			continue
		}
		unemployed, ok := row.Float(unempCol)
		if !ok {
			continue
		}
		labor, ok := row.Float(laborCol)
		if !ok || labor == 0 {
			continue
		}
		key := areaYear{code: row.String(pxweb.RegionCodeColumn), year: year}
		g := groups[key]
		if g == nil {
			g = &sums{name: row.String(pxweb.RegionColumn)}
			groups[key] = g
		}
		g.rateSum += 100 * unemployed / labor
		g.n++
	}

	table := &model.IndicatorTable{Kind: model.IndicatorUnemployment}
	for key, g := range groups {
		table.Records = append(table.Records, model.IndicatorRecord{
			AreaCode: key.code,
			AreaName: g.name,
			Year:     key.year,
			Value:    g.rateSum / float64(g.n),
		})
	}
	sortRecords(table.Records)
	return table, nil
}

// dimensionColumn returns the first column that is neither a region column,
// the time column, nor a measure. For the education table this is the
// education level, whatever the API language calls it.
func dimensionColumn(t *pxweb.Table) string {
	for _, c := range t.Columns {
		if c == pxweb.RegionCodeColumn || c == pxweb.RegionColumn || c == t.TimeColumn {
			continue
		}
		if isMeasure(t, c) {
			continue
		}
		return c
	}
	return ""
}

func isMeasure(t *pxweb.Table, col string) bool {
	for _, m := range t.MeasureColumns {
		if m == col {
			return true
		}
	}
	return false
}

func rowYear(row pxweb.Row, timeCol string) (int, bool) {
	year, err := strconv.Atoi(row.String(timeCol))
	if err != nil {
		return 0, false
	}
	return year, true
}

func sortRecords(recs []model.IndicatorRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].AreaCode != recs[j].AreaCode {
			return recs[i].AreaCode < recs[j].AreaCode
		}
		return recs[i].Year < recs[j].Year
	})
}
