package pxweb

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// dataset mirrors the JSON-stat 2.0 dataset response returned by the PxWeb
// v2 data endpoint.
type dataset struct {
	Class     string               `json:"class"`
	Label     string               `json:"label"`
	ID        []string             `json:"id"`
	Size      []int                `json:"size"`
	Dimension map[string]dimension `json:"dimension"`
	Value     []*float64           `json:"value"`
	Role      roles                `json:"role"`
}

type roles struct {
	Time   []string `json:"time"`
	Geo    []string `json:"geo"`
	Metric []string `json:"metric"`
}

type dimension struct {
	Label    string   `json:"label"`
	Category category `json:"category"`
}

type category struct {
	Index indexMap          `json:"index"`
	Label map[string]string `json:"label"`
}

// indexMap accepts both JSON-stat index encodings: an object mapping code to
// position, or an array of codes in position order.
type indexMap map[string]int

func (m *indexMap) UnmarshalJSON(data []byte) error {
	var obj map[string]int
	if err := json.Unmarshal(data, &obj); err == nil {
		*m = obj
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err != nil {
		return eris.Wrap(err, "pxweb: category index is neither object nor array")
	}
	out := make(map[string]int, len(arr))
	for i, code := range arr {
		out[code] = i
	}
	*m = out
	return nil
}

// codes returns the category codes of d ordered by index position. A missing
// index with a single label entry is treated as one category at position 0.
func (d dimension) codes() []string {
	if len(d.Category.Index) == 0 {
		for code := range d.Category.Label {
			return []string{code}
		}
		return nil
	}
	out := make([]string, len(d.Category.Index))
	for code, pos := range d.Category.Index {
		if pos >= 0 && pos < len(out) {
			out[pos] = code
		}
	}
	return out
}

// ParseDataset decodes a JSON-stat 2.0 dataset and flattens it to a Table.
func ParseDataset(data []byte) (*Table, error) {
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, eris.Wrap(err, "pxweb: decode json-stat dataset")
	}
	return flatten(&ds)
}

// dimInfo carries one dimension's codes and labels through flattening.
type dimInfo struct {
	id     string
	column string
	codes  []string
	labels map[string]string
}

// flatten turns the multi-dimensional value array into one row per
// combination of non-measure dimensions. The contents dimension becomes one
// numeric column per content code; the region dimension becomes the
// region_code and region columns.
func flatten(ds *dataset) (*Table, error) {
	if ds.Class != "dataset" {
		return nil, eris.Errorf("pxweb: unexpected response class %q", ds.Class)
	}
	if len(ds.ID) != len(ds.Size) {
		return nil, eris.Errorf("pxweb: id/size mismatch (%d vs %d)", len(ds.ID), len(ds.Size))
	}

	metricID := roleDim(ds.Role.Metric, ds.ID, "ContentsCode")
	timeID := roleDim(ds.Role.Time, ds.ID, "Tid")
	geoID := roleDim(ds.Role.Geo, ds.ID, "Region")

	// Strides for row-major addressing of the flat value array.
	strides := make([]int, len(ds.Size))
	stride := 1
	for i := len(ds.Size) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= ds.Size[i]
	}

	var (
		geoDim, timeDim, metricDim *dimInfo
		otherDims                  []*dimInfo
		dimPos                     = make(map[string]int, len(ds.ID))
	)
	usedNames := map[string]bool{RegionCodeColumn: true, RegionColumn: true}
	for i, id := range ds.ID {
		dimPos[id] = i
		d, ok := ds.Dimension[id]
		if !ok {
			return nil, eris.Errorf("pxweb: dimension %q missing from response", id)
		}
		info := &dimInfo{id: id, codes: d.codes(), labels: d.Category.Label}
		if len(info.codes) != ds.Size[i] {
			return nil, eris.Errorf("pxweb: dimension %q has %d categories, size says %d", id, len(info.codes), ds.Size[i])
		}
		switch id {
		case geoID:
			geoDim = info
		case timeID:
			info.column = uniqueName(CleanName(d.Label), usedNames)
			timeDim = info
		case metricID:
			metricDim = info
		default:
			info.column = uniqueName(CleanName(d.Label), usedNames)
			otherDims = append(otherDims, info)
		}
	}
	if geoDim == nil {
		return nil, eris.New("pxweb: response has no region dimension")
	}
	if timeDim == nil {
		return nil, eris.New("pxweb: response has no time dimension")
	}
	if metricDim == nil {
		return nil, eris.New("pxweb: response has no contents dimension")
	}

	// Measure columns, one per content code.
	measureCols := make([]string, len(metricDim.codes))
	for i, code := range metricDim.codes {
		label := metricDim.labels[code]
		if label == "" {
			label = code
		}
		measureCols[i] = uniqueName(CleanName(label), usedNames)
	}

	columns := []string{RegionCodeColumn, RegionColumn}
	for _, d := range otherDims {
		columns = append(columns, d.column)
	}
	columns = append(columns, timeDim.column)
	columns = append(columns, measureCols...)

	// Row dimensions in output order: region varies slowest, time fastest.
	rowDims := append([]*dimInfo{geoDim}, otherDims...)
	rowDims = append(rowDims, timeDim)

	total := 1
	for _, d := range rowDims {
		total *= len(d.codes)
	}
	if total == 0 || len(ds.Value) == 0 {
		return &Table{Columns: columns, MeasureColumns: measureCols, TimeColumn: timeDim.column}, nil
	}

	metricStride := strides[dimPos[metricDim.id]]
	counters := make([]int, len(rowDims))
	rows := make([]Row, 0, total)

	for n := 0; n < total; n++ {
		row := make(Row, len(columns))

		base := 0
		for i, d := range rowDims {
			code := d.codes[counters[i]]
			base += strides[dimPos[d.id]] * counters[i]
			if d == geoDim {
				row[RegionCodeColumn] = code
				row[RegionColumn] = d.labels[code]
				continue
			}
			label := d.labels[code]
			if label == "" {
				label = code
			}
			row[d.column] = label
		}

		for mi := range metricDim.codes {
			idx := base + metricStride*mi
			if idx >= len(ds.Value) {
				return nil, eris.Errorf("pxweb: value array too short (%d values, need index %d)", len(ds.Value), idx)
			}
			if v := ds.Value[idx]; v != nil {
				row[measureCols[mi]] = *v
			}
		}

		rows = append(rows, row)

		// Advance odometer, last dimension fastest.
		for i := len(counters) - 1; i >= 0; i-- {
			counters[i]++
			if counters[i] < len(rowDims[i].codes) {
				break
			}
			counters[i] = 0
		}
	}

	return &Table{Columns: columns, MeasureColumns: measureCols, TimeColumn: timeDim.column, Rows: rows}, nil
}

// roleDim resolves a dimension id from the role block, falling back to a
// conventional id when the role is absent.
func roleDim(role []string, ids []string, fallback string) string {
	if len(role) > 0 {
		return role[0]
	}
	for _, id := range ids {
		if id == fallback {
			return id
		}
	}
	return ""
}

// uniqueName disambiguates cleaned column names by suffixing _2, _3, ...
func uniqueName(name string, used map[string]bool) string {
	if name == "" {
		name = "col"
	}
	candidate := name
	for i := 2; used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	used[candidate] = true
	return candidate
}
