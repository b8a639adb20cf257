package indicator

import (
	_ "embed"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kommundata/deso-cli/internal/model"
	"github.com/kommundata/deso-cli/pkg/pxweb"
)

//go:embed tables.yaml
var defaultCatalogYAML []byte

// Query describes how one indicator is fetched: which PxWeb table, which
// content codes, and any fixed dimension filters.
type Query struct {
	Table    string              `yaml:"table"`
	Contents []string            `yaml:"contents"`
	Filters  map[string][]string `yaml:"filters"`
	// LabelMatch is the case-insensitive substring used to filter category
	// labels where the indicator needs it (education level filtering).
	LabelMatch string `yaml:"label_match"`
}

// Catalog maps indicator kinds to their table queries.
type Catalog struct {
	Indicators map[model.IndicatorKind]Query `yaml:"indicators"`
}

// DefaultCatalog returns the embedded table catalog.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog override from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "catalog: parse yaml")
	}
	for _, kind := range model.Kinds {
		q, ok := c.Indicators[kind]
		if !ok {
			return nil, eris.Errorf("catalog: indicator %s missing", kind)
		}
		if q.Table == "" {
			return nil, eris.Errorf("catalog: indicator %s has no table id", kind)
		}
		if len(q.Contents) == 0 {
			return nil, eris.Errorf("catalog: indicator %s has no content codes", kind)
		}
	}
	return &c, nil
}

// Query returns the query definition for an indicator kind.
func (c *Catalog) Query(kind model.IndicatorKind) (Query, error) {
	q, ok := c.Indicators[kind]
	if !ok {
		return Query{}, eris.Errorf("catalog: unknown indicator %s", kind)
	}
	return q, nil
}

// selection builds the PxWeb selection for a query over the given years:
// all regions at DeSO level, the query's fixed filters, and its content codes.
func (q Query) selection(years []int) pxweb.Selection {
	codes := map[string][]string{
		"Region":       {"*"},
		"Tid":          yearStrings(years),
		"ContentsCode": q.Contents,
	}
	for dim, vals := range q.Filters {
		codes[dim] = vals
	}
	return pxweb.Selection{ValueCodes: codes, RegionType: "deso"}
}

func yearStrings(years []int) []string {
	out := make([]string, len(years))
	for i, y := range years {
		out[i] = strconv.Itoa(y)
	}
	return out
}
