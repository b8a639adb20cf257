// Package classify buckets composite index records into the five official
// area types by banding against the index distribution's mean and standard
// deviation.
package classify

import (
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/metrics"
	"github.com/kommundata/deso-cli/internal/model"
)

// Mode selects where the banding statistics come from.
type Mode string

const (
	// ModeSelf derives mean and standard deviation from each year's own
	// index distribution. This is the default.
	ModeSelf Mode = "self"
	// ModeReference bands every row against caller-supplied statistics,
	// for comparability with an external dataset (e.g. the published RegSO
	// index). The reference values must come from configuration or a
	// separate fetch; there is no built-in default.
	ModeReference Mode = "reference"
)

// NameLookup resolves geographic names from area code prefixes.
type NameLookup interface {
	// Municipality resolves a 4-digit municipality code, "" if unknown.
	Municipality(code string) string
	// County resolves a 2-digit county code, "" if unknown.
	County(code string) string
}

// Options configures one classification pass.
type Options struct {
	Mode Mode
	// ReferenceMean and ReferenceStd are required in ModeReference.
	ReferenceMean float64
	ReferenceStd  float64
	// Language selects the area type description language ("sv" or "en").
	Language string
}

// Classifier assigns area types and enriches records with municipality and
// county names.
type Classifier struct {
	lookup NameLookup
}

// New creates a Classifier using the given name lookup.
func New(lookup NameLookup) *Classifier {
	return &Classifier{lookup: lookup}
}

// Classify buckets every record into an area type. The input is not
// mutated. In self mode statistics are computed per year; a degenerate
// year (fewer than two rows, or zero spread) classifies as mixed since no
// banding is possible.
func (c *Classifier) Classify(records []model.CompositeIndexRecord, opts Options) ([]model.ClassifiedRecord, error) {
	if opts.Mode == "" {
		opts.Mode = ModeSelf
	}
	if opts.Mode == ModeReference && opts.ReferenceStd <= 0 {
		return nil, eris.New("classify: reference mode requires a positive reference standard deviation")
	}
	if opts.Mode != ModeSelf && opts.Mode != ModeReference {
		return nil, eris.Errorf("classify: unknown mode %q", opts.Mode)
	}

	type stats struct{ mean, std float64 }
	statsByYear := make(map[int]stats)

	if opts.Mode == ModeSelf {
		byYear := make(map[int][]float64)
		for _, r := range records {
			byYear[r.Year] = append(byYear[r.Year], r.Index)
		}
		for year, values := range byYear {
			s := stats{mean: mean(values), std: stddev(values)}
			statsByYear[year] = s
			zap.L().Info("classification statistics",
				zap.Int("year", year),
				zap.Int("areas", len(values)),
				zap.Float64("mean", s.mean),
				zap.Float64("std", s.std),
			)
			metrics.ClassifiedAreas.WithLabelValues(strconv.Itoa(year)).Set(float64(len(values)))
		}
	}

	out := make([]model.ClassifiedRecord, 0, len(records))
	for _, r := range records {
		var s stats
		if opts.Mode == ModeReference {
			s = stats{mean: opts.ReferenceMean, std: opts.ReferenceStd}
		} else {
			s = statsByYear[r.Year]
		}

		var tier model.AreaType
		if s.std == 0 {
			tier = model.AreaTypeMixed
		} else {
			tier = areaType(r.Index, s.mean, s.std)
		}

		out = append(out, model.ClassifiedRecord{
			CompositeIndexRecord: r,
			AreaType:             tier,
			AreaTypeDescription:  tier.Description(opts.Language),
			Municipality:         c.municipality(r.AreaCode),
			County:               c.county(r.AreaCode),
		})
	}
	return out, nil
}

// areaType bands an index value against mean and standard deviation.
// Higher index means worse outcome, so type 1 sits above mean + 2std.
func areaType(index, mean, std float64) model.AreaType {
	switch {
	case index >= mean+2*std:
		return model.AreaTypeMajorChallenges
	case index >= mean+std:
		return model.AreaTypeChallenges
	case index >= mean:
		return model.AreaTypeMixed
	case index >= mean-std:
		return model.AreaTypeGood
	default:
		return model.AreaTypeVeryGood
	}
}

func (c *Classifier) municipality(areaCode string) string {
	if len(areaCode) < 4 {
		return ""
	}
	return c.lookup.Municipality(areaCode[:4])
}

func (c *Classifier) county(areaCode string) string {
	if len(areaCode) < 2 {
		return ""
	}
	return c.lookup.County(areaCode[:2])
}
