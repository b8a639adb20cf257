package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/kommundata/deso-cli/internal/classify"
	"github.com/kommundata/deso-cli/internal/geo"
	"github.com/kommundata/deso-cli/internal/index"
	"github.com/kommundata/deso-cli/internal/indicator"
	"github.com/kommundata/deso-cli/internal/store"
	"github.com/kommundata/deso-cli/pkg/pxweb"
)

// env bundles the wired pipeline components a command needs.
type env struct {
	Fetcher    *indicator.Fetcher
	Cache      *indicator.Cache
	Calculator *index.Calculator
	Classifier *classify.Classifier
	Store      store.Store
}

// initEnv wires the SCB client, indicator fetcher, calculator, classifier
// and store from the loaded configuration.
func initEnv(ctx context.Context) (*env, error) {
	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	client := pxweb.NewClient(
		pxweb.WithBaseURL(cfg.PxWeb.BaseURL),
		pxweb.WithLanguage(cfg.PxWeb.Language),
		pxweb.WithHTTPClient(&http.Client{Timeout: cfg.PxWeb.Timeout()}),
		pxweb.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.PxWeb.RatePerSec), 4)),
	)

	cache := indicator.NewCache()
	fetcher := indicator.New(client, catalog, cache)

	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.Pool)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	return &env{
		Fetcher:    fetcher,
		Cache:      cache,
		Calculator: index.NewCalculator(fetcher, cache),
		Classifier: classify.New(geo.Lookup{}),
		Store:      st,
	}, nil
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func loadCatalog() (*indicator.Catalog, error) {
	if cfg.PxWeb.CatalogPath != "" {
		return indicator.LoadCatalog(cfg.PxWeb.CatalogPath)
	}
	return indicator.DefaultCatalog()
}

// classifyOptions builds classification options from config plus any flag
// overrides already applied to cfg.Classify.
func classifyOptions() (classify.Options, error) {
	mode := classify.Mode(cfg.Classify.Mode)
	switch mode {
	case classify.ModeSelf, classify.ModeReference:
	default:
		return classify.Options{}, eris.Errorf("unknown classify mode %q", cfg.Classify.Mode)
	}
	return classify.Options{
		Mode:          mode,
		ReferenceMean: cfg.Classify.ReferenceMean,
		ReferenceStd:  cfg.Classify.ReferenceStd,
		Language:      cfg.Classify.Language,
	}, nil
}

// defaultYears returns the most recent year SCB will usually have
// published all three indicator tables for.
func defaultYears() []int {
	return []int{time.Now().Year() - 2}
}
