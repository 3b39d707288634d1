package artifact

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/geo"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/history"
	"github.com/MuneebMM/Olist-Logistics-Engine/pkg/model"
)

// Bundle holds the three trained artifacts a serving process needs. It is
// built once and shared read-only for the process lifetime.
type Bundle struct {
	Model   *model.Model
	History *history.Table
	Geo     geo.Table
}

// Cache lazily loads the artifact bundle exactly once per process. All
// callers observe either the fully loaded bundle or the load error; there
// is no intermediate state and no refresh path. A restart is the only way
// to pick up newly trained artifacts.
type Cache struct {
	once   sync.Once
	bundle *Bundle
	err    error
	load   func() (*Bundle, error)
}

// NewCache creates a cache that loads the bundle from the given artifact
// paths on first use.
func NewCache(modelPath, historyPath, geoPath string) *Cache {
	return &Cache{load: func() (*Bundle, error) {
		return loadBundle(modelPath, historyPath, geoPath)
	}}
}

// NewCacheWithLoader creates a cache with a custom loader.
func NewCacheWithLoader(load func() (*Bundle, error)) *Cache {
	return &Cache{load: load}
}

// Get returns the bundle, loading it on the first call. Concurrent first
// calls run the loader exactly once.
func (c *Cache) Get() (*Bundle, error) {
	c.once.Do(func() {
		slog.Debug("loading artifact bundle")
		c.bundle, c.err = c.load()
		if c.err != nil {
			c.bundle = nil
			return
		}
		if c.bundle == nil {
			c.err = errors.New("artifact loader returned no bundle")
		}
	})
	return c.bundle, c.err
}

func loadBundle(modelPath, historyPath, geoPath string) (*Bundle, error) {
	b := &Bundle{Model: &model.Model{}, History: &history.Table{}}

	if err := Load(modelPath, b.Model); err != nil {
		return nil, fmt.Errorf("loading model: %w", err)
	}
	if err := Load(historyPath, b.History); err != nil {
		return nil, fmt.Errorf("loading seller history: %w", err)
	}
	if err := Load(geoPath, &b.Geo); err != nil {
		return nil, fmt.Errorf("loading geo table: %w", err)
	}

	if len(b.History.Stats) == 0 {
		return nil, errors.New("seller history artifact is empty")
	}
	if len(b.Geo) == 0 {
		return nil, errors.New("geo table artifact is empty")
	}

	slog.Debug("artifact bundle loaded",
		"sellers", len(b.History.Stats),
		"geo_prefixes", len(b.Geo))

	return b, nil
}
