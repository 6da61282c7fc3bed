package source

import (
	"fmt"

	"github.com/zulandar/buildwatch/internal/config"
)

// FromConfig builds the configured source wrapped in a Fallback to the demo
// set. Demo mode needs no fallback and is returned as-is behind one anyway,
// so callers always get batch metadata.
func FromConfig(cfg config.SourceConfig) (*Fallback, error) {
	center := Point{Latitude: cfg.Center.Latitude, Longitude: cfg.Center.Longitude}

	var primary Source
	switch cfg.Mode {
	case config.ModeDemo:
		return NewFallback(Demo{}, nil), nil
	case config.ModeRandom:
		primary = NewRandom(cfg.Seed, cfg.Count, center)
	case config.ModeOpenData:
		od, err := NewOpenData(OpenDataOpts{
			URL:               cfg.URL,
			ResourceID:        cfg.ResourceID,
			Limit:             cfg.Limit,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Center:            center,
			Seed:              cfg.Seed,
		})
		if err != nil {
			return nil, err
		}
		primary = od
	default:
		return nil, fmt.Errorf("source: unknown mode %q", cfg.Mode)
	}
	return NewFallback(primary, Demo{}), nil
}
