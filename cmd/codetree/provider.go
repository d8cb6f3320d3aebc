package main

import (
	"context"
	"fmt"

	"github.com/nainya/codetree/internal/config"
	"github.com/nainya/codetree/internal/logger"
	"github.com/nainya/codetree/internal/metrics"
	"github.com/nainya/codetree/pkg/hierarchy"
	"github.com/nainya/codetree/pkg/provider"
)

// openProvider builds the configured provider. Calls are counted when m is
// non-nil, and cached in front of the counting layer when the cache is on.
func openProvider(ctx context.Context, cfg config.ProviderConfig, log *logger.Logger, m *metrics.Metrics) (hierarchy.Provider, func() error, error) {
	var (
		p      hierarchy.Provider
		closer = func() error { return nil }
	)

	plog := log.ProviderLogger(cfg.Kind)

	switch cfg.Kind {
	case config.ProviderMemory:
		mem, err := provider.LoadYAMLFile(cfg.Fixture)
		if err != nil {
			return nil, nil, err
		}
		plog.Info().Str("fixture", cfg.Fixture).Int("codes", len(mem.Codes())).Msg("Loaded fixture")
		p = mem
	case config.ProviderSQL:
		db, err := provider.OpenSQL(ctx, cfg.DSN, *plog.GetZerolog())
		if err != nil {
			return nil, nil, err
		}
		p, closer = db, db.Close
	case config.ProviderHTTP:
		p = provider.NewHTTP(provider.HTTPConfig{
			BaseURL:  cfg.BaseURL,
			RetryMax: cfg.RetryMax,
			Timeout:  cfg.Timeout,
		}, *plog.GetZerolog())
	default:
		return nil, nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}

	if m != nil {
		p = m.InstrumentProvider(p)
	}

	if cfg.CacheSize > 0 {
		cached, err := provider.NewCached(p, cfg.CacheSize)
		if err != nil {
			closer()
			return nil, nil, err
		}
		p = cached
	}

	return p, closer, nil
}
