package spreadscan

import (
	"github.com/spreadscan/spreadscan/internal/quota"
	"github.com/spreadscan/spreadscan/internal/sources/registry"
	"github.com/spreadscan/spreadscan/pkg/constants"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/match"
	"github.com/spreadscan/spreadscan/pkg/refprice"
)

// Option is a function that configures a Scanner instance.
type Option func(*scanner) error

// scanConfig holds construction-time tunables.
type scanConfig struct {
	taxRate      float64
	quotaPath    string
	matchConfig  match.Config
	chains       map[listings.ItemClass]*refprice.Chain
	registryOpts []registry.Option
}

func defaultScanConfig() *scanConfig {
	return &scanConfig{
		taxRate:     constants.DefaultTaxRate,
		matchConfig: match.DefaultConfig(),
	}
}

// options applies the given options to the scanner.
func (s *scanner) options(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return err
		}
	}
	return nil
}

// WithTaxRate sets the default estimated sales tax rate applied when a
// request does not carry its own.
func WithTaxRate(rate float64) Option {
	return func(s *scanner) error {
		s.config.taxRate = rate
		return nil
	}
}

// WithQuotaGuard installs a pre-built quota guard, replacing the
// default file-backed one.
func WithQuotaGuard(g *quota.Guard) Option {
	return func(s *scanner) error {
		s.guard = g
		return nil
	}
}

// WithQuotaPath sets the path of the quota usage log file.
func WithQuotaPath(path string) Option {
	return func(s *scanner) error {
		s.config.quotaPath = path
		return nil
	}
}

// WithMatchConfig overrides the matching engine's scoring thresholds.
func WithMatchConfig(cfg match.Config) Option {
	return func(s *scanner) error {
		s.config.matchConfig = cfg
		return nil
	}
}

// WithRegistry installs a pre-built source registry (tests).
func WithRegistry(r *registry.Registry) Option {
	return func(s *scanner) error {
		s.registry = r
		return nil
	}
}

// WithRegistryOptions forwards options to the default registry build.
// Ignored when WithRegistry supplies the registry whole.
func WithRegistryOptions(opts ...registry.Option) Option {
	return func(s *scanner) error {
		s.config.registryOpts = append(s.config.registryOpts, opts...)
		return nil
	}
}

// WithChains replaces the per-class reference price chains.
func WithChains(chains map[listings.ItemClass]*refprice.Chain) Option {
	return func(s *scanner) error {
		s.config.chains = chains
		return nil
	}
}
