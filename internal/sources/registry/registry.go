// Package registry assembles source adapters from the embedded source
// catalog and configured credentials.
package registry

import (
	_ "embed"

	"github.com/goccy/go-yaml"

	"github.com/spreadscan/spreadscan/internal/config"
	"github.com/spreadscan/spreadscan/internal/sources"
	"github.com/spreadscan/spreadscan/internal/sources/amazon"
	"github.com/spreadscan/spreadscan/internal/sources/ebay"
	"github.com/spreadscan/spreadscan/internal/sources/facebook"
	"github.com/spreadscan/spreadscan/internal/sources/watchindex"
	"github.com/spreadscan/spreadscan/internal/transport"
	"github.com/spreadscan/spreadscan/pkg/errors"
	"github.com/spreadscan/spreadscan/pkg/listings"
	"github.com/spreadscan/spreadscan/pkg/logging"
)

//go:embed sources.yaml
var sourcesYAML []byte

// indexAPIKeyEnv names the optional paid index API credential. The
// scrape path needs no key, so this is separate from the catalog entry.
const indexAPIKeyEnv = "WATCHINDEX_API_KEY"

type catalogFile struct {
	Sources []sources.Config `yaml:"sources"`
}

// Configs parses the embedded source catalog.
func Configs() ([]sources.Config, error) {
	var file catalogFile
	if err := yaml.Unmarshal(sourcesYAML, &file); err != nil {
		return nil, &errors.ConfigError{
			Component: "sources catalog",
			Message:   "invalid embedded sources.yaml",
			Err:       err,
		}
	}
	return file.Sources, nil
}

// Registry holds the adapters that could be constructed from the
// catalog and available credentials. Adapters whose required key is
// missing are nil and logged, never fatal: a scan runs with whatever
// sources it has.
type Registry struct {
	Ebay          *ebay.Client
	Facebook      *facebook.Client
	Amazon        *amazon.Client
	WatchIndex    *watchindex.Client
	WatchIndexAPI *watchindex.APIClient

	configs map[listings.Source]sources.Config
}

// Option configures registry construction.
type Option func(*settings)

type settings struct {
	notifier transport.Notifier
	baseURLs map[listings.Source]string
}

// WithNotifier wires quota accounting into every metered source's
// transport.
func WithNotifier(n transport.Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// WithBaseURL overrides one source's base URL (tests).
func WithBaseURL(id listings.Source, url string) Option {
	return func(s *settings) { s.baseURLs[id] = url }
}

// New builds the registry from the embedded catalog.
func New(opts ...Option) (*Registry, error) {
	cfgs, err := Configs()
	if err != nil {
		return nil, err
	}

	s := &settings{baseURLs: map[listings.Source]string{}}
	for _, opt := range opts {
		opt(s)
	}

	log := logging.Default()
	r := &Registry{configs: make(map[listings.Source]sources.Config, len(cfgs))}

	for _, cfg := range cfgs {
		r.configs[cfg.ID] = cfg

		key, err := config.APIKey(cfg)
		if err != nil {
			log.Warn().
				Str("source", string(cfg.ID)).
				Str("env", cfg.APIKey).
				Msg("credential missing, source disabled")
			continue
		}

		tc := newTransport(cfg, key, s)
		baseURL := s.baseURLs[cfg.ID]

		switch cfg.ID {
		case listings.SourceEbay:
			r.Ebay = ebay.New(tc, baseURL)
		case listings.SourceFacebook:
			r.Facebook = facebook.New(tc, baseURL, config.GetString("DEFAULT_FB_LOCATION"))
		case listings.SourceAmazon:
			r.Amazon = amazon.New(tc, baseURL)
		case listings.SourceWatchIndex:
			r.WatchIndex = watchindex.New(tc, baseURL)
		default:
			log.Warn().
				Str("source", string(cfg.ID)).
				Msg("no adapter for catalog source")
		}
	}

	// The paid index API is opt-in: constructed only when its key is
	// present.
	if apiKey := config.GetString(indexAPIKeyEnv); apiKey != "" {
		tc := transport.New(listings.SourceWatchIndex,
			&transport.HeaderAuth{Header: "X-Api-Key"}, apiKey,
			transportOptions(sources.Config{Metered: true}, s)...)
		r.WatchIndexAPI = watchindex.NewAPIClient(tc, s.baseURLs["watchindex-api"])
	}

	return r, nil
}

// Searchers returns the constructed marketplace adapters serving the
// item class, in catalog order.
func (r *Registry) Searchers(class listings.ItemClass) []sources.Searcher {
	var all []sources.Searcher
	add := func(s sources.Searcher) {
		cfg, ok := r.configs[s.Source()]
		if ok && !cfg.ServesClass(class) {
			return
		}
		all = append(all, s)
	}
	if r.Ebay != nil {
		add(r.Ebay)
	}
	if r.Facebook != nil {
		add(r.Facebook)
	}
	if r.Amazon != nil {
		add(r.Amazon)
	}
	return all
}

// Config returns the catalog entry for a source.
func (r *Registry) Config(id listings.Source) (sources.Config, bool) {
	cfg, ok := r.configs[id]
	return cfg, ok
}

func newTransport(cfg sources.Config, key string, s *settings) *transport.Client {
	var auth transport.Authenticator
	switch cfg.Auth {
	case "bearer":
		auth = &transport.BearerAuth{}
	case "header":
		auth = &transport.HeaderAuth{Header: cfg.AuthHeader}
	case "query":
		auth = &transport.QueryAuth{Param: cfg.AuthHeader}
	default:
		auth = &transport.NoAuth{}
	}
	return transport.New(cfg.ID, auth, key, transportOptions(cfg, s)...)
}

func transportOptions(cfg sources.Config, s *settings) []transport.Option {
	var opts []transport.Option
	if cfg.Host != "" {
		opts = append(opts, transport.WithHeader("x-rapidapi-host", cfg.Host))
	}
	if cfg.Metered && s.notifier != nil {
		opts = append(opts, transport.WithNotifier(s.notifier))
	}
	return opts
}
