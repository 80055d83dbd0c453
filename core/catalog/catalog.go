// Package catalog holds the bundled domain schemas and loads each one at
// most once per process.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
	"github.com/aurabx/harmony-dsl/core/value"
)

//go:embed schemas/*.toml
var embedded embed.FS

// ErrUnknownDomain is returned for a domain the catalog has no schema for.
var ErrUnknownDomain = errors.New("unknown domain")

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger used to report schema loads.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithOverrideDir reads <domain>.toml from dir instead of the bundled text
// when such a file exists.
func WithOverrideDir(dir string) Option {
	return func(c *Catalog) {
		c.overrideDir = dir
	}
}

// WithLoadHook registers fn to be called once per domain after its schema
// is loaded, with the load error if any.
func WithLoadHook(fn func(domain schema.Domain, err error)) Option {
	return func(c *Catalog) {
		c.hooks = append(c.hooks, fn)
	}
}

// Catalog serves the schema of every domain. Schemas are parsed on first
// use and cached, including a failed load, for the life of the catalog.
type Catalog struct {
	logger      zerolog.Logger
	overrideDir string
	hooks       []func(schema.Domain, error)

	// entries is fixed at construction; each entry guards its own load.
	entries map[schema.Domain]*entry
}

type entry struct {
	once sync.Once
	doc  *schema.Document
	err  error
}

// New creates a catalog over the bundled schemas.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		logger:  zerolog.Nop(),
		entries: make(map[schema.Domain]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, d := range schema.Domains() {
		c.entries[d] = &entry{}
	}
	return c
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog over the bundled schemas.
func Default() *Catalog {
	defaultOnce.Do(func() {
		defaultCatalog = New()
	})
	return defaultCatalog
}

// Domains returns the domains the catalog serves.
func (c *Catalog) Domains() []schema.Domain {
	return schema.Domains()
}

// Text returns the raw schema text for domain.
func (c *Catalog) Text(domain schema.Domain) ([]byte, error) {
	if _, ok := c.entries[domain]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}

	name := string(domain) + ".toml"
	if c.overrideDir != "" {
		path := filepath.Join(c.overrideDir, name)
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			return data, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read schema override %s: %w", path, err)
		}
	}

	data, err := embedded.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("read bundled schema %s: %w", name, err)
	}
	return data, nil
}

// Schema returns the loaded schema for domain. Concurrent first calls
// share a single parse.
func (c *Catalog) Schema(domain schema.Domain) (*schema.Document, error) {
	e, ok := c.entries[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}
	e.once.Do(func() {
		e.doc, e.err = c.load(domain)
		for _, hook := range c.hooks {
			hook(domain, e.err)
		}
	})
	return e.doc, e.err
}

func (c *Catalog) load(domain schema.Domain) (*schema.Document, error) {
	text, err := c.Text(domain)
	if err != nil {
		c.logger.Error().Err(err).Str("domain", string(domain)).Msg("schema text unavailable")
		return nil, err
	}

	doc, err := schema.Load(text, domain)
	if err != nil {
		c.logger.Error().Err(err).Str("domain", string(domain)).Msg("schema failed to load")
		return nil, err
	}

	c.logger.Debug().
		Str("domain", string(domain)).
		Str("version", doc.Version.String()).
		Str("fingerprint", doc.Fingerprint).
		Msg("schema loaded")
	return doc, nil
}

// LoadAll loads every domain schema and returns the first failure. A
// service calls it at startup so that a broken schema aborts the process.
func (c *Catalog) LoadAll() error {
	for _, d := range c.Domains() {
		if _, err := c.Schema(d); err != nil {
			return err
		}
	}
	return nil
}

// Decode parses a configuration document of any domain.
func (c *Catalog) Decode(data []byte) (*value.Node, error) {
	doc, err := value.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Validate decodes data and validates it against the domain schema. The
// error reports an unavailable schema or a document that is not TOML;
// everything else is in the report.
func (c *Catalog) Validate(domain schema.Domain, data []byte, r linker.Resolver) (*validation.Report, error) {
	sch, err := c.Schema(domain)
	if err != nil {
		return nil, err
	}
	doc, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	return validation.Validate(doc, sch, r), nil
}

// Collect decodes a document of domain and returns the names it provides.
// Callers use it to build the registry another domain resolves against,
// e.g. the service types of a gateway config.
func (c *Catalog) Collect(domain schema.Domain, data []byte) (*linker.Registry, error) {
	sch, err := c.Schema(domain)
	if err != nil {
		return nil, err
	}
	doc, err := c.Decode(data)
	if err != nil {
		return nil, err
	}
	return linker.Collect(doc, sch), nil
}
