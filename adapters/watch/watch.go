// Package watch re-validates configuration files when they change on disk.
package watch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/aurabx/harmony-dsl/adapters/metrics"
	"github.com/aurabx/harmony-dsl/core/catalog"
	"github.com/aurabx/harmony-dsl/core/linker"
	"github.com/aurabx/harmony-dsl/core/schema"
	"github.com/aurabx/harmony-dsl/core/validation"
)

// DefaultDebounce is how long a file must stay quiet before it is
// re-validated.
const DefaultDebounce = 200 * time.Millisecond

// Target is a watched configuration file.
type Target struct {
	Path   string
	Domain schema.Domain
}

// ReportFunc receives the outcome of a re-validation. err is set when the
// file could not be read or is not TOML; rep is nil then.
type ReportFunc func(path string, rep *validation.Report, err error)

// Options configures a Watcher.
type Options struct {
	Catalog  *catalog.Catalog
	Logger   zerolog.Logger
	Metrics  *metrics.Collector
	Debounce time.Duration

	// Resolver holds static reference names. May be nil.
	Resolver linker.Resolver

	// GatewayPath names a gateway config whose provided names resolve
	// references of the watched files. A change to it re-validates every
	// target.
	GatewayPath string

	OnReport ReportFunc
}

// Watcher re-validates targets on change.
type Watcher struct {
	opts    Options
	targets map[string]Target // by absolute path
	order   []string
	gateway string

	fs   *fsnotify.Watcher
	done chan struct{}

	mu       sync.Mutex
	debounce time.Duration
	timers   map[string]*time.Timer
	stopped  bool
}

// New creates a watcher over targets. Nothing is watched until Start.
func New(opts Options, targets ...Target) (*Watcher, error) {
	if len(targets) == 0 {
		return nil, errors.New("watch: no files given")
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.OnReport == nil {
		opts.OnReport = func(string, *validation.Report, error) {}
	}

	w := &Watcher{
		opts:     opts,
		targets:  make(map[string]Target),
		debounce: opts.Debounce,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}

	for _, t := range targets {
		abs, err := filepath.Abs(t.Path)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", t.Path, err)
		}
		if _, dup := w.targets[abs]; dup {
			continue
		}
		t.Path = abs
		w.targets[abs] = t
		w.order = append(w.order, abs)
	}
	if opts.GatewayPath != "" {
		abs, err := filepath.Abs(opts.GatewayPath)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", opts.GatewayPath, err)
		}
		w.gateway = abs
	}
	return w, nil
}

// SetDebounce changes the quiet period for later events.
func (w *Watcher) SetDebounce(d time.Duration) {
	if d <= 0 {
		d = DefaultDebounce
	}
	w.mu.Lock()
	w.debounce = d
	w.mu.Unlock()
}

// Start begins watching. The directories of the targets are watched
// rather than the files, so that atomic saves are seen.
func (w *Watcher) Start() error {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dirs := make(map[string]bool)
	paths := append([]string{}, w.order...)
	if w.gateway != "" {
		paths = append(paths, w.gateway)
	}
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fs.Add(dir); err != nil {
			fs.Close()
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
	}

	w.fs = fs
	go w.loop()

	w.opts.Logger.Info().Int("files", len(w.order)).Msg("watching configuration files")
	return nil
}

// Stop stops watching and cancels pending re-validations. It blocks until
// the event loop has exited.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	if w.fs != nil {
		w.fs.Close()
		<-w.done
	}
}

// ValidateAll validates every target once, in the order given to New.
func (w *Watcher) ValidateAll() {
	for _, p := range w.order {
		w.validate(w.targets[p])
	}
}

func (w *Watcher) loop() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, watched := w.targets[path]; watched || path == w.gateway {
				w.opts.Logger.Debug().
					Str("event", event.Op.String()).
					Str("file", path).
					Msg("configuration file changed")
				w.schedule(path)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Error().Err(err).Msg("file watcher error")
		}
	}
}

// schedule (re)arms the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	stopped := w.stopped
	w.mu.Unlock()
	if stopped {
		return
	}

	if path == w.gateway {
		w.ValidateAll()
		return
	}
	w.validate(w.targets[path])
}

func (w *Watcher) validate(t Target) {
	rep, err := w.check(t)
	if w.opts.Metrics != nil {
		result := "error"
		if err == nil {
			result = metrics.Result(rep.Valid())
		}
		w.opts.Metrics.WatchRevalidations.WithLabelValues(string(t.Domain), result).Inc()
	}

	ev := w.opts.Logger.Info()
	switch {
	case err != nil:
		ev = w.opts.Logger.Error().Err(err)
	case !rep.Valid():
		ev = w.opts.Logger.Warn().Int("diagnostics", len(rep.Diagnostics))
	}
	ev.Str("file", t.Path).Str("domain", string(t.Domain)).Msg("configuration re-validated")

	w.opts.OnReport(t.Path, rep, err)
}

func (w *Watcher) check(t Target) (*validation.Report, error) {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.Path, err)
	}

	resolvers := []linker.Resolver{w.opts.Resolver}
	if w.gateway != "" && t.Domain != schema.DomainGateway {
		gw, err := os.ReadFile(w.gateway)
		if err != nil {
			return nil, fmt.Errorf("read gateway config: %w", err)
		}
		reg, err := w.opts.Catalog.Collect(schema.DomainGateway, gw)
		if err != nil {
			return nil, fmt.Errorf("gateway config %s: %w", w.gateway, err)
		}
		resolvers = append(resolvers, reg)
	}

	return w.opts.Catalog.Validate(t.Domain, data, linker.Chain(resolvers...))
}
