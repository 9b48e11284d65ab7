// Package lifecycle implements the package state machine.
//
// A package is either absent (not in the registry) or installed at a
// version (in the registry). The Controller moves packages between those
// states while keeping the registry and the package directories consistent:
// the registry is only written after the filesystem change it describes has
// succeeded, so a failed download or extraction never records an install.
//
// State is derived on every call. The registry is reloaded and the catalog
// refetched per operation; nothing is cached between calls.
package lifecycle

import (
	"context"
	"os"
	"sync"

	"github.com/blackwell-systems/opt/internal/archive"
	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/config"
	"github.com/blackwell-systems/opt/internal/log"
	"github.com/blackwell-systems/opt/internal/registry"
	"github.com/blackwell-systems/opt/internal/store"
)

// CatalogSource returns the remote catalog.
type CatalogSource interface {
	FetchAll(ctx context.Context) (catalog.Catalog, error)
}

// Transport downloads an archive to a local path.
type Transport interface {
	Download(ctx context.Context, url, dest string, progress archive.ProgressFunc) (int64, error)
}

// Unpacker extracts an archive into a directory.
type Unpacker interface {
	Extract(archivePath, destDir string) error
}

// RegistryStore loads and replaces the installed-package registry.
type RegistryStore interface {
	Load() registry.Registry
	Save(registry.Registry) error
}

// Recorder appends transition events to the history journal.
type Recorder interface {
	InsertEvent(e *store.Event) (int64, error)
}

// Observer is notified while archives move. Calls are serialized by the
// controller, so implementations need no locking of their own. Every
// Downloading call is followed by Failed if the transition does not
// complete.
type Observer interface {
	Downloading(name, from, to string)
	Progress(name string, written, total int64)
	Downloaded(name string, bytes int64)
	Failed(name string, err error)
}

type nopObserver struct{}

func (nopObserver) Downloading(string, string, string) {}
func (nopObserver) Progress(string, int64, int64)      {}
func (nopObserver) Downloaded(string, int64)           {}
func (nopObserver) Failed(string, error)               {}

// Options wires the controller's collaborators. Registry, Catalog,
// Transport and Unpacker are required; the rest are optional.
type Options struct {
	Registry  RegistryStore
	Catalog   CatalogSource
	Transport Transport
	Unpacker  Unpacker
	Recorder  Recorder
	Observer  Observer

	// Jobs bounds how many packages UpdateAll processes at once.
	// Values below 2 keep it strictly sequential.
	Jobs int
}

// Controller drives install, update and uninstall transitions.
type Controller struct {
	layout    config.Layout
	registry  RegistryStore
	catalog   CatalogSource
	transport Transport
	unpacker  Unpacker
	recorder  Recorder
	observer  Observer
	jobs      int

	// commitMu serializes every registry read-modify-write.
	commitMu sync.Mutex

	removeAll func(path string) error
}

// New creates a Controller operating on layout.
func New(layout config.Layout, opts Options) *Controller {
	c := &Controller{
		layout:    layout,
		registry:  opts.Registry,
		catalog:   opts.Catalog,
		transport: opts.Transport,
		unpacker:  opts.Unpacker,
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		jobs:      opts.Jobs,
		removeAll: os.RemoveAll,
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if c.jobs < 1 {
		c.jobs = 1
	}
	if c.jobs > 1 {
		c.observer = &syncObserver{inner: c.observer}
	}
	return c
}

// Layout returns the storage layout the controller manages.
func (c *Controller) Layout() config.Layout {
	return c.layout
}

// fetchCatalog wraps any catalog failure as ErrCatalogUnavailable.
func (c *Controller) fetchCatalog(ctx context.Context) (catalog.Catalog, error) {
	cat, err := c.catalog.FetchAll(ctx)
	if err != nil {
		return nil, catalogUnavailable(err)
	}
	if cat == nil {
		cat = catalog.Catalog{}
	}
	return cat, nil
}

// commit applies mutate to a freshly loaded registry and saves it.
func (c *Controller) commit(mutate func(registry.Registry)) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	reg := c.loadRegistry()
	mutate(reg)
	return c.registry.Save(reg)
}

func (c *Controller) loadRegistry() registry.Registry {
	reg := c.registry.Load()
	if reg == nil {
		reg = registry.Registry{}
	}
	return reg
}

// record appends e to the history journal. Journal failures never change
// the outcome of the transition.
func (c *Controller) record(e *store.Event) {
	if c.recorder == nil {
		return
	}
	if _, err := c.recorder.InsertEvent(e); err != nil {
		log.Warn("failed to record history for %s: %v", e.Package, err)
	}
}

func (c *Controller) recordFailure(action, name, from, to string, err error) {
	c.record(&store.Event{
		Package:     name,
		Action:      action,
		FromVersion: from,
		ToVersion:   to,
		Status:      store.StatusFailed,
		Message:     err.Error(),
	})
}
