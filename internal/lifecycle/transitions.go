package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/log"
	"github.com/blackwell-systems/opt/internal/registry"
	"github.com/blackwell-systems/opt/internal/store"
)

// Outcome describes what a transition did.
type Outcome string

const (
	OutcomeInstalled   Outcome = "installed"
	OutcomeUpdated     Outcome = "updated"
	OutcomeUpToDate    Outcome = "up-to-date"
	OutcomeUninstalled Outcome = "uninstalled"
)

// Result is the outcome of a single transition.
type Result struct {
	Name        string
	Outcome     Outcome
	FromVersion string
	ToVersion   string

	// Bytes is the archive size downloaded, zero when nothing was fetched.
	Bytes int64

	// Direction classifies FromVersion -> ToVersion for display only.
	Direction catalog.Direction
}

// Install downloads and extracts the catalog's current version of name and
// records it in the registry.
func (c *Controller) Install(ctx context.Context, name string) (*Result, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	cat, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := cat.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name, Suggestions: cat.Suggest(name)}
	}

	from, _ := c.loadRegistry().Version(name)
	res, err := c.apply(ctx, store.ActionInstall, name, from, entry)
	if err != nil {
		return nil, err
	}
	res.Outcome = OutcomeInstalled
	return res, nil
}

// Update moves an installed package to the catalog's current version. A
// package whose installed version string equals the catalog's is left alone.
func (c *Controller) Update(ctx context.Context, name string) (*Result, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	cat, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := cat.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name, Suggestions: cat.Suggest(name)}
	}

	installed, ok := c.loadRegistry()[name]
	if !ok {
		return nil, notInstalled(name, fmt.Sprintf("use 'opt install %s' instead", name))
	}

	if installed == entry.Version {
		return &Result{
			Name:        name,
			Outcome:     OutcomeUpToDate,
			FromVersion: installed,
			ToVersion:   entry.Version,
			Direction:   catalog.DirectionSame,
		}, nil
	}

	res, err := c.apply(ctx, store.ActionUpdate, name, installed, entry)
	if err != nil {
		return nil, err
	}
	res.Outcome = OutcomeUpdated
	return res, nil
}

// UpdateAll runs Update for every installed package. Per-package failures
// are joined into the returned error; results for the packages that
// succeeded are returned regardless.
func (c *Controller) UpdateAll(ctx context.Context) ([]*Result, error) {
	names := c.loadRegistry().Names()
	if len(names) == 0 {
		return nil, nil
	}

	results := make([]*Result, len(names))
	errs := make([]error, len(names))

	if c.jobs <= 1 {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				errs[i] = fmt.Errorf("update '%s': %w", name, err)
				break
			}
			results[i], errs[i] = c.Update(ctx, name)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(c.jobs)
		for i, name := range names {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					errs[i] = fmt.Errorf("update '%s': %w", name, err)
					return nil
				}
				results[i], errs[i] = c.Update(ctx, name)
				return nil
			})
		}
		g.Wait()
	}

	out := make([]*Result, 0, len(names))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, errors.Join(errs...)
}

// Uninstall removes the package directory and then the registry entry. If
// the directory cannot be removed the registry is left as it was.
func (c *Controller) Uninstall(name string) (*Result, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	reg := c.loadRegistry()
	version, ok := reg[name]
	if !ok {
		return nil, notInstalled(name, "")
	}

	dir := c.layout.PackageDir(name)
	if _, err := os.Lstat(dir); err == nil {
		if err := c.removeAll(dir); err != nil {
			err = opError(ErrRemove, store.ActionUninstall, name, err)
			c.recordFailure(store.ActionUninstall, name, version, "", err)
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		err = opError(ErrRemove, store.ActionUninstall, name, err)
		c.recordFailure(store.ActionUninstall, name, version, "", err)
		return nil, err
	} else {
		log.Debug("package directory %s already absent", dir)
	}

	delete(reg, name)
	if err := c.registry.Save(reg); err != nil {
		err = opError(ErrPersistence, store.ActionUninstall, name, err)
		c.recordFailure(store.ActionUninstall, name, version, "", err)
		return nil, err
	}

	c.record(&store.Event{
		Package:     name,
		Action:      store.ActionUninstall,
		FromVersion: version,
		Status:      store.StatusOK,
	})
	return &Result{Name: name, Outcome: OutcomeUninstalled, FromVersion: version}, nil
}

// apply stages, extracts and commits entry for name. The registry is only
// written once the package directory holds the new contents.
func (c *Controller) apply(ctx context.Context, action, name, from string, entry catalog.Entry) (*Result, error) {
	to := entry.Version
	fail := func(kind error, err error) (*Result, error) {
		err = opError(kind, action, name, err)
		c.observer.Failed(name, err)
		c.recordFailure(action, name, from, to, err)
		return nil, err
	}

	c.observer.Downloading(name, from, to)

	if err := c.layout.Ensure(); err != nil {
		return fail(ErrStorage, err)
	}

	staging := c.layout.StagingPath(name)
	n, err := c.transport.Download(ctx, entry.URL, staging, func(written, total int64) {
		c.observer.Progress(name, written, total)
	})
	if err != nil {
		return fail(ErrTransport, err)
	}
	c.observer.Downloaded(name, n)
	log.Debug("staged %s (%d bytes) at %s", name, n, staging)

	dir := c.layout.PackageDir(name)
	if err := c.removeAll(dir); err != nil {
		return fail(ErrExtract, err)
	}
	if err := c.unpacker.Extract(staging, dir); err != nil {
		return fail(ErrExtract, err)
	}

	if err := c.commit(func(reg registry.Registry) {
		reg[name] = to
	}); err != nil {
		return fail(ErrPersistence, err)
	}

	c.record(&store.Event{
		Package:     name,
		Action:      action,
		FromVersion: from,
		ToVersion:   to,
		Status:      store.StatusOK,
	})

	res := &Result{
		Name:        name,
		FromVersion: from,
		ToVersion:   to,
		Bytes:       n,
	}
	if from != "" {
		res.Direction = catalog.Compare(from, to)
	}
	return res, nil
}

// syncObserver serializes calls into an Observer that is not safe for
// concurrent use.
type syncObserver struct {
	mu    sync.Mutex
	inner Observer
}

func (s *syncObserver) Downloading(name, from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Downloading(name, from, to)
}

func (s *syncObserver) Progress(name string, written, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Progress(name, written, total)
}

func (s *syncObserver) Downloaded(name string, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Downloaded(name, bytes)
}

func (s *syncObserver) Failed(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inner.Failed(name, err)
}
