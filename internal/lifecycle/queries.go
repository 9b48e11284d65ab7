package lifecycle

import (
	"context"
	"sort"

	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/registry"
)

// Info is a catalog entry cross-referenced with the registry.
type Info struct {
	Name             string
	Entry            catalog.Entry
	Installed        bool
	InstalledVersion string
}

// Outdated describes an installed package whose catalog version differs
// from the recorded one.
type Outdated struct {
	Name      string
	Installed string
	Latest    string

	// InCatalog is false when the package no longer appears in the catalog.
	InCatalog bool
	Direction catalog.Direction
}

// List returns a copy of the registry.
func (c *Controller) List() registry.Registry {
	return c.loadRegistry().Clone()
}

// InstalledVersion returns the recorded version of name.
func (c *Controller) InstalledVersion(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	v, ok := c.loadRegistry()[name]
	if !ok {
		return "", notInstalled(name, "")
	}
	return v, nil
}

// Info looks name up in the catalog and reports whether it is installed.
func (c *Controller) Info(ctx context.Context, name string) (*Info, error) {
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

	info := &Info{Name: name, Entry: entry}
	if v, ok := c.loadRegistry()[name]; ok {
		info.Installed = true
		info.InstalledVersion = v
	}
	return info, nil
}

// Search returns catalog listings matching query.
func (c *Controller) Search(ctx context.Context, query string) ([]catalog.Listing, error) {
	cat, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Search(query), nil
}

// Outdated lists installed packages whose version differs from the catalog,
// including those the catalog no longer carries.
func (c *Controller) Outdated(ctx context.Context) ([]Outdated, error) {
	reg := c.loadRegistry()
	if len(reg) == 0 {
		return []Outdated{}, nil
	}

	cat, err := c.fetchCatalog(ctx)
	if err != nil {
		return nil, err
	}

	out := []Outdated{}
	for _, name := range reg.Names() {
		installed := reg[name]
		entry, ok := cat.Lookup(name)
		if !ok {
			out = append(out, Outdated{Name: name, Installed: installed})
			continue
		}
		if entry.Version == installed {
			continue
		}
		out = append(out, Outdated{
			Name:      name,
			Installed: installed,
			Latest:    entry.Version,
			InCatalog: true,
			Direction: catalog.Compare(installed, entry.Version),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
