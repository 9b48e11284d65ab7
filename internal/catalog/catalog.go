// Package catalog fetches and queries the remote package catalog.
package catalog

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Entry is one package as advertised by the remote catalog.
type Entry struct {
	Version     string `json:"version"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Catalog maps package name to its catalog entry.
type Catalog map[string]Entry

// Listing pairs a package name with its entry, for ordered output.
type Listing struct {
	Name string
	Entry
}

// Lookup returns the entry for name.
func (c Catalog) Lookup(name string) (Entry, bool) {
	e, ok := c[name]
	return e, ok
}

// Names returns all package names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Search returns the packages whose name or description contains query,
// ignoring case, sorted by name. No matches is an empty slice.
func (c Catalog) Search(query string) []Listing {
	q := strings.ToLower(query)
	results := []Listing{}
	for _, name := range c.Names() {
		e := c[name]
		if strings.Contains(strings.ToLower(name), q) ||
			strings.Contains(strings.ToLower(e.Description), q) {
			results = append(results, Listing{Name: name, Entry: e})
		}
	}
	return results
}

// maxSuggestions caps "did you mean" hints.
const maxSuggestions = 3

// Suggest returns up to three catalog names that fuzzily match name,
// best match first.
func (c Catalog) Suggest(name string) []string {
	if name == "" || len(c) == 0 {
		return nil
	}
	matches := fuzzy.Find(name, c.Names())
	var out []string
	for _, m := range matches {
		if m.Str == name {
			continue
		}
		out = append(out, m.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
