package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwell-systems/opt/internal/config"
)

// Report lists the ways the registry and the packages directory disagree.
type Report struct {
	Installed int

	// Missing are registry entries with no package directory.
	Missing []string

	// Orphaned are package directories with no registry entry.
	Orphaned []string

	// StagingArchives are leftover downloaded archives.
	StagingArchives []string
}

// Healthy reports whether the registry and the filesystem agree.
func (r *Report) Healthy() bool {
	return len(r.Missing) == 0 && len(r.Orphaned) == 0
}

// Check compares the registry against the packages directory. It never
// modifies either.
func (c *Controller) Check() (*Report, error) {
	reg := c.loadRegistry()
	report := &Report{
		Installed:       len(reg),
		Missing:         []string{},
		Orphaned:        []string{},
		StagingArchives: []string{},
	}

	dirs := make(map[string]bool)
	entries, err := os.ReadDir(c.layout.PackagesDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read packages directory: %w", err)
	}
	for _, e := range entries {
		switch {
		case e.IsDir():
			dirs[e.Name()] = true
		case strings.HasSuffix(e.Name(), config.StagingExt):
			report.StagingArchives = append(report.StagingArchives, filepath.Join(c.layout.PackagesDir, e.Name()))
		}
	}

	for _, name := range reg.Names() {
		if !dirs[name] {
			report.Missing = append(report.Missing, name)
		}
	}
	for name := range dirs {
		if _, ok := reg[name]; !ok {
			report.Orphaned = append(report.Orphaned, name)
		}
	}

	sort.Strings(report.Orphaned)
	sort.Strings(report.StagingArchives)
	return report, nil
}
