// Package output provides terminal output utilities for opt.
//
// This package includes:
//   - Table rendering for installed packages, search results, outdated packages and history
//   - Progress bars for archive downloads
//   - Spinners for catalog fetches
//   - Human-readable formatting for sizes and dates
//
// Tables use plain ASCII alignment and ANSI color codes when stdout is a terminal.
package output

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/lifecycle"
	"github.com/blackwell-systems/opt/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

// RenderInstalledTable renders the registry as a name/version table.
func RenderInstalledTable(installed map[string]string) string {
	if len(installed) == 0 {
		return "No packages installed.\n"
	}

	names := make([]string, 0, len(installed))
	for name := range installed {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Installed packages:\n")
	sb.WriteString(fmt.Sprintf("%-24s %s\n", "Package", "Version"))
	sb.WriteString(strings.Repeat("─", 40))
	sb.WriteString("\n")

	for _, name := range names {
		sb.WriteString(fmt.Sprintf("%-24s %s\n", truncate(name, 24), installed[name]))
	}

	return sb.String()
}

// RenderSearchTable renders catalog search results in the order given.
func RenderSearchTable(results []catalog.Listing) string {
	if len(results) == 0 {
		return "No packages found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-12s %s\n", "Package", "Version", "Description"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, r := range results {
		desc := r.Description
		if desc == "" {
			desc = "(No description)"
		}
		sb.WriteString(fmt.Sprintf("%-24s %-12s %s\n",
			truncate(r.Name, 24),
			truncate(r.Version, 12),
			truncate(desc, 42)))
	}

	return sb.String()
}

// RenderInfo renders catalog metadata for a single package.
func RenderInfo(info *lifecycle.Info) string {
	desc := info.Entry.Description
	if desc == "" {
		desc = "(No description)"
	}

	installed := "No"
	if info.Installed {
		installed = fmt.Sprintf("Yes (%s)", info.InstalledVersion)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Package:        %s\n", info.Name))
	sb.WriteString(fmt.Sprintf("Description:    %s\n", desc))
	sb.WriteString(fmt.Sprintf("Latest version: %s\n", info.Entry.Version))
	sb.WriteString(fmt.Sprintf("Download URL:   %s\n", info.Entry.URL))
	sb.WriteString(fmt.Sprintf("Installed:      %s\n", installed))
	return sb.String()
}

// RenderOutdatedTable renders installed packages whose catalog version differs.
func RenderOutdatedTable(outdated []lifecycle.Outdated) string {
	if len(outdated) == 0 {
		return "All installed packages are up to date.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %-12s %-12s %s\n", "Package", "Installed", "Latest", "Change"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, o := range outdated {
		latest := o.Latest
		change := formatDirection(o.Direction)
		if !o.InCatalog {
			latest = "-"
			change = colorize(colorGray, "not in catalog")
		}
		sb.WriteString(fmt.Sprintf("%-24s %-12s %-12s %s\n",
			truncate(o.Name, 24),
			truncate(o.Installed, 12),
			truncate(latest, 12),
			change))
	}

	return sb.String()
}

// RenderHistoryTable renders journal events newest first, as returned by
// the store.
func RenderHistoryTable(events []*store.Event) string {
	if len(events) == 0 {
		return "No history recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-20s %-10s %-20s %s\n",
		"When", "Package", "Action", "Version", "Status"))
	sb.WriteString(strings.Repeat("─", 80))
	sb.WriteString("\n")

	for _, e := range events {
		status := e.Status
		if e.Status == store.StatusFailed {
			status = colorize(colorRed, status)
		}
		sb.WriteString(fmt.Sprintf("%-16s %-20s %-10s %-20s %s\n",
			formatRelativeTime(e.CreatedAt),
			truncate(e.Package, 20),
			e.Action,
			truncate(formatTransition(e.FromVersion, e.ToVersion), 20),
			status))
		if e.Status == store.StatusFailed && e.Message != "" {
			sb.WriteString(fmt.Sprintf("%-16s %s\n", "", truncate(e.Message, 64)))
		}
	}

	return sb.String()
}

// RenderReport renders a doctor report.
func RenderReport(r *lifecycle.Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Installed packages: %d\n", r.Installed))

	for _, name := range r.Missing {
		sb.WriteString(fmt.Sprintf("%s %s is recorded as installed but its directory is missing\n",
			colorize(colorRed, "✗"), name))
	}
	for _, name := range r.Orphaned {
		sb.WriteString(fmt.Sprintf("%s %s has a package directory but is not recorded as installed\n",
			colorize(colorYellow, "⚠"), name))
	}
	if n := len(r.StagingArchives); n > 0 {
		sb.WriteString(fmt.Sprintf("%d staging archive(s) kept in the packages directory\n", n))
	}

	if r.Healthy() {
		sb.WriteString(colorize(colorGreen, "✓") + " Registry and packages directory agree\n")
	}
	return sb.String()
}

// formatDirection returns a display label for a version change.
func formatDirection(d catalog.Direction) string {
	switch d {
	case catalog.DirectionUpgrade:
		return colorize(colorGreen, "↑ upgrade")
	case catalog.DirectionDowngrade:
		return colorize(colorYellow, "↓ downgrade")
	default:
		return "changed"
	}
}

// formatTransition renders a version move as "1.0 -> 1.1".
func formatTransition(from, to string) string {
	switch {
	case from != "" && to != "":
		return from + " -> " + to
	case to != "":
		return to
	default:
		return from
	}
}

// formatSize converts bytes to a human-readable size.
func formatSize(bytes int64) string {
	if bytes < 0 {
		return "?"
	}
	return humanize.Bytes(uint64(bytes))
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if time.Since(t) < time.Minute {
		return "just now"
	}
	return humanize.Time(t)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
