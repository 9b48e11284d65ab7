package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/opt/internal/config"
	"github.com/blackwell-systems/opt/internal/lifecycle"
)

func readRegistry(t *testing.T, root string) map[string]string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, config.RegistryFileName))
	if os.IsNotExist(err) {
		return map[string]string{}
	}
	if err != nil {
		t.Fatalf("reading registry failed: %v", err)
	}
	reg := map[string]string{}
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("registry is not valid JSON: %v", err)
	}
	return reg
}

func TestEndToEnd(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "foo", "1.0", "d")

	out, err := runCLI(t, root, repo, "install", "foo")
	if err != nil {
		t.Fatalf("install failed: %v", err)
	}
	for _, s := range []string{"Downloading foo version 1.0...", "Package 'foo' installed successfully."} {
		if !strings.Contains(out, s) {
			t.Errorf("install output missing %q:\n%s", s, out)
		}
	}
	if reg := readRegistry(t, root); reg["foo"] != "1.0" {
		t.Fatalf("registry = %v, want foo=1.0", reg)
	}
	if _, err := os.Stat(filepath.Join(root, "packages", "foo", "VERSION")); err != nil {
		t.Errorf("package contents not extracted: %v", err)
	}

	out, err = runCLI(t, root, repo, "list")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out, "foo") || !strings.Contains(out, "1.0") {
		t.Errorf("list output:\n%s", out)
	}

	out, err = runCLI(t, root, repo, "version", "foo")
	if err != nil || strings.TrimSpace(out) != "foo: 1.0" {
		t.Errorf("version = %q, %v", out, err)
	}

	out, err = runCLI(t, root, repo, "update", "foo")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "Package 'foo' is already up-to-date (1.0).") {
		t.Errorf("update output:\n%s", out)
	}

	repo.publish(t, "foo", "1.1", "d")
	out, err = runCLI(t, root, repo, "update", "foo")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	for _, s := range []string{"Updating foo from version 1.0 to 1.1...", "Package 'foo' updated from 1.0 to 1.1."} {
		if !strings.Contains(out, s) {
			t.Errorf("update output missing %q:\n%s", s, out)
		}
	}
	if reg := readRegistry(t, root); reg["foo"] != "1.1" {
		t.Fatalf("registry = %v, want foo=1.1", reg)
	}

	out, err = runCLI(t, root, repo, "history", "foo")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "1.0 -> 1.1") || !strings.Contains(out, "install") {
		t.Errorf("history output:\n%s", out)
	}

	out, err = runCLI(t, root, repo, "uninstall", "foo")
	if err != nil {
		t.Fatalf("uninstall failed: %v", err)
	}
	if !strings.Contains(out, "Package 'foo' (version 1.1) uninstalled successfully.") {
		t.Errorf("uninstall output:\n%s", out)
	}
	if reg := readRegistry(t, root); len(reg) != 0 {
		t.Errorf("registry = %v, want empty", reg)
	}
	if _, err := os.Stat(filepath.Join(root, "packages", "foo")); !os.IsNotExist(err) {
		t.Error("package directory should be removed")
	}

	out, err = runCLI(t, root, repo, "list")
	if err != nil || !strings.Contains(out, "No packages installed.") {
		t.Errorf("list after uninstall = %q, %v", out, err)
	}
}

func TestInstallUnknownPackage(t *testing.T) {
	repo := newTestRepo(t)
	repo.publish(t, "ripgrep", "14.1.0", "fast grep")

	_, err := runCLI(t, t.TempDir(), repo, "install", "ripgr")
	if !errors.Is(err, lifecycle.ErrNotFound) {
		t.Fatalf("install error = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "did you mean: ripgrep") {
		t.Errorf("error should suggest ripgrep: %v", err)
	}
}

func TestCatalogUnavailable(t *testing.T) {
	repo := newTestRepo(t)
	repo.setBroken(true)

	for _, args := range [][]string{
		{"install", "foo"},
		{"info", "foo"},
		{"search", "foo"},
	} {
		_, err := runCLI(t, t.TempDir(), repo, args...)
		if !errors.Is(err, lifecycle.ErrCatalogUnavailable) {
			t.Errorf("%v error = %v, want ErrCatalogUnavailable", args, err)
		}
	}
}

// rootEntries lists the names directly under root; a missing root is empty.
func rootEntries(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("reading %s failed: %v", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUninstallNotInstalled(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fresh")
	_, err := runCLI(t, root, nil, "uninstall", "foo")
	if !errors.Is(err, lifecycle.ErrNotInstalled) {
		t.Fatalf("uninstall error = %v, want ErrNotInstalled", err)
	}
	if got := rootEntries(t, root); len(got) != 0 {
		t.Errorf("uninstall of an unknown package created %v", got)
	}
}

func TestUpdateUpToDateLeavesRootAlone(t *testing.T) {
	repo := newTestRepo(t)
	repo.publish(t, "foo", "1.0", "")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.RegistryFileName), []byte(`{"foo":"1.0"}`), 0644); err != nil {
		t.Fatalf("writing registry failed: %v", err)
	}

	out, err := runCLI(t, root, repo, "update", "foo")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "Package 'foo' is already up-to-date (1.0).") {
		t.Errorf("update output:\n%s", out)
	}
	got := rootEntries(t, root)
	if len(got) != 1 || got[0] != config.RegistryFileName {
		t.Errorf("root entries after up-to-date update = %v, want only %s", got, config.RegistryFileName)
	}
}

func TestVersionNotInstalled(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), nil, "version", "foo")
	if !errors.Is(err, lifecycle.ErrNotInstalled) {
		t.Errorf("version error = %v, want ErrNotInstalled", err)
	}
}

func TestUpdateNotInstalled(t *testing.T) {
	repo := newTestRepo(t)
	repo.publish(t, "foo", "1.0", "")

	_, err := runCLI(t, t.TempDir(), repo, "update", "foo")
	if !errors.Is(err, lifecycle.ErrNotInstalled) {
		t.Fatalf("update error = %v, want ErrNotInstalled", err)
	}
	if !strings.Contains(err.Error(), "opt install foo") {
		t.Errorf("error should point at install: %v", err)
	}
}

func TestUpdateAllEmpty(t *testing.T) {
	repo := newTestRepo(t)
	out, err := runCLI(t, t.TempDir(), repo, "update")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !strings.Contains(out, "No packages installed to update.") {
		t.Errorf("update output:\n%s", out)
	}
}

func TestUpdateAllWithJobs(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	names := []string{"a", "b", "c", "d", "e"}
	for _, name := range names {
		repo.publish(t, name, "1.0", "")
		if _, err := runCLI(t, root, repo, "install", name); err != nil {
			t.Fatalf("install %s failed: %v", name, err)
		}
	}
	for _, name := range names[:3] {
		repo.publish(t, name, "2.0", "")
	}

	out, err := runCLI(t, root, repo, "update", "--jobs", "3")
	if err != nil {
		t.Fatalf("update --jobs failed: %v", err)
	}
	if strings.Count(out, "updated from 1.0 to 2.0") != 3 {
		t.Errorf("expected three updates:\n%s", out)
	}
	if strings.Count(out, "already up-to-date") != 2 {
		t.Errorf("expected two up-to-date packages:\n%s", out)
	}

	reg := readRegistry(t, root)
	for _, name := range names[:3] {
		if reg[name] != "2.0" {
			t.Errorf("%s = %s, want 2.0", name, reg[name])
		}
	}
	for _, name := range names[3:] {
		if reg[name] != "1.0" {
			t.Errorf("%s = %s, want 1.0", name, reg[name])
		}
	}
}

func TestUpdateNegativeJobs(t *testing.T) {
	if _, err := runCLI(t, t.TempDir(), nil, "update", "--jobs=-1"); err == nil {
		t.Error("negative --jobs should be rejected")
	}
}

func TestSearch(t *testing.T) {
	repo := newTestRepo(t)
	repo.publish(t, "jq", "1.7", "Command-line JSON processor")
	repo.publish(t, "fd", "9.0.0", "A simple alternative to find")

	out, err := runCLI(t, t.TempDir(), repo, "search", "json")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "jq") || strings.Contains(out, "fd ") {
		t.Errorf("search output:\n%s", out)
	}

	out, err = runCLI(t, t.TempDir(), repo, "search", "no", "such", "thing")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if !strings.Contains(out, "No packages found.") {
		t.Errorf("search output:\n%s", out)
	}
}

func TestInfo(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "jq", "1.7", "")

	out, err := runCLI(t, root, repo, "info", "jq")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, s := range []string{"Package:        jq", "(No description)", "Latest version: 1.7", "Installed:      No"} {
		if !strings.Contains(out, s) {
			t.Errorf("info output missing %q:\n%s", s, out)
		}
	}

	if _, err := runCLI(t, root, repo, "install", "jq"); err != nil {
		t.Fatalf("install failed: %v", err)
	}
	out, err = runCLI(t, root, repo, "info", "jq")
	if err != nil || !strings.Contains(out, "Installed:      Yes (1.7)") {
		t.Errorf("info after install = %q, %v", out, err)
	}
}

func TestOutdated(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "jq", "1.6", "")
	repo.publish(t, "fd", "9.0.0", "")
	for _, name := range []string{"jq", "fd"} {
		if _, err := runCLI(t, root, repo, "install", name); err != nil {
			t.Fatalf("install %s failed: %v", name, err)
		}
	}

	out, err := runCLI(t, root, repo, "outdated")
	if err != nil || !strings.Contains(out, "up to date") {
		t.Errorf("outdated = %q, %v", out, err)
	}

	repo.publish(t, "jq", "1.7", "")
	out, err = runCLI(t, root, repo, "outdated")
	if err != nil {
		t.Fatalf("outdated failed: %v", err)
	}
	if !strings.Contains(out, "jq") || !strings.Contains(out, "upgrade") || strings.Contains(out, "fd ") {
		t.Errorf("outdated output:\n%s", out)
	}
}

func TestHistoryEmpty(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "history")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No history recorded.") {
		t.Errorf("history output:\n%s", out)
	}
}

func TestHistoryRecordsFailures(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "foo", "1.0", "")
	repo.mu.Lock()
	entry := repo.entries["foo"]
	entry.URL = repo.URL + "/archives/missing.zip"
	repo.entries["foo"] = entry
	repo.mu.Unlock()

	if _, err := runCLI(t, root, repo, "install", "foo"); !errors.Is(err, lifecycle.ErrTransport) {
		t.Fatalf("install error = %v, want ErrTransport", err)
	}

	out, err := runCLI(t, root, repo, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "failed") || !strings.Contains(out, "status 404") {
		t.Errorf("history output:\n%s", out)
	}
}

func TestDoctor(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "jq", "1.7", "")
	if _, err := runCLI(t, root, repo, "install", "jq"); err != nil {
		t.Fatalf("install failed: %v", err)
	}

	out, err := runCLI(t, root, repo, "doctor")
	if err != nil {
		t.Fatalf("doctor on a healthy root failed: %v\n%s", err, out)
	}
	for _, s := range []string{"Installed packages: 1", "Catalog reachable (1 packages)", "All checks passed!"} {
		if !strings.Contains(out, s) {
			t.Errorf("doctor output missing %q:\n%s", s, out)
		}
	}

	if err := os.MkdirAll(filepath.Join(root, "packages", "stray"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "packages", "jq")); err != nil {
		t.Fatal(err)
	}

	out, err = runCLI(t, root, repo, "doctor")
	if err == nil {
		t.Fatalf("doctor should fail when registry and disk disagree:\n%s", out)
	}
	for _, s := range []string{"jq is recorded as installed", "stray has a package directory", "last install ok"} {
		if !strings.Contains(out, s) {
			t.Errorf("doctor output missing %q:\n%s", s, out)
		}
	}
	if reg := readRegistry(t, root); reg["jq"] != "1.7" {
		t.Error("doctor must not modify the registry")
	}
}

func TestConfigFileSetsCatalog(t *testing.T) {
	root := t.TempDir()
	repo := newTestRepo(t)
	repo.publish(t, "jq", "1.7", "JSON processor")

	cfg := fmt.Sprintf("catalog_url: %s\ntimeout: 5s\n", repo.catalogURL())
	if err := os.WriteFile(filepath.Join(root, config.ConfigFileName), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, root, nil, "search", "jq")
	if err != nil {
		t.Fatalf("search with config file failed: %v", err)
	}
	if !strings.Contains(out, "JSON processor") {
		t.Errorf("search output:\n%s", out)
	}
}

func TestMalformedConfig(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, config.ConfigFileName), []byte("timeout: [nope"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, root, nil, "list"); err == nil {
		t.Error("malformed config should be an error")
	}
}
