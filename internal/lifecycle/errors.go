package lifecycle

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blackwell-systems/opt/internal/catalog"
)

// Failure kinds. Every error returned by the Controller wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	ErrCatalogUnavailable = catalog.ErrUnavailable
	ErrNotFound           = errors.New("package not found in catalog")
	ErrNotInstalled       = errors.New("package not installed")
	ErrInvalidName        = errors.New("invalid package name")
	ErrStorage            = errors.New("preparing storage root failed")
	ErrTransport          = errors.New("download failed")
	ErrExtract            = errors.New("extraction failed")
	ErrRemove             = errors.New("removing package directory failed")
	ErrPersistence        = errors.New("saving registry failed")
)

// NotFoundError reports a name missing from the catalog, with close matches.
type NotFoundError struct {
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("package '%s' not found in catalog", e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// notInstalled builds the ErrNotInstalled error for name.
func notInstalled(name, hint string) error {
	if hint != "" {
		return fmt.Errorf("package '%s': %w; %s", name, ErrNotInstalled, hint)
	}
	return fmt.Errorf("package '%s': %w", name, ErrNotInstalled)
}

// catalogUnavailable makes sure err wraps ErrCatalogUnavailable.
func catalogUnavailable(err error) error {
	if errors.Is(err, ErrCatalogUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
}

// opError tags err with its failure kind and the transition it broke.
func opError(kind error, action, name string, err error) error {
	return fmt.Errorf("%s '%s': %w: %w", action, name, kind, err)
}

// ValidateName rejects names that cannot be used as a single path component.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
