package catalog

import semver "github.com/Masterminds/semver/v3"

// Direction describes how a catalog version relates to an installed one.
// It is informational only: whether to update is decided by plain string
// inequality, never by Direction.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionSame
	DirectionUpgrade
	DirectionDowngrade
)

// String returns the display label for d.
func (d Direction) String() string {
	switch d {
	case DirectionSame:
		return "same"
	case DirectionUpgrade:
		return "upgrade"
	case DirectionDowngrade:
		return "downgrade"
	default:
		return "changed"
	}
}

// Compare classifies latest relative to installed. Identical strings are
// DirectionSame; versions that do not both parse as semver are
// DirectionUnknown.
func Compare(installed, latest string) Direction {
	if installed == latest {
		return DirectionSame
	}
	iv, err := semver.NewVersion(installed)
	if err != nil {
		return DirectionUnknown
	}
	lv, err := semver.NewVersion(latest)
	if err != nil {
		return DirectionUnknown
	}
	switch lv.Compare(iv) {
	case 1:
		return DirectionUpgrade
	case -1:
		return DirectionDowngrade
	default:
		// "1.0" vs "1.0.0": equal as semver but different strings.
		return DirectionUnknown
	}
}
