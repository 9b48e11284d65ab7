package store

import "time"

// Event actions.
const (
	ActionInstall   = "install"
	ActionUpdate    = "update"
	ActionUninstall = "uninstall"
)

// Event statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Event records one attempted package transition.
type Event struct {
	ID          int64
	Package     string
	Action      string // "install", "update" or "uninstall"
	FromVersion string
	ToVersion   string
	Status      string // "ok" or "failed"
	Message     string
	CreatedAt   time.Time
}
