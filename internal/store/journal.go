package store

import (
	"sync"
)

// Journal opens the history database on the first write, so commands that
// end up changing nothing leave the storage root untouched.
type Journal struct {
	path    string
	prepare func() error

	mu     sync.Mutex
	store  *Store
	err    error
	opened bool
}

// NewJournal returns a Journal for the database at path. prepare, if
// non-nil, runs once before the database is opened (typically to create
// its parent directory).
func NewJournal(path string, prepare func() error) *Journal {
	return &Journal{path: path, prepare: prepare}
}

func (j *Journal) open() (*Store, error) {
	if j.opened {
		return j.store, j.err
	}
	j.opened = true

	if j.prepare != nil {
		if j.err = j.prepare(); j.err != nil {
			return nil, j.err
		}
	}
	j.store, j.err = Open(j.path)
	return j.store, j.err
}

// InsertEvent opens the database if needed and appends e. A failed open is
// remembered and returned by every later call.
func (j *Journal) InsertEvent(e *Event) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	s, err := j.open()
	if err != nil {
		return 0, err
	}
	return s.InsertEvent(e)
}

// Opened reports whether the database has been opened successfully.
func (j *Journal) Opened() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.store != nil
}

// Close closes the database if it was opened.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.store == nil {
		return nil
	}
	err := j.store.Close()
	j.store = nil
	return err
}
