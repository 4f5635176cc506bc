package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// ErrLockHeld is returned when another invocation holds the run lock.
var ErrLockHeld = errors.New("updater lock is held")

// lockInfo is the content of the lock file, enough to detect stale locks.
type lockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// FileStore keeps the run record as a single JSON document on disk.
// Saves go through a temp file and rename so a crash or a concurrent
// reader never sees a half-written record.
type FileStore struct {
	path     string
	lockPath string
	logger   *slog.Logger
	release  func() error
}

// NewFileStore returns a store for the record at path. lockPath may be
// empty, in which case "<path>.lock" is used.
func NewFileStore(path, lockPath string, logger *slog.Logger) *FileStore {
	if lockPath == "" {
		lockPath = path + ".lock"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, lockPath: lockPath, logger: logger}
}

// Acquire takes the run lock, serializing overlapping invocations. A
// lock left behind by a dead process is removed and reacquired once.
func (s *FileStore) Acquire() error {
	info := lockInfo{PID: os.Getpid(), StartedAt: time.Now()}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !os.IsExist(err) {
			return err
		}
		b, readErr := os.ReadFile(s.lockPath)
		if readErr != nil {
			return fmt.Errorf("%w (lock file unreadable)", ErrLockHeld)
		}
		var existing lockInfo
		if json.Unmarshal(b, &existing) != nil || existing.PID <= 0 {
			return fmt.Errorf("%w (lock file unparseable)", ErrLockHeld)
		}
		if processAlive(existing.PID) {
			return fmt.Errorf("%w by pid %d since %s", ErrLockHeld, existing.PID, existing.StartedAt.Format(time.RFC3339))
		}
		s.logger.Warn("removing stale lock", "path", s.lockPath, "pid", existing.PID)
		if removeErr := os.Remove(s.lockPath); removeErr != nil {
			return fmt.Errorf("remove stale lock: %w", removeErr)
		}
		f, err = os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("%w (lost race reacquiring)", ErrLockHeld)
			}
			return err
		}
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(s.lockPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(s.lockPath)
		return err
	}
	s.release = func() error { return os.Remove(s.lockPath) }
	return nil
}

// Load reads the persisted record. A missing, unreadable, or corrupt
// file is reported as the zero record, never an error.
func (s *FileStore) Load() (Record, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("unable to read state file, treating as no prior run", "path", s.path, "error", err)
		}
		return Record{}, nil
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		s.logger.Error("unable to parse state file, treating as no prior run", "path", s.path, "error", err)
		return Record{}, nil
	}
	if !rec.Valid() {
		s.logger.Error("state file violates timestamp ordering, treating as no prior run", "path", s.path)
		return Record{}, nil
	}
	return rec, nil
}

// Save atomically replaces the persisted record.
func (s *FileStore) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Close releases the run lock when held.
func (s *FileStore) Close() error {
	if s.release == nil {
		return nil
	}
	rel := s.release
	s.release = nil
	return rel()
}
