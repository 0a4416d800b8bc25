package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/payhole/payments/internal/domain/unlock"
	"github.com/payhole/payments/internal/shared/logger"
)

// fileDocument is the on-disk shape of the ledger file.
type fileDocument struct {
	Records []*unlock.UnlockRecord `json:"records"`
}

// FileStore keeps the whole ledger in memory and mirrors it to a single JSON
// file. The file is read on first use and read again whenever another process
// has replaced or rewritten it; every mutation rewrites it in full.
type FileStore struct {
	path   string
	now    func() time.Time
	logger logger.Interface

	mu      sync.RWMutex
	loaded  bool
	stamp   os.FileInfo // file as last read or written; nil when absent
	records map[string]*unlock.UnlockRecord
}

var _ unlock.Ledger = (*FileStore)(nil)

// NewFileStore creates a file-backed ledger. Nothing is read until first use.
func NewFileStore(path string, log logger.Interface, opts ...Option) *FileStore {
	o := applyOptions(opts)
	return &FileStore{
		path:    path,
		now:     o.now,
		logger:  log,
		records: make(map[string]*unlock.UnlockRecord),
	}
}

func (s *FileStore) Upsert(ctx context.Context, wallet, signature string, expiresAt time.Time) (*unlock.UnlockRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return nil, err
	}

	previous := s.records[wallet]
	record := unlock.Apply(previous, wallet, signature, expiresAt, s.now())
	s.records[wallet] = record

	if err := s.persistLocked(); err != nil {
		if previous != nil {
			s.records[wallet] = previous
		} else {
			delete(s.records, wallet)
		}
		return nil, err
	}

	return record.Clone(), nil
}

func (s *FileStore) Get(ctx context.Context, wallet string) (*unlock.UnlockRecord, error) {
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[wallet].Clone(), nil
}

func (s *FileStore) All(ctx context.Context) ([]*unlock.UnlockRecord, error) {
	if err := s.ensureFresh(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*unlock.UnlockRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Clone())
	}
	s.mu.RUnlock()

	unlock.SortByUpdatedDesc(out)
	return out, nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshLocked(); err != nil {
		return err
	}

	previous := s.records
	s.records = make(map[string]*unlock.UnlockRecord)
	if err := s.persistLocked(); err != nil {
		s.records = previous
		return err
	}

	s.logger.Infow("unlock ledger cleared", "path", s.path, "removed", len(previous))
	return nil
}

// ensureFresh makes sure the in-memory copy matches the file before a read.
func (s *FileStore) ensureFresh() error {
	info, statErr := os.Stat(s.path)

	s.mu.RLock()
	current := s.loaded && s.isCurrent(info, statErr)
	s.mu.RUnlock()
	if current {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

// isCurrent reports whether the stat result describes the file this store last
// read or wrote.
func (s *FileStore) isCurrent(info os.FileInfo, statErr error) bool {
	if statErr != nil {
		return errors.Is(statErr, fs.ErrNotExist) && s.stamp == nil
	}
	return s.stamp != nil &&
		os.SameFile(s.stamp, info) &&
		s.stamp.Size() == info.Size() &&
		s.stamp.ModTime().Equal(info.ModTime())
}

// refreshLocked (re)reads the backing file when it changed since the last
// read or write. A missing file is an empty ledger. Once loaded, a file that
// cannot be stat'ed leaves the last known state in place; read and decode
// failures are returned and retried on the next call.
func (s *FileStore) refreshLocked() error {
	info, err := os.Stat(s.path)
	if s.loaded && s.isCurrent(info, err) {
		return nil
	}

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if s.loaded && len(s.records) > 0 {
				s.logger.Warnw("unlock ledger file removed externally", "path", s.path, "dropped", len(s.records))
			}
			s.records = make(map[string]*unlock.UnlockRecord)
			s.stamp = nil
			s.loaded = true
			return nil
		}
		if s.loaded {
			s.logger.Warnw("unlock ledger file unreadable, using last known state", "path", s.path, "error", err)
			return nil
		}
		return fmt.Errorf("failed to stat unlock ledger %s: %w", s.path, err)
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read unlock ledger %s: %w", s.path, err)
	}

	var doc fileDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode unlock ledger %s: %w", s.path, err)
	}

	records := make(map[string]*unlock.UnlockRecord, len(doc.Records))
	for _, r := range doc.Records {
		if r == nil || r.Wallet == "" {
			continue
		}
		records[r.Wallet] = r
	}

	reloaded := s.loaded
	s.records = records
	s.stamp = info
	s.loaded = true
	s.logger.Debugw("unlock ledger loaded", "path", s.path, "records", len(records), "reload", reloaded)
	return nil
}

// persistLocked writes the full ledger to a temp file next to the target and
// renames it into place, so a crash never leaves a truncated ledger behind.
func (s *FileStore) persistLocked() error {
	doc := fileDocument{Records: make([]*unlock.UnlockRecord, 0, len(s.records))}
	for _, r := range s.records {
		doc.Records = append(doc.Records, r)
	}
	unlock.SortByUpdatedDesc(doc.Records)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode unlock ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write unlock ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync unlock ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close unlock ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace unlock ledger: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		// written but unidentified; the next access re-reads it
		s.stamp = nil
		s.loaded = false
		return nil
	}
	s.stamp = info
	return nil
}
