package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tkrnews/newsgather/internal/host"
)

// FileStore writes each session to <dir>/<region>/<session_id>.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "news_data"
	}
	return &FileStore{dir: dir}
}

// Path returns where a session for region with id is written.
func (fs *FileStore) Path(region, id string) string {
	return filepath.Join(fs.dir, slug(region), id+".json")
}

func (fs *FileStore) SaveSession(ctx context.Context, s Session) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	prepare(&s)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := fs.write(fs.Path(s.Region, s.ID), data); err != nil {
		return "", err
	}
	return s.ID, nil
}

// RewritesPath returns where the narrations of session id by hostType go.
func (fs *FileStore) RewritesPath(region, id string, hostType host.Key) string {
	return filepath.Join(fs.dir, slug(region), id+"_"+string(hostType)+".json")
}

func (fs *FileStore) SaveRewrites(ctx context.Context, r Rewrites) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.SessionID == "" {
		return ErrNoSession
	}
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rewrites: %w", err)
	}
	return fs.write(fs.RewritesPath(r.Region, r.SessionID, r.HostType), data)
}

// write replaces path atomically.
func (fs *FileStore) write(path string, data []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (fs *FileStore) Close() error { return nil }
