// Package storage persists fetch sessions. The pipeline only ever writes;
// nothing reads sessions back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tkrnews/newsgather/internal/host"
	"github.com/tkrnews/newsgather/internal/news"
)

// Session is one persisted fetch result.
type Session struct {
	ID        string               `json:"session_id"`
	Region    string               `json:"region"`
	CreatedAt time.Time            `json:"created_at"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
	Articles  []news.ArticleRecord `json:"articles"`
}

// Rewrites are the narrations of a saved session by one personality.
type Rewrites struct {
	SessionID   string                 `json:"session_id"`
	Region      string                 `json:"region"`
	HostType    host.Key               `json:"host_type"`
	ProcessedAt time.Time              `json:"processed_at"`
	Articles    []host.NarratedArticle `json:"articles"`
}

// Store saves sessions and returns the assigned session ID. SaveRewrites
// attaches narrations to a session saved earlier.
type Store interface {
	SaveSession(ctx context.Context, s Session) (string, error)
	SaveRewrites(ctx context.Context, r Rewrites) error
	Close() error
}

// ErrNoSession is returned by SaveRewrites without a session ID.
var ErrNoSession = errors.New("rewrites need a session id")

type Options struct {
	Dir         string // file backend root
	DatabaseURL string // postgres DSN
	SQLitePath  string
}

// Open returns the store for backend, or nil for "none".
func Open(ctx context.Context, backend string, opts Options) (Store, error) {
	switch backend {
	case "", "none":
		return nil, nil
	case "file":
		return NewFileStore(opts.Dir), nil
	case "postgres", "sqlite":
		dsn := opts.DatabaseURL
		if backend == "sqlite" {
			dsn = opts.SQLitePath
		}
		s, err := OpenSQL(ctx, Dialect(backend), dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// prepare fills ID and CreatedAt when unset.
func prepare(s *Session) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a region name into a directory-safe key: "British Columbia"
// becomes "british_columbia".
func slug(s string) string {
	s = nonSlug.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
