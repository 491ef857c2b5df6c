package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects driver and placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS news_sessions (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL,
		article_count INTEGER NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS news_articles (
		session_id TEXT NOT NULL REFERENCES news_sessions(id),
		position INTEGER NOT NULL,
		wtkr_id TEXT NOT NULL,
		article_id TEXT,
		title TEXT NOT NULL,
		link TEXT NOT NULL,
		original_link TEXT,
		source_name TEXT,
		pub_date TIMESTAMP,
		summary TEXT,
		content TEXT,
		scraped_at TIMESTAMP,
		PRIMARY KEY (session_id, wtkr_id)
	)`,
	`CREATE TABLE IF NOT EXISTS news_rewrites (
		session_id TEXT NOT NULL REFERENCES news_sessions(id),
		wtkr_id TEXT NOT NULL,
		host_type TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		source_name TEXT,
		narration TEXT NOT NULL,
		degraded BOOLEAN NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		PRIMARY KEY (session_id, wtkr_id, host_type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_news_sessions_region ON news_sessions(region)`,
	`CREATE INDEX IF NOT EXISTS idx_news_articles_link ON news_articles(link)`,
}

// SQLStore persists sessions to Postgres or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
}

// OpenSQL connects, pings and creates the schema if needed.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	driver := string(dialect)
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	switch dialect {
	case DialectPostgres:
		builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	case DialectSQLite:
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect, builder: builder}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// SaveSession writes the session row and its articles in one transaction.
func (s *SQLStore) SaveSession(ctx context.Context, sess Session) (string, error) {
	prepare(&sess)

	meta, err := json.Marshal(sess.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query, args, err := s.builder.Insert("news_sessions").
		Columns("id", "region", "article_count", "metadata", "created_at").
		Values(sess.ID, sess.Region, len(sess.Articles), string(meta), sess.CreatedAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build session insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	if len(sess.Articles) > 0 {
		ins := s.builder.Insert("news_articles").Columns(
			"session_id", "position", "wtkr_id", "article_id", "title", "link",
			"original_link", "source_name", "pub_date", "summary", "content", "scraped_at",
		)
		for i, a := range sess.Articles {
			var scraped any
			if a.ScrapedAt != nil {
				scraped = *a.ScrapedAt
			}
			ins = ins.Values(sess.ID, i, a.Fingerprint, a.ID, a.Title, a.CanonicalURL,
				a.ProviderURL, a.SourceName, a.PublishedAt, a.Summary, a.FullText, scraped)
		}
		query, args, err := ins.ToSql()
		if err != nil {
			return "", fmt.Errorf("build article insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("insert articles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return sess.ID, nil
}

// SaveRewrites inserts one row per narrated article. The session must have
// been saved first.
func (s *SQLStore) SaveRewrites(ctx context.Context, r Rewrites) error {
	if r.SessionID == "" {
		return ErrNoSession
	}
	if len(r.Articles) == 0 {
		return nil
	}
	if r.ProcessedAt.IsZero() {
		r.ProcessedAt = time.Now().UTC()
	}

	ins := s.builder.Insert("news_rewrites").Columns(
		"session_id", "wtkr_id", "host_type", "position", "title",
		"source_name", "narration", "degraded", "processed_at",
	)
	for i, a := range r.Articles {
		ins = ins.Values(r.SessionID, a.Fingerprint, string(r.HostType), i, a.Title,
			a.SourceName, a.NarrationText, a.Degraded, r.ProcessedAt)
	}
	query, args, err := ins.ToSql()
	if err != nil {
		return fmt.Errorf("build rewrite insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rewrites: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
