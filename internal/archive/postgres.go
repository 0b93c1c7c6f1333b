package archive

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/deusflow/curator/internal/article"
)

// Postgres is an Archive in a single table keyed by URL.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Archive = (*Postgres)(nil)

func NewPostgres(ctx context.Context, connectionString string, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	p := &Postgres{db: db, logger: logger.With("component", "archive", "backend", "postgres")}
	if err := p.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	p.logger.Info("postgres archive connected")
	return p, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS archived_articles (
	url TEXT PRIMARY KEY,
	month CHAR(7) NOT NULL,
	title TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	raw_text TEXT NOT NULL DEFAULT '',
	published_date TEXT NOT NULL DEFAULT '',
	category VARCHAR(50) NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	archived_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_archived_articles_month ON archived_articles(month);
`

func (p *Postgres) initSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const upsertArticle = `
INSERT INTO archived_articles
	(url, month, title, source, raw_text, published_date, category, summary, confidence_score)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (url) DO UPDATE SET
	month = EXCLUDED.month,
	title = EXCLUDED.title,
	source = EXCLUDED.source,
	raw_text = EXCLUDED.raw_text,
	published_date = EXCLUDED.published_date,
	category = EXCLUDED.category,
	summary = EXCLUDED.summary,
	confidence_score = EXCLUDED.confidence_score`

func (p *Postgres) Store(ctx context.Context, month string, items []article.Item) (int, error) {
	if err := validMonth(month); err != nil {
		return 0, err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertArticle)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, it := range items {
		if it.URL == "" {
			continue
		}
		cat, _ := it.Category.MarshalText()
		if _, err := stmt.ExecContext(ctx, it.URL, month, it.Title, it.Source, it.RawText,
			it.PublishedDate, string(cat), it.Summary, it.Confidence); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", it.URL, err)
		}
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM archived_articles WHERE month = $1`, month).Scan(&count); err != nil {
		return 0, fmt.Errorf("count month: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	p.logger.Info("stored articles", "month", month, "count", count)
	return count, nil
}

func (p *Postgres) Load(ctx context.Context, month string) ([]article.Item, error) {
	if err := validMonth(month); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT url, title, source, raw_text, published_date, category, summary, confidence_score
		FROM archived_articles
		WHERE month = $1
		ORDER BY archived_at, url`, month)
	if err != nil {
		return nil, fmt.Errorf("query month: %w", err)
	}
	defer rows.Close()

	var items []article.Item
	for rows.Next() {
		var it article.Item
		var cat string
		if err := rows.Scan(&it.URL, &it.Title, &it.Source, &it.RawText, &it.PublishedDate,
			&cat, &it.Summary, &it.Confidence); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		it.Category = article.ParseCategory(cat)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *Postgres) Months(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT month FROM archived_articles ORDER BY month`)
	if err != nil {
		return nil, fmt.Errorf("query months: %w", err)
	}
	defer rows.Close()

	var months []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func (p *Postgres) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
