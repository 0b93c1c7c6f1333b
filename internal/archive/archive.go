// Package archive keeps every processed item, grouped by calendar month, so
// monthly analyses can be rebuilt after the fact.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deusflow/curator/internal/article"
)

// ErrMonthMissing reports a month with nothing archived.
var ErrMonthMissing = errors.New("month not archived")

// Archive stores items by month, merged by URL.
type Archive interface {
	// Store merges items into month and returns the month's item count.
	Store(ctx context.Context, month string, items []article.Item) (int, error)
	Load(ctx context.Context, month string) ([]article.Item, error)
	Months(ctx context.Context) ([]string, error)
	Close() error
}

// Month formats t as YYYY-MM in UTC.
func Month(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PreviousMonth is the month before the one containing t.
func PreviousMonth(t time.Time) string {
	t = t.UTC()
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Month(first.AddDate(0, -1, 0))
}

func validMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return fmt.Errorf("invalid month %q, want YYYY-MM", month)
	}
	return nil
}

// Open returns a Postgres archive when databaseURL is set and a file
// archive under dir otherwise.
func Open(ctx context.Context, databaseURL, dir string, opts FileOptions) (Archive, error) {
	if databaseURL != "" {
		return NewPostgres(ctx, databaseURL, opts.Logger)
	}
	if dir == "" {
		return nil, errors.New("archive directory is required")
	}
	return NewFile(dir, opts), nil
}

// Require fails with ErrMonthMissing unless month has been archived.
func Require(ctx context.Context, a Archive, month string) error {
	months, err := a.Months(ctx)
	if err != nil {
		return err
	}
	for _, m := range months {
		if m == month {
			return nil
		}
	}
	return fmt.Errorf("%w: %s, run the pipeline for that month first", ErrMonthMissing, month)
}
