package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/deusflow/curator/internal/storage"
)

// Pipeline summarizes a full run.
type Pipeline struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Fetched    int
	Processed  int
	Duplicates int
	Groups     int
	Created    int
	Skipped    int
	Errors     int
}

func (p Pipeline) Markdown() string {
	var b strings.Builder
	b.WriteString("### Pipeline Summary\n\n")
	if p.RunID != "" {
		fmt.Fprintf(&b, "- Run: %s\n", p.RunID)
	}
	if !p.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Started: %s\n", p.StartedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "- Duration: %s\n", p.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "- Articles fetched: %d\n", p.Fetched)
	fmt.Fprintf(&b, "- Articles processed: %d\n", p.Processed)
	fmt.Fprintf(&b, "- Groups considered: %d\n", p.Groups)
	fmt.Fprintf(&b, "- Issues created: %d\n", p.Created)
	fmt.Fprintf(&b, "- Groups already covered: %d\n", p.Skipped)
	fmt.Fprintf(&b, "- Duplicates skipped: %d\n", p.Duplicates)
	fmt.Fprintf(&b, "- Errors: %d\n", p.Errors)
	return b.String()
}

// Write stores the markdown at path.
func (p Pipeline) Write(path string) error {
	return storage.WriteFile(path, []byte(p.Markdown()))
}
