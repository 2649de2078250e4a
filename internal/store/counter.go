package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AbdouB/stubkeeper/internal/models"
)

var (
	nextIDLine      = regexp.MustCompile(`Next STUB-ID: STUB-(\d{3,})`)
	lastUpdatedLine = regexp.MustCompile(`Last updated: (\d{4}-\d{2}-\d{2})`)
)

const counterDateLayout = "2006-01-02"

// Counter is the shared sequential id allocator state. It is persisted as two
// lines inside a larger text document:
//
//	Next STUB-ID: STUB-084
//	Last updated: 2026-01-13
//
// A single writer per run is assumed; concurrent runs can allocate the same id.
type Counter struct {
	NextID      int
	LastUpdated time.Time
}

// ParseCounter extracts the counter from document text. ok is false when no
// usable Next STUB-ID line is present.
func ParseCounter(text string) (c Counter, ok bool) {
	m := nextIDLine.FindStringSubmatch(text)
	if m == nil {
		return Counter{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return Counter{}, false
	}
	c.NextID = n

	if m := lastUpdatedLine.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse(counterDateLayout, m[1]); err == nil {
			c.LastUpdated = t
		}
	}
	return c, true
}

// Apply rewrites both counter lines inside text, appending any line that is
// missing. The rest of the document is preserved.
func (c Counter) Apply(text string) string {
	next := "Next STUB-ID: " + models.FormatID(c.NextID)
	updated := "Last updated: " + c.LastUpdated.Format(counterDateLayout)

	text = replaceOrAppend(text, nextIDLine, next)
	text = replaceOrAppend(text, lastUpdatedLine, updated)
	return text
}

func replaceOrAppend(text string, re *regexp.Regexp, line string) string {
	if re.MatchString(text) {
		return re.ReplaceAllLiteralString(text, line)
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return text + line + "\n"
}

// Allocate returns the next id and advances the counter
func (c *Counter) Allocate() string {
	id := models.FormatID(c.NextID)
	c.NextID++
	return id
}

// CounterFile is the document the counter lives in
type CounterFile struct {
	Path      string
	DefaultID int
}

// Read loads the counter. A missing file or missing line yields DefaultID.
func (f CounterFile) Read() (Counter, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Counter{NextID: f.DefaultID}, nil
	}
	if err != nil {
		return Counter{}, fmt.Errorf("failed to read counter: %w", err)
	}

	c, ok := ParseCounter(string(data))
	if !ok {
		return Counter{NextID: f.DefaultID}, nil
	}
	return c, nil
}

// Write stores c, stamping LastUpdated with now. The file is created when it
// does not exist yet.
func (f CounterFile) Write(c Counter, now time.Time) error {
	data, err := os.ReadFile(f.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read counter: %w", err)
	}

	c.LastUpdated = now
	out := c.Apply(string(data))
	if err := os.WriteFile(f.Path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write counter: %w", err)
	}
	return nil
}
