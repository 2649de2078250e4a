// Package store provides access to the directory-per-record stub store and
// the shared id counter document.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/AbdouB/stubkeeper/internal/models"
)

// ErrNoRecordFile is returned for a directory that has no record document
var ErrNoRecordFile = errors.New("no record file")

// LoadError describes a record that could not be read or decoded. The record
// is left out of the loaded set.
type LoadError struct {
	Name string
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store is a working directory whose immediate subdirectories each hold one
// record document, plus the sibling archive directory with the same shape
type Store struct {
	WorkingDir string
	ArchiveDir string
	RecordFile string
}

// New creates a store
func New(workingDir, archiveDir, recordFile string) *Store {
	return &Store{
		WorkingDir: workingDir,
		ArchiveDir: archiveDir,
		RecordFile: recordFile,
	}
}

// RecordPath returns the record document path for a directory name
func (s *Store) RecordPath(name string) string {
	return filepath.Join(s.WorkingDir, name, s.RecordFile)
}

// Load reads every record in the working directory, sorted by directory
// name. Undecodable records are returned as load errors rather than failing
// the whole load.
func (s *Store) Load() ([]*models.Entry, []*LoadError, error) {
	dirEntries, err := os.ReadDir(s.WorkingDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read working directory: %w", err)
	}

	var entries []*models.Entry
	var loadErrs []*LoadError
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		entry, err := s.Get(de.Name())
		if errors.Is(err, ErrNoRecordFile) {
			continue
		}
		if err != nil {
			loadErrs = append(loadErrs, &LoadError{Name: de.Name(), Path: s.RecordPath(de.Name()), Err: err})
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, loadErrs, nil
}

// Get reads a single record by directory name
func (s *Store) Get(name string) (*models.Entry, error) {
	path := s.RecordPath(name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoRecordFile
	}
	if err != nil {
		return nil, err
	}

	var stub models.Stub
	if err := json.Unmarshal(data, &stub); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return &models.Entry{Name: name, Path: path, Stub: &stub}, nil
}

// Save writes the entry's record document with two-space indentation
func (s *Store) Save(entry *models.Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entry.Stub); err != nil {
		return fmt.Errorf("failed to encode %s: %w", entry.Name, err)
	}

	path := entry.Path
	if path == "" {
		path = s.RecordPath(entry.Name)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Archive moves a record directory wholesale into the archive directory. An
// existing destination with the same name is removed first.
func (s *Store) Archive(name string) error {
	src := filepath.Join(s.WorkingDir, name)
	dst := filepath.Join(s.ArchiveDir, name)

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := os.MkdirAll(s.ArchiveDir, 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("failed to remove existing %s: %w", dst, err)
	}

	if err := os.Rename(src, dst); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if cerr := copyDir(src, dst); cerr != nil {
			return fmt.Errorf("failed to move %s: %w", name, errors.Join(err, cerr))
		}
		if rerr := os.RemoveAll(src); rerr != nil {
			return fmt.Errorf("failed to remove %s after copy: %w", src, rerr)
		}
	}
	return nil
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
