// Package importer finds statement files under the transaction directory
// and imports them into the budget and account their location names.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/ofxsync/internal/model"
)

// Parser converts a statement file into RawTransactions.
type Parser interface {
	Parse(r io.Reader) ([]model.RawTransaction, error)
	Format() string
}

// Registry holds parsers keyed by format, which is also the file extension
// they handle.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a statement file found by Scan.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// ForPath returns the parser for the extension of path, or nil.
func (r *Registry) ForPath(path string) Parser {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil
	}
	return r.Get(ext)
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&OFXParser{format: "ofx"})
	r.Register(&OFXParser{format: "qfx"})
	return r
}

// ProcessedDir is the subdirectory of an account directory that holds
// imported files.
const ProcessedDir = "processed"

// Scan returns every file under baseDir that a registered parser handles,
// sorted by path. processed/ directories are skipped.
func (r *Registry) Scan(baseDir string) ([]FileInfo, error) {
	var files []FileInfo
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == baseDir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if path != baseDir && d.Name() == ProcessedDir {
				return fs.SkipDir
			}
			return nil
		}
		if r.ForPath(path) == nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		files = append(files, FileInfo{Name: d.Name(), Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", baseDir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// MarkProcessed moves path into the processed/ directory next to it and
// returns the new location.
func MarkProcessed(path string) (string, error) {
	dstDir := filepath.Join(filepath.Dir(path), ProcessedDir)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, filepath.Base(path))
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("moving %s to processed: %w", filepath.Base(path), err)
	}
	return dst, nil
}
