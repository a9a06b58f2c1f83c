// Package importer reads uploaded bank statements into raw sheets and
// manages the import inbox.
package importer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cleared-dev/depositmatch/internal/model"
)

// Reader converts a statement file into a RawSheet. Only the first sheet
// of a workbook is read.
type Reader interface {
	Read(r io.Reader) (model.RawSheet, error)
	Format() string
	Extensions() []string
}

// Registry holds readers by format and by file extension.
type Registry struct {
	readers    map[string]Reader
	extensions map[string]Reader
}

// FileInfo describes a statement file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty reader registry.
func NewRegistry() *Registry {
	return &Registry{
		readers:    make(map[string]Reader),
		extensions: make(map[string]Reader),
	}
}

// Register adds a reader. Panics on duplicate format or extension.
func (r *Registry) Register(rd Reader) {
	key := strings.ToLower(rd.Format())
	if _, ok := r.readers[key]; ok {
		panic("duplicate reader format: " + key)
	}
	r.readers[key] = rd
	for _, ext := range rd.Extensions() {
		ext = strings.ToLower(ext)
		if _, ok := r.extensions[ext]; ok {
			panic("duplicate reader extension: " + ext)
		}
		r.extensions[ext] = rd
	}
}

// Get returns the reader for format, or nil.
func (r *Registry) Get(format string) Reader {
	return r.readers[strings.ToLower(format)]
}

// ForFile returns the reader registered for the file's extension.
func (r *Registry) ForFile(name string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(name))
	rd, ok := r.extensions[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported statement file %q (want one of %s)", name, strings.Join(r.Extensions(), ", "))
	}
	return rd, nil
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.extensions))
	for ext := range r.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// DefaultRegistry returns a registry with all built-in readers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&XLSXReader{})
	r.Register(&CSVReader{})
	return r
}

// ReadFile opens path and reads it with the reader matching its extension.
func (r *Registry) ReadFile(path string) (model.RawSheet, []byte, error) {
	rd, err := r.ForFile(path)
	if err != nil {
		return model.RawSheet{}, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RawSheet{}, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	sheet, err := rd.Read(bytes.NewReader(data))
	if err != nil {
		return model.RawSheet{}, nil, fmt.Errorf("reading %s as %s: %w", filepath.Base(path), rd.Format(), err)
	}
	return sheet, data, nil
}

// processedDir is the subdirectory of the import dir for ingested statements.
const processedDir = "processed"

// Scan returns importable statements in importDir, skipping processed/.
func (r *Registry) Scan(importDir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(importDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := r.extensions[strings.ToLower(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(importDir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from importDir to importDir/processed/.
func MarkProcessed(importDir, fileName string) error {
	src := filepath.Join(importDir, fileName)
	dstDir := filepath.Join(importDir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
