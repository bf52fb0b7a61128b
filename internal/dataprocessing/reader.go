package dataprocessing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"incomestatement/internal/config"
	"incomestatement/internal/statement"
)

var (
	// ErrUnsupportedFormat is returned for file extensions without a reader
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformedFile is returned when a file cannot be decoded
	ErrMalformedFile = errors.New("malformed file")
)

// Reader converts a byte stream into a raw table
type Reader interface {
	Read(ctx context.Context, r io.Reader) (*statement.Table, error)
}

// ReaderFunc adapts a function to the Reader interface
type ReaderFunc func(ctx context.Context, r io.Reader) (*statement.Table, error)

// Read calls f(ctx, r)
func (f ReaderFunc) Read(ctx context.Context, r io.Reader) (*statement.Table, error) {
	return f(ctx, r)
}

// Registry maps lower-case file extensions to readers
type Registry struct {
	readers map[string]Reader
	logger  *slog.Logger
}

// NewRegistry creates a registry holding the built-in readers for every allowed extension
func NewRegistry(cfg config.UploadConfig, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		readers: make(map[string]Reader),
		logger:  logger.With("component", "ingest"),
	}

	builtin := map[string]Reader{
		".csv":  CSVReader{},
		".xlsx": XLSXReader{Sheet: cfg.SheetName},
	}
	for _, ext := range cfg.AllowedExtensions {
		if reader, ok := builtin[strings.ToLower(ext)]; ok {
			r.Register(ext, reader)
		}
	}
	return r
}

// Register binds a reader to an extension, replacing any previous binding
func (r *Registry) Register(ext string, reader Reader) {
	r.readers[normalizeExt(ext)] = reader
}

// Extensions lists the registered extensions in sorted order
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.readers))
	for ext := range r.readers {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// ReaderFor returns the reader registered for the file name's extension
func (r *Registry) ReaderFor(name string) (Reader, error) {
	ext := normalizeExt(filepath.Ext(name))
	reader, ok := r.readers[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return nil, fmt.Errorf("%w: %s (accepted: %s)", ErrUnsupportedFormat, ext, strings.Join(r.Extensions(), ", "))
	}
	return reader, nil
}

// Load reads src with the reader matching name and tags the table with its source
func (r *Registry) Load(ctx context.Context, name string, src io.Reader) (*statement.Table, error) {
	reader, err := r.ReaderFor(name)
	if err != nil {
		return nil, err
	}

	table, err := reader.Read(ctx, src)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read upload",
			slog.String("file", name),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	table.Source = name
	r.logger.DebugContext(ctx, "upload read",
		slog.String("file", name),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
