package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrExtensionNotAllowed is returned when a file's extension is outside the allowed set
var ErrExtensionNotAllowed = errors.New("file extension not allowed")

// FileValidator checks the files the CLI reads and writes and the names of uploads
type FileValidator struct {
	extensions []string
	logger     *slog.Logger
}

// NewFileValidator creates a validator accepting the given extensions (".csv", ".xlsx").
// An empty list accepts any extension.
func NewFileValidator(extensions []string, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}

	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}

	return &FileValidator{
		extensions: normalized,
		logger:     logger,
	}
}

// IsSafeFilename reports whether name is a bare file name without path components
func IsSafeFilename(name string) bool {
	if name == "" || len(name) > 255 {
		return false
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return false
	}
	return !strings.ContainsRune(name, 0)
}

// ValidateUploadName checks the client-supplied name of an uploaded file
func (v *FileValidator) ValidateUploadName(name string) error {
	if !IsSafeFilename(name) {
		return fmt.Errorf("invalid file name %q", name)
	}
	if strings.HasPrefix(name, "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", name)
	}
	return v.checkExtension(name)
}

// ValidateInputFile checks that path is a readable regular file with an allowed extension
func (v *FileValidator) ValidateInputFile(path string) error {
	if err := v.checkExtension(path); err != nil {
		v.logger.Error("Input file has unsupported extension",
			slog.String("file", path))
		return err
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("File is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("File validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputFile checks the extension of path and that its directory is writable
func (v *FileValidator) ValidateOutputFile(path string, extensions ...string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if len(extensions) > 0 && !contains(extensions, ext) {
		return fmt.Errorf("%w: %q (expected %s)", ErrExtensionNotAllowed, ext, strings.Join(extensions, ", "))
	}
	return v.ValidateOutputDirectory(filepath.Dir(path))
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)

	return nil
}

func (v *FileValidator) checkExtension(name string) error {
	if len(v.extensions) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !contains(v.extensions, ext) {
		return fmt.Errorf("%w: %q (accepted: %s)", ErrExtensionNotAllowed, ext, strings.Join(v.extensions, ", "))
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
