// Package zip expands referential ZIP bundles in memory, bounded by size
// and entry caps, keeping only the tabular files an import run can parse.
package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/types"
)

// ExpandOptions bounds a bundle expansion.
type ExpandOptions struct {
	// MaxFileSize caps a single entry in bytes (0 = unlimited).
	MaxFileSize int64
	// MaxTotalSize caps the sum of all extracted entries (0 = unlimited).
	MaxTotalSize int64
	// MaxFiles caps the number of extracted entries (0 = unlimited).
	MaxFiles int
	// AllowedExtensions filters which entries to extract (empty = all).
	AllowedExtensions []string
	// SkipPatterns drops OS litter such as "__MACOSX".
	SkipPatterns []string
}

// DefaultExpandOptions matches the import size limits: 50MB per entry,
// 500MB per bundle, 100 entries, CSV and XLSX only.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		MaxFileSize:       50 * 1024 * 1024,
		MaxTotalSize:      500 * 1024 * 1024,
		MaxFiles:          100,
		AllowedExtensions: []string{".csv", ".xlsx"},
		SkipPatterns: []string{
			"__MACOSX",
			".DS_Store",
			"Thumbs.db",
			"desktop.ini",
		},
	}
}

// Expander extracts referential files from ZIP bundles.
type Expander struct {
	storage storage.Storage
	options ExpandOptions
	logger  zerolog.Logger
}

// NewExpander creates an expander. The store may be nil when expanded
// entries should not be archived.
func NewExpander(store storage.Storage, options ExpandOptions) *Expander {
	return &Expander{
		storage: store,
		options: options,
		logger:  log.With().Str("component", "zip_expander").Logger(),
	}
}

// Expand extracts the bundle in memory and returns the entries that
// survived the filters. Exceeding a cap fails the whole bundle.
func (e *Expander) Expand(ctx context.Context, content []byte, parentFilename string) ([]types.ExpandedFile, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}

	var expanded []types.ExpandedFile
	var totalSize int64
	fileCount := 0

	for _, file := range reader.File {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if file.FileInfo().IsDir() {
			continue
		}

		safeName, err := sanitizeEntryName(file.Name)
		if err != nil {
			e.logger.Warn().Str("entry", file.Name).Msg("Skipping bundle entry with unsafe path")
			continue
		}
		if e.shouldSkip(safeName) || !e.isAllowedExtension(safeName) {
			continue
		}

		fileCount++
		if e.options.MaxFiles > 0 && fileCount > e.options.MaxFiles {
			return nil, fmt.Errorf("bundle has too many entries (limit %d)", e.options.MaxFiles)
		}

		// Declared size check before reading anything.
		if e.options.MaxFileSize > 0 && int64(file.UncompressedSize64) > e.options.MaxFileSize {
			return nil, fmt.Errorf("entry %s exceeds the size limit (%d > %d bytes)",
				safeName, file.UncompressedSize64, e.options.MaxFileSize)
		}

		data, err := e.readEntry(file, safeName)
		if err != nil {
			return nil, err
		}

		totalSize += int64(len(data))
		if e.options.MaxTotalSize > 0 && totalSize > e.options.MaxTotalSize {
			return nil, fmt.Errorf("bundle exceeds the total size limit (%d bytes)", e.options.MaxTotalSize)
		}

		hash := sha256.Sum256(data)
		expanded = append(expanded, types.ExpandedFile{
			Parent:        parentFilename,
			InnerFilename: safeName,
			Type:          detectFileType(safeName),
			Content:       data,
			Hash:          hex.EncodeToString(hash[:]),
		})
	}

	e.logger.Debug().
		Str("bundle", parentFilename).
		Int("entries", len(expanded)).
		Int64("bytes", totalSize).
		Msg("Expanded bundle")

	return expanded, nil
}

// ExpandAndStore expands the bundle and archives each extracted entry
// under the run's expanded/ prefix.
func (e *Expander) ExpandAndStore(ctx context.Context, content []byte, runPublicID string, date time.Time, parentFilename string) ([]types.ExpandedFile, error) {
	expanded, err := e.Expand(ctx, content, parentFilename)
	if err != nil {
		return nil, err
	}
	if e.storage == nil {
		return expanded, nil
	}

	for _, file := range expanded {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		key := storage.BuildExpandedKey(date, runPublicID, parentFilename, file.InnerFilename)
		metadata := &storage.Metadata{
			ContentType:  detectContentType(file.InnerFilename),
			OriginalName: file.InnerFilename,
			RunPublicID:  runPublicID,
			DownloadedAt: time.Now(),
			Custom: map[string]string{
				"parentZip": parentFilename,
			},
		}
		if err := e.storage.Put(ctx, key, file.Content, metadata); err != nil {
			return nil, fmt.Errorf("failed to store expanded entry %s: %w", file.InnerFilename, err)
		}
	}

	return expanded, nil
}

// readEntry reads one entry, refusing anything past MaxFileSize even when
// the header lied about the uncompressed size.
func (e *Expander) readEntry(file *zip.File, name string) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	var reader io.Reader = rc
	if e.options.MaxFileSize > 0 {
		reader = io.LimitReader(rc, e.options.MaxFileSize+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
	}
	if e.options.MaxFileSize > 0 && int64(len(data)) > e.options.MaxFileSize {
		return nil, fmt.Errorf("entry %s exceeds the size limit (%d bytes)", name, e.options.MaxFileSize)
	}
	return data, nil
}

// sanitizeEntryName rejects absolute paths and traversal, then flattens
// the entry to its base name. Stored keys never carry bundle directories.
func sanitizeEntryName(name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute path not allowed: %s", name)
	}
	if len(name) >= 2 && name[1] == ':' {
		return "", fmt.Errorf("drive letter not allowed: %s", name)
	}

	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean(name)
	if strings.HasPrefix(cleaned, "..") || strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("path traversal not allowed: %s", name)
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", fmt.Errorf("path traversal not allowed: %s", name)
		}
	}

	base := path.Base(cleaned)
	if base == "." || base == "/" || base == "" {
		return "", fmt.Errorf("invalid entry name: %s", name)
	}
	return base, nil
}

func (e *Expander) shouldSkip(name string) bool {
	for _, pattern := range e.options.SkipPatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func (e *Expander) isAllowedExtension(name string) bool {
	if len(e.options.AllowedExtensions) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, allowed := range e.options.AllowedExtensions {
		if strings.EqualFold(ext, allowed) {
			return true
		}
	}
	return false
}

func detectFileType(name string) types.FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return types.FileTypeXLSX
	case ".zip":
		return types.FileTypeZIP
	default:
		return types.FileTypeCSV
	}
}

func detectContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}
