package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/primelio/cee-service/internal/database"
	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/types"
)

// fetch resolves the run input into file bytes. Uploaded content is used
// as-is; a URL goes through the retrying client under the fetch timeout.
func (imp *Importer) fetch(ctx context.Context, input RunInput) (*types.FetchedFile, error) {
	if input.URL != "" {
		return imp.fetchURL(ctx, input.URL)
	}
	if len(input.Content) == 0 {
		return nil, fmt.Errorf("import needs file content or a URL")
	}
	if imp.options.MaxFileSize > 0 && int64(len(input.Content)) > imp.options.MaxFileSize {
		return nil, fmt.Errorf("file exceeds the size limit (%d bytes)", imp.options.MaxFileSize)
	}

	filename := input.Filename
	if filename == "" {
		filename = "referential"
	}
	return &types.FetchedFile{
		Filename: filename,
		Type:     detectFileType(filename, input.Content),
		Content:  input.Content,
		Hash:     storage.ComputeChecksum(input.Content),
	}, nil
}

func (imp *Importer) fetchURL(ctx context.Context, rawURL string) (*types.FetchedFile, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("unsupported referential URL %q", rawURL)
	}

	fetchCtx := ctx
	if imp.options.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, imp.options.FetchTimeout)
		defer cancel()
	}

	content, err := imp.fetcher.GetBytes(fetchCtx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	if imp.options.MaxFileSize > 0 && int64(len(content)) > imp.options.MaxFileSize {
		return nil, fmt.Errorf("downloaded file exceeds the size limit (%d bytes)", imp.options.MaxFileSize)
	}

	filename := path.Base(parsed.Path)
	if filename == "." || filename == "/" || filename == "" {
		filename = "referential"
	}

	return &types.FetchedFile{
		Source:   rawURL,
		Filename: filename,
		Type:     detectFileType(filename, content),
		Content:  content,
		Hash:     storage.ComputeChecksum(content),
	}, nil
}

// archive stores the raw file and records it, reusing an existing archive
// row when the checksum is already known. Archiving problems are logged
// but never abort the run; the referential rows matter more than the
// audit copy.
func (imp *Importer) archive(ctx context.Context, run *database.ImportRun, fetched *types.FetchedFile) {
	existing, err := database.GetArchiveByChecksum(ctx, fetched.Hash)
	if err != nil {
		imp.logger.Warn().Err(err).Msg("Archive lookup failed")
		return
	}
	if existing != nil {
		if err := database.LinkArchiveToImportRun(ctx, existing.ID, run.ID); err != nil {
			imp.logger.Warn().Err(err).Msg("Failed to link existing archive to run")
			return
		}
		imp.logger.Info().
			Str("archive_id", existing.ID).
			Str("checksum", fetched.Hash).
			Msg("Reusing archived copy with identical checksum")
		return
	}

	now := time.Now()
	key := storage.BuildArchiveKey(now, run.PublicID, fetched.Filename)
	contentType := contentTypeFor(fetched.Type)

	metadata := &storage.Metadata{
		ContentType:  contentType,
		OriginalName: fetched.Filename,
		RunPublicID:  run.PublicID,
		SourceURL:    fetched.Source,
		DownloadedAt: now,
	}
	if err := imp.store.Put(ctx, key, fetched.Content, metadata); err != nil {
		imp.logger.Warn().Err(err).Str("key", key).Msg("Failed to archive referential file")
		return
	}

	size := int64(len(fetched.Content))
	archive := &database.Archive{
		ID:             database.GenerateArchiveID(),
		Filename:       fetched.Filename,
		OriginalFormat: string(fetched.Type),
		ArchivePath:    key,
		ArchiveType:    string(storage.StorageTypeLocal),
		ContentType:    &contentType,
		FileSize:       &size,
		Checksum:       fetched.Hash,
		ImportedAt:     now,
	}
	if fetched.Source != "" {
		archive.SourceURL = &fetched.Source
	}

	if err := database.CreateArchive(ctx, archive); err != nil {
		imp.logger.Warn().Err(err).Msg("Failed to record archive")
		return
	}
	if err := database.LinkArchiveToImportRun(ctx, archive.ID, run.ID); err != nil {
		imp.logger.Warn().Err(err).Msg("Failed to link archive to run")
		return
	}
	imp.logger.Info().
		Str("archive_id", archive.ID).
		Str("key", key).
		Int64("bytes", size).
		Msg("Archived referential file")
}

// detectFileType resolves the parser for a file. The extension wins; a
// file without one is sniffed, telling workbooks apart from plain ZIP
// bundles by their [Content_Types].xml entry.
func detectFileType(filename string, content []byte) types.FileType {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return types.FileTypeCSV
	case ".xlsx":
		return types.FileTypeXLSX
	case ".zip":
		return types.FileTypeZIP
	}

	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		if isWorkbookArchive(content) {
			return types.FileTypeXLSX
		}
		return types.FileTypeZIP
	}
	return types.FileTypeCSV
}

func isWorkbookArchive(content []byte) bool {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return false
	}
	for _, f := range reader.File {
		if f.Name == "[Content_Types].xml" || strings.HasPrefix(f.Name, "xl/") {
			return true
		}
	}
	return false
}

func contentTypeFor(fileType types.FileType) string {
	switch fileType {
	case types.FileTypeCSV:
		return "text/csv"
	case types.FileTypeXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case types.FileTypeZIP:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// guessFilename and guessFileType fill the run record at creation time,
// before the fetch has resolved the real file.
func guessFilename(input RunInput) string {
	if input.Filename != "" {
		return input.Filename
	}
	if input.URL != "" {
		if parsed, err := url.Parse(input.URL); err == nil {
			if base := path.Base(parsed.Path); base != "." && base != "/" {
				return base
			}
		}
	}
	return ""
}

func guessFileType(input RunInput) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(guessFilename(input))), ".")
	switch ext {
	case "csv", "xlsx", "zip":
		return ext
	}
	return ""
}
