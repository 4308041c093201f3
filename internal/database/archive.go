package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Archive represents a stored copy of an imported referential file
type Archive struct {
	ID             string    `json:"id"`              // arc_{uuid}
	SourceURL      *string   `json:"source_url"`      // Original download URL, nil for uploads
	Filename       string    `json:"filename"`        // Original filename
	OriginalFormat string    `json:"original_format"` // 'csv', 'xlsx', 'zip'
	ArchivePath    string    `json:"archive_path"`    // Storage key/path
	ArchiveType    string    `json:"archive_type"`    // 'local', 's3'
	ContentType    *string   `json:"content_type"`    // MIME type
	FileSize       *int64    `json:"file_size"`       // Size in bytes
	Checksum       string    `json:"checksum"`        // SHA-256 checksum
	ImportedAt     time.Time `json:"imported_at"`     // When the file entered the system
	Metadata       *string   `json:"metadata"`        // JSON metadata
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateArchive creates a new archive record in the database
func CreateArchive(ctx context.Context, archive *Archive) error {
	pool := Pool()

	now := time.Now()
	archive.CreatedAt = now
	archive.UpdatedAt = now

	query := `
		INSERT INTO archives (
			id, source_url, filename, original_format, archive_path,
			archive_type, content_type, file_size, checksum, imported_at,
			metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (id) DO UPDATE SET
			source_url = EXCLUDED.source_url,
			filename = EXCLUDED.filename,
			original_format = EXCLUDED.original_format,
			archive_path = EXCLUDED.archive_path,
			archive_type = EXCLUDED.archive_type,
			content_type = EXCLUDED.content_type,
			file_size = EXCLUDED.file_size,
			checksum = EXCLUDED.checksum,
			imported_at = EXCLUDED.imported_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	_, err := pool.Exec(ctx, query,
		archive.ID, archive.SourceURL, archive.Filename, archive.OriginalFormat,
		archive.ArchivePath, archive.ArchiveType, archive.ContentType,
		archive.FileSize, archive.Checksum, archive.ImportedAt, archive.Metadata,
		archive.CreatedAt, archive.UpdatedAt,
	)

	return err
}

const archiveColumns = `id, source_url, filename, original_format, archive_path,
	archive_type, content_type, file_size, checksum, imported_at,
	metadata, created_at, updated_at`

func scanArchive(row pgx.Row) (*Archive, error) {
	var archive Archive
	err := row.Scan(
		&archive.ID, &archive.SourceURL, &archive.Filename, &archive.OriginalFormat,
		&archive.ArchivePath, &archive.ArchiveType, &archive.ContentType,
		&archive.FileSize, &archive.Checksum, &archive.ImportedAt, &archive.Metadata,
		&archive.CreatedAt, &archive.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &archive, nil
}

// GetArchiveByChecksum looks up an archive by its checksum for deduplication.
// Returns nil when no archive matches.
func GetArchiveByChecksum(ctx context.Context, checksum string) (*Archive, error) {
	pool := Pool()

	query := `SELECT ` + archiveColumns + ` FROM archives WHERE checksum = $1 LIMIT 1`
	archive, err := scanArchive(pool.QueryRow(ctx, query, checksum))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying archive by checksum: %w", err)
	}
	return archive, nil
}

// GetArchiveByID retrieves an archive by its ID
func GetArchiveByID(ctx context.Context, id string) (*Archive, error) {
	pool := Pool()

	query := `SELECT ` + archiveColumns + ` FROM archives WHERE id = $1`
	archive, err := scanArchive(pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying archive: %w", err)
	}
	return archive, nil
}

// ListArchives retrieves archives with pagination, newest first
func ListArchives(ctx context.Context, limit, offset int) ([]Archive, error) {
	pool := Pool()

	query := `
		SELECT ` + archiveColumns + `
		FROM archives
		ORDER BY imported_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error listing archives: %w", err)
	}
	defer rows.Close()

	archives := make([]Archive, 0)
	for rows.Next() {
		archive, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		archives = append(archives, *archive)
	}
	return archives, rows.Err()
}

// CalculateChecksum calculates SHA-256 checksum for data
func CalculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// GenerateArchiveID generates a new archive ID with arc_ prefix
func GenerateArchiveID() string {
	return fmt.Sprintf("arc_%s", uuid.New().String())
}
