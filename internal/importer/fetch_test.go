package importer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	ceehttp "github.com/primelio/cee-service/internal/http"
	"github.com/primelio/cee-service/internal/http/ratelimit"
	"github.com/primelio/cee-service/internal/storage"
	"github.com/primelio/cee-service/internal/types"
)

func newTestImporter(t *testing.T, options Options) *Importer {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	client := ceehttp.NewClient(ratelimit.Config{
		RequestsPerSecond: 100,
		MaxRetries:        1,
		InitialBackoffMs:  1,
		MaxBackoffMs:      5,
	})
	return New(store, client, nil, nil, options)
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Code", "Type de bâtiment", "kWh cumac"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func bundleBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	entry, err := w.Create("referentiel.csv")
	require.NoError(t, err)
	_, err = entry.Write([]byte("Code;Type de bâtiment;kWh cumac\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDetectFileType(t *testing.T) {
	workbook := workbookBytes(t)
	bundle := bundleBytes(t)

	tests := []struct {
		name     string
		filename string
		content  []byte
		want     types.FileType
	}{
		{"csv extension", "referentiel.csv", nil, types.FileTypeCSV},
		{"txt extension", "export.txt", nil, types.FileTypeCSV},
		{"xlsx extension, any case", "Referentiel.XLSX", nil, types.FileTypeXLSX},
		{"zip extension", "bundle.zip", nil, types.FileTypeZIP},
		{"extensionless workbook", "download", workbook, types.FileTypeXLSX},
		{"extensionless bundle", "download", bundle, types.FileTypeZIP},
		{"extensionless text", "download", []byte("Code;Type de bâtiment\n"), types.FileTypeCSV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectFileType(tt.filename, tt.content))
		})
	}
}

func TestGuessFilenameAndType(t *testing.T) {
	upload := RunInput{Filename: "referentiel.xlsx"}
	assert.Equal(t, "referentiel.xlsx", guessFilename(upload))
	assert.Equal(t, "xlsx", guessFileType(upload))

	fromURL := RunInput{URL: "https://emmy.example.fr/exports/referentiel.zip?v=2"}
	assert.Equal(t, "referentiel.zip", guessFilename(fromURL))
	assert.Equal(t, "zip", guessFileType(fromURL))

	bare := RunInput{URL: "https://emmy.example.fr"}
	assert.Equal(t, "", guessFilename(bare))
	assert.Equal(t, "", guessFileType(bare))

	unknownExt := RunInput{Filename: "referentiel.pdf"}
	assert.Equal(t, "referentiel.pdf", guessFilename(unknownExt))
	assert.Equal(t, "", guessFileType(unknownExt))
}

func TestFetchUpload(t *testing.T) {
	imp := newTestImporter(t, DefaultOptions())

	content := []byte("Code;Type de bâtiment;kWh cumac\nBAT-EQ-127;Bureaux;1000\n")
	fetched, err := imp.fetch(context.Background(), RunInput{Filename: "referentiel.csv", Content: content})
	require.NoError(t, err)

	assert.Equal(t, "referentiel.csv", fetched.Filename)
	assert.Equal(t, types.FileTypeCSV, fetched.Type)
	assert.Equal(t, content, fetched.Content)
	assert.Equal(t, storage.ComputeChecksum(content), fetched.Hash)
	assert.Empty(t, fetched.Source)
}

func TestFetchUploadDefaultsFilename(t *testing.T) {
	imp := newTestImporter(t, DefaultOptions())

	fetched, err := imp.fetch(context.Background(), RunInput{Content: []byte("Nom;Prix\n")})
	require.NoError(t, err)
	assert.Equal(t, "referential", fetched.Filename)
}

func TestFetchRejectsEmptyInput(t *testing.T) {
	imp := newTestImporter(t, DefaultOptions())

	_, err := imp.fetch(context.Background(), RunInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file content or a URL")
}

func TestFetchEnforcesSizeLimit(t *testing.T) {
	options := DefaultOptions()
	options.MaxFileSize = 16
	imp := newTestImporter(t, options)

	_, err := imp.fetch(context.Background(), RunInput{Filename: "big.csv", Content: bytes.Repeat([]byte("a"), 17)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestFetchURL(t *testing.T) {
	body := "Code;Type de bâtiment;kWh cumac\nBAT-EQ-127;Bureaux;1000\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/exports/referentiel.csv", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	defer server.Close()

	imp := newTestImporter(t, DefaultOptions())
	fetched, err := imp.fetch(context.Background(), RunInput{URL: server.URL + "/exports/referentiel.csv"})
	require.NoError(t, err)

	assert.Equal(t, "referentiel.csv", fetched.Filename)
	assert.Equal(t, types.FileTypeCSV, fetched.Type)
	assert.Equal(t, []byte(body), fetched.Content)
	assert.Equal(t, server.URL+"/exports/referentiel.csv", fetched.Source)
	assert.Equal(t, storage.ComputeChecksum([]byte(body)), fetched.Hash)
}

func TestFetchURLRejectsScheme(t *testing.T) {
	imp := newTestImporter(t, DefaultOptions())

	_, err := imp.fetch(context.Background(), RunInput{URL: "ftp://emmy.example.fr/referentiel.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported referential URL")
}

func TestFetchURLEnforcesSizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	}))
	defer server.Close()

	options := DefaultOptions()
	options.MaxFileSize = 32
	imp := newTestImporter(t, options)

	_, err := imp.fetch(context.Background(), RunInput{URL: server.URL + "/referentiel.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestFetchURLServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	imp := newTestImporter(t, DefaultOptions())

	_, err := imp.fetch(context.Background(), RunInput{URL: server.URL + "/missing.csv"})
	require.Error(t, err)
}
