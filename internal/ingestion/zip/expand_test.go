package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primelio/cee-service/internal/storage"
)

func buildBundle(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExpandBundle(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"coefficients.csv":    []byte("Code;Type batiment;kWh cumac\nBAT-EQ-127;Bureaux;1000\n"),
		"delegataires.xlsx":   []byte("not a real workbook, content is opaque here"),
		"__MACOSX/._junk.csv": []byte("resource fork"),
		"notes.txt":           []byte("readme"),
		"sub/dir/":            nil,
	})

	expander := NewExpander(nil, DefaultExpandOptions())
	files, err := expander.Expand(context.Background(), bundle, "referentiel.zip")
	require.NoError(t, err)
	require.Len(t, files, 2)

	byName := map[string]int{}
	for i, f := range files {
		byName[f.InnerFilename] = i
		assert.Equal(t, "referentiel.zip", f.Parent)
		assert.NotEmpty(t, f.Hash)
		assert.NotEmpty(t, f.Content)
	}
	require.Contains(t, byName, "coefficients.csv")
	require.Contains(t, byName, "delegataires.xlsx")
	assert.Equal(t, "csv", string(files[byName["coefficients.csv"]].Type))
	assert.Equal(t, "xlsx", string(files[byName["delegataires.xlsx"]].Type))
}

func TestExpandFlattensNestedPaths(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"export/2025/coefficients.csv": []byte("Code;Type batiment;kWh cumac\n"),
	})

	expander := NewExpander(nil, DefaultExpandOptions())
	files, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "coefficients.csv", files[0].InnerFilename)
}

func TestExpandSkipsTraversalEntries(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"../escape.csv": []byte("Code;Type batiment;kWh cumac\n"),
		"data.csv":      []byte("Code;Type batiment;kWh cumac\n"),
	})

	expander := NewExpander(nil, DefaultExpandOptions())
	files, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "data.csv", files[0].InnerFilename)
}

func TestExpandEntryCap(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"a.csv": []byte("x"),
		"b.csv": []byte("y"),
	})

	options := DefaultExpandOptions()
	options.MaxFiles = 1
	expander := NewExpander(nil, options)

	_, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many entries")
}

func TestExpandSizeCap(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"big.csv": bytes.Repeat([]byte("x"), 2048),
	})

	options := DefaultExpandOptions()
	options.MaxFileSize = 1024
	expander := NewExpander(nil, options)

	_, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size limit")
}

func TestExpandTotalSizeCap(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"a.csv": bytes.Repeat([]byte("x"), 600),
		"b.csv": bytes.Repeat([]byte("y"), 600),
	})

	options := DefaultExpandOptions()
	options.MaxTotalSize = 1000
	expander := NewExpander(nil, options)

	_, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total size limit")
}

func TestExpandOnlySkippedEntries(t *testing.T) {
	bundle := buildBundle(t, map[string][]byte{
		"readme.md":  []byte("doc"),
		".DS_Store":  []byte("junk"),
		"layout.xml": []byte("<x/>"),
	})

	expander := NewExpander(nil, DefaultExpandOptions())
	files, err := expander.Expand(context.Background(), bundle, "bundle.zip")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExpandRejectsCorruptBundle(t *testing.T) {
	expander := NewExpander(nil, DefaultExpandOptions())
	_, err := expander.Expand(context.Background(), []byte("definitely not a zip"), "bad.zip")
	require.Error(t, err)
}

func TestExpandAndStore(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	bundle := buildBundle(t, map[string][]byte{
		"coefficients.csv": []byte("Code;Type batiment;kWh cumac\nBAT-EQ-127;Bureaux;1000\n"),
	})

	expander := NewExpander(store, DefaultExpandOptions())
	date := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	files, err := expander.ExpandAndStore(context.Background(), bundle, "imp_abc123", date, "referentiel.zip")
	require.NoError(t, err)
	require.Len(t, files, 1)

	key := storage.BuildExpandedKey(date, "imp_abc123", "referentiel.zip", "coefficients.csv")
	exists, err := store.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)

	content, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, files[0].Content, content)
}
