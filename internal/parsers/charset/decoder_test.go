package charset

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// "Éclairage extérieur" in Windows-1252: É=0xC9, é=0xE9
var win1252Sample = []byte{0xC9, 'c', 'l', 'a', 'i', 'r', 'a', 'g', 'e', ' ', 'e', 'x', 't', 0xE9, 'r', 'i', 'e', 'u', 'r'}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Encoding
	}{
		{"UTF-8 BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("code;libellé")...), EncodingUTF8},
		{"Plain ASCII", []byte("code;libelle"), EncodingUTF8},
		{"Valid UTF-8 accents", []byte("Type de bâtiment"), EncodingUTF8},
		{"Windows-1252 accents", win1252Sample, EncodingWindows1252},
		{"Empty", nil, EncodingUTF8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectEncoding(tt.data))
		})
	}
}

func TestDecodeWindows1252(t *testing.T) {
	decoded, err := Decode(win1252Sample, EncodingWindows1252)
	require.NoError(t, err)
	assert.Equal(t, "Éclairage extérieur", decoded)

	// œ sits at 0x9C in Windows-1252 but does not exist in ISO-8859-1
	decoded, err = Decode([]byte{'c', 0x9C, 'u', 'r'}, EncodingWindows1252)
	require.NoError(t, err)
	assert.Equal(t, "cœur", decoded)
}

func TestDecodeMislabeledUTF8(t *testing.T) {
	// Valid UTF-8 declared as Windows-1252 must not be decoded twice
	decoded, err := Decode([]byte("Clé multiplicateur"), EncodingWindows1252)
	require.NoError(t, err)
	assert.Equal(t, "Clé multiplicateur", decoded)
}

func TestDecodeStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("code_operation")...)
	decoded, err := Decode(data, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, "code_operation", decoded)
}

func TestToUTF8Reader(t *testing.T) {
	r := ToUTF8Reader(bytes.NewReader(win1252Sample), EncodingWindows1252)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Éclairage extérieur", string(out))

	// UTF-8 passes through unchanged
	passthrough := ToUTF8Reader(strings.NewReader("déjà utf-8"), EncodingUTF8)
	out, err = io.ReadAll(passthrough)
	require.NoError(t, err)
	assert.Equal(t, "déjà utf-8", string(out))
}
