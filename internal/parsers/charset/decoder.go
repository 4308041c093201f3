// Package charset decodes referential exports to UTF-8. French CRM and
// delegate exports arrive as UTF-8 (with or without BOM), Windows-1252 or
// ISO-8859-1; the accented headers and labels (é, è, à, ç, œ) break naive
// byte handling in all three.
package charset

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingISO88591    Encoding = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding detects the encoding of a byte buffer. Valid UTF-8 wins;
// anything else is treated as Windows-1252, which subsumes ISO-8859-1 for
// the printable range French exports use.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1252
}

// Decode converts a byte buffer from the given encoding to a UTF-8 string.
// A buffer that is already valid UTF-8 is returned as-is regardless of the
// declared encoding, so a mislabeled file is never decoded twice. The UTF-8
// BOM is stripped; left in place it contaminates the first header cell.
func Decode(data []byte, enc Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return string(data), nil
	}

	var cm *charmap.Charmap
	switch enc {
	case EncodingISO88591:
		cm = charmap.ISO8859_1
	default:
		cm = charmap.Windows1252
	}

	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// ToUTF8Reader wraps a reader with a decoder converting to UTF-8.
// UTF-8 input is passed through unchanged.
func ToUTF8Reader(r io.Reader, enc Encoding) io.Reader {
	var decoder encoding.Encoding

	switch enc {
	case EncodingWindows1252:
		decoder = charmap.Windows1252
	case EncodingISO88591:
		decoder = charmap.ISO8859_1
	default:
		return r
	}

	return transform.NewReader(r, decoder.NewDecoder())
}
