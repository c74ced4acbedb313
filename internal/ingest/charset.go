package ingest

import (
	"bytes"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeToUTF8 normalizes uploaded bytes to UTF-8. A BOM is stripped; valid
// UTF-8 passes through untouched; anything else is decoded as fallbackCharset
// (windows-1252 when empty, which covers the latin-1 exports we see in
// practice).
func DecodeToUTF8(data []byte, fallbackCharset string) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		return data, nil
	}

	if fallbackCharset == "" {
		fallbackCharset = "windows-1252"
	}

	enc, err := htmlindex.Get(fallbackCharset)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: unknown charset %q", fallbackCharset)
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: decode %s", fallbackCharset)
	}
	return decoded, nil
}
