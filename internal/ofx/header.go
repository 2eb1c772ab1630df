package ofx

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// rootIndex returns the offset of the <OFX> root tag, matched without
// regard to case, or -1.
func rootIndex(data []byte) int {
	const marker = "<OFX"
	for i := 0; i+len(marker) < len(data); i++ {
		if data[i] != '<' {
			continue
		}
		if !asciiEqualFold(data[i:i+len(marker)], marker) {
			continue
		}
		switch data[i+len(marker)] {
		case '>', ' ', '\t', '\r', '\n':
			return i
		}
	}
	return -1
}

func asciiEqualFold(b []byte, s string) bool {
	for i := 0; i < len(s); i++ {
		c := b[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != s[i] {
			return false
		}
	}
	return true
}

// decodeBody returns body as UTF-8. Bodies that are already valid UTF-8 are
// returned unchanged; otherwise the single-byte charset named in the
// header is applied, Windows-1252 when the header names none.
func decodeBody(header, body []byte) (string, error) {
	body = bytes.TrimPrefix(body, utf8BOM)
	if utf8.Valid(body) {
		return string(body), nil
	}
	out, err := charsetFor(header).NewDecoder().Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func charsetFor(header []byte) encoding.Encoding {
	h := strings.ToUpper(string(header))
	switch {
	case strings.Contains(h, "ENCODING:UTF-8"), strings.Contains(h, `ENCODING="UTF-8"`):
		return unicode.UTF8
	case strings.Contains(h, "8859-1"):
		return charmap.ISO8859_1
	default:
		return charmap.Windows1252
	}
}
