package rewrite

import (
	"bytes"
	"regexp"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// sniffLen bounds how far into a document the declaration prescan looks.
const sniffLen = 1024

var (
	xmlDeclEncoding = regexp.MustCompile(`^\s*<\?xml[^>]*?\bencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)
	metaCharset     = regexp.MustCompile(`(?i)<meta\b[^>]*?\bcharset\s*=\s*["']?\s*([A-Za-z0-9._:-]+)`)
)

// declaredEncoding returns the encoding a document declares for itself, or
// nil when it is UTF-8 (explicitly or by default). A BOM wins over an XML
// declaration, which wins over a <meta> charset.
func declaredEncoding(content []byte) (encoding.Encoding, error) {
	switch {
	case bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}):
		return nil, nil
	case bytes.HasPrefix(content, []byte{0xFF, 0xFE}):
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case bytes.HasPrefix(content, []byte{0xFE, 0xFF}):
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	}

	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	label := ""
	if m := xmlDeclEncoding.FindSubmatch(head); m != nil {
		label = string(m[1])
	} else if m := metaCharset.FindSubmatch(head); m != nil {
		label = string(m[1])
	}
	if label == "" {
		return nil, nil
	}

	// A byte-oriented declaration of UTF-16 without a BOM cannot be true.
	if strings.HasPrefix(strings.ToLower(label), "utf-16") {
		return nil, nil
	}

	enc, name := charset.Lookup(label)
	if enc == nil {
		return nil, errors.Errorf("unsupported encoding %q", label)
	}
	if name == "utf-8" {
		return nil, nil
	}
	return enc, nil
}

// Decode converts a document to UTF-8 using the same detection the
// rewriter applies. A leading byte order mark is dropped.
func Decode(content []byte) (string, error) {
	enc, err := declaredEncoding(content)
	if err != nil {
		return "", err
	}
	out, err := decode(enc, content)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(out), "\ufeff"), nil
}

// decode converts content to UTF-8. A nil enc means content already is UTF-8.
func decode(enc encoding.Encoding, content []byte) ([]byte, error) {
	if enc == nil {
		return content, nil
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, errors.Errorf("decoding document: %w", err)
	}
	return out, nil
}

// encode converts UTF-8 back to enc. Characters enc cannot represent become
// numeric character references.
func encode(enc encoding.Encoding, content []byte) ([]byte, error) {
	if enc == nil {
		return content, nil
	}
	out, err := encoding.HTMLEscapeUnsupported(enc.NewEncoder()).Bytes(content)
	if err != nil {
		return nil, errors.Errorf("encoding document: %w", err)
	}
	return out, nil
}
