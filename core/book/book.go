// Package book reads the package document of an EPUB held in memory: its
// metadata and its spine, so chapters can be visited in reading order.
package book

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html/charset"
)

// containerPath is the well-known location of container.xml in an EPUB.
const containerPath = "META-INF/container.xml"

// maxEntrySize guards against zip bombs when reading a single entry.
const maxEntrySize int64 = 256 * 1024 * 1024

// ErrInvalidEPub indicates the archive has no usable package document.
var ErrInvalidEPub = errors.New("invalid EPUB")

// ErrFileNotFound indicates a requested entry does not exist in the archive.
var ErrFileNotFound = errors.New("file not found in archive")

type containerXML struct {
	RootFiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Titles    []string `xml:"title"`
		Creators  []string `xml:"creator"`
		Languages []string `xml:"language"`
	} `xml:"metadata"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// Metadata holds the Dublin Core fields the converters use.
type Metadata struct {
	Title    string
	Authors  []string
	Language string
}

// Chapter is a spine document, identified by its archive path.
type Chapter struct {
	Href      string
	MediaType string
}

// Book is an opened EPUB. It is not safe for concurrent use.
type Book struct {
	zr       *zip.Reader
	byName   map[string]*zip.File
	byLower  map[string]*zip.File
	metadata Metadata
	chapters []Chapter
}

// Open parses an EPUB from memory.
func Open(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Errorf("opening zip: %w", err)
	}

	b := &Book{
		zr:      zr,
		byName:  make(map[string]*zip.File, len(zr.File)),
		byLower: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, ok := b.byName[f.Name]; !ok {
			b.byName[f.Name] = f
		}
		lower := strings.ToLower(f.Name)
		if _, ok := b.byLower[lower]; !ok {
			b.byLower[lower] = f
		}
	}

	opfPath, err := b.findPackage()
	if err != nil {
		return nil, err
	}
	opfData, err := b.ReadFile(opfPath)
	if err != nil {
		return nil, errors.Errorf("reading package document %s: %w", opfPath, err)
	}

	var pkg opfPackage
	if err := decodeXML(opfData, &pkg); err != nil {
		return nil, errors.Errorf("parsing package document %s: %w", opfPath, err)
	}

	b.metadata = Metadata{Authors: trimAll(pkg.Metadata.Creators)}
	if titles := trimAll(pkg.Metadata.Titles); len(titles) > 0 {
		b.metadata.Title = titles[0]
	}
	if langs := trimAll(pkg.Metadata.Languages); len(langs) > 0 {
		b.metadata.Language = langs[0]
	}

	opfDir := path.Dir(opfPath)
	type item struct{ href, mediaType string }
	manifest := make(map[string]item, len(pkg.Manifest))
	for _, it := range pkg.Manifest {
		manifest[it.ID] = item{href: it.Href, mediaType: it.MediaType}
	}
	for _, ref := range pkg.Spine {
		it, ok := manifest[ref.IDRef]
		if !ok || !isDocumentType(it.mediaType) {
			continue
		}
		b.chapters = append(b.chapters, Chapter{Href: resolve(opfDir, it.href), MediaType: it.mediaType})
	}
	return b, nil
}

// Metadata returns the book's metadata.
func (b *Book) Metadata() Metadata {
	out := b.metadata
	out.Authors = append([]string(nil), b.metadata.Authors...)
	return out
}

// Chapters returns the spine documents in reading order.
func (b *Book) Chapters() []Chapter {
	return append([]Chapter(nil), b.chapters...)
}

// ReadFile reads an entry by archive path, falling back to a
// case-insensitive match.
func (b *Book) ReadFile(name string) ([]byte, error) {
	f, ok := b.byName[name]
	if !ok {
		f, ok = b.byLower[strings.ToLower(name)]
	}
	if !ok {
		return nil, errors.Errorf("%s: %w", name, ErrFileNotFound)
	}

	if f.UncompressedSize64 > uint64(maxEntrySize) {
		return nil, errors.Errorf("entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, errors.Errorf("reading entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, errors.Errorf("entry %s exceeds %d bytes", f.Name, maxEntrySize)
	}
	return data, nil
}

// findPackage locates the OPF through container.xml, falling back to the
// first .opf entry in the archive.
func (b *Book) findPackage() (string, error) {
	if data, err := b.ReadFile(containerPath); err == nil {
		var c containerXML
		if err := decodeXML(data, &c); err != nil {
			return "", errors.Errorf("parsing container.xml: %w", err)
		}
		for _, rf := range c.RootFiles {
			if p := strings.TrimSpace(rf.FullPath); p != "" {
				return p, nil
			}
		}
	}

	for _, f := range b.zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			return f.Name, nil
		}
	}
	return "", errors.Errorf("no package document found: %w", ErrInvalidEPub)
}

// decodeXML decodes leniently: non-UTF-8 declarations are honoured and
// HTML named entities are accepted.
func decodeXML(data []byte, v any) error {
	d := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})))
	d.Strict = false
	d.Entity = xml.HTMLEntity
	d.CharsetReader = charset.NewReaderLabel
	return d.Decode(v)
}

func isDocumentType(mediaType string) bool {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "application/xhtml+xml", "text/html":
		return true
	}
	return false
}

// resolve joins an href from the package document to its directory.
func resolve(dir, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	if dir == "." {
		return path.Clean(href)
	}
	return path.Join(dir, href)
}

func trimAll(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
