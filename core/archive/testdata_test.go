package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// entry is one member of a test archive. Entries keep their slice order.
type entry struct {
	name    string
	content string
	method  uint16
}

// buildTestEPub creates an in-memory ZIP archive from entries and returns
// its bytes. It calls t.Fatal on any error.
func buildTestEPub(t *testing.T, comment string, entries ...entry) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: e.method})
		require.NoError(t, err)
		if e.content != "" {
			_, err = io.WriteString(fw, e.content)
			require.NoError(t, err)
		}
	}
	if comment != "" {
		require.NoError(t, zw.SetComment(comment))
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// standardEntries is a minimal EPUB with one chapter holding a watermark.
func standardEntries() []entry {
	return []entry{
		{name: "mimetype", content: "application/epub+zip", method: zip.Store},
		{name: "META-INF/container.xml", content: `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`, method: zip.Deflate},
		{name: "content.opf", content: `<package><metadata>Watermark Inc</metadata></package>`, method: zip.Deflate},
		{name: "chapter1.xhtml", content: `<html><body><p>Story text. Watermark Inc</p></body></html>`, method: zip.Deflate},
		{name: "images/cover.jpg", content: "\xff\xd8\xff\xe0 Watermark Inc binary", method: zip.Store},
	}
}

func openZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr
}

func names(zr *zip.Reader) []string {
	out := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		out = append(out, f.Name)
	}
	return out
}

// rawBytes returns the stored (possibly compressed) bytes of a member.
func rawBytes(t *testing.T, f *zip.File) []byte {
	t.Helper()
	r, err := f.OpenRaw()
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return data
}

func content(t *testing.T, f *zip.File) string {
	t.Helper()
	rc, err := f.Open()
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(data)
}
