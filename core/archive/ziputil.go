package archive

import (
	"archive/zip"
	"io"
	"time"

	"gitlab.com/tozd/go/errors"
)

// maxMemberSize is the maximum allowed decompressed size for a single text
// member. This guards against zip bombs. Defaults to 256 MB.
const maxMemberSize int64 = 256 * 1024 * 1024

// expectedMimetype is the required content of the leading "mimetype" entry.
const expectedMimetype = "application/epub+zip"

// readMember reads the full contents of a ZIP entry, refusing entries whose
// declared or actual decompressed size exceeds limit.
func readMember(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, errors.Errorf("entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errors.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// Read up to limit+1 to catch a forged declared size.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, errors.Errorf("reading entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, errors.Errorf("entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}
	return data, nil
}

// writeMember writes data under f's header: same name, method, timestamps,
// comment and extra fields. Sizes and CRC are recomputed by the writer.
func writeMember(zw *zip.Writer, f *zip.File, data []byte) error {
	hdr := f.FileHeader
	hdr.CRC32 = 0
	hdr.CompressedSize = 0
	hdr.CompressedSize64 = 0
	hdr.UncompressedSize = 0
	hdr.UncompressedSize64 = 0
	// A non-zero Modified makes the writer append a second extended
	// timestamp field; the MS-DOS fields and Extra already carry the time.
	hdr.Modified = time.Time{}

	w, err := zw.CreateHeader(&hdr)
	if err != nil {
		return errors.Errorf("creating entry %s: %w", f.Name, err)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Errorf("writing entry %s: %w", f.Name, err)
	}
	return nil
}
