package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Format identifies one of the supported archive formats. The set is closed:
// zip, tar, tar.gz and tar.bz2. The string form doubles as the file
// extension used for the permanently stored archive.
type Format string

const (
	FormatZip   Format = "zip"
	FormatTar   Format = "tar"
	FormatTarGz Format = "tar.gz"
	FormatTarBz Format = "tar.bz2"
)

// SupportedFormats lists all supported formats in the fixed priority order
// used when probing the store for a previously uploaded archive.
var SupportedFormats = []Format{FormatZip, FormatTar, FormatTarGz, FormatTarBz}

var (
	zipMagic      = []byte{'P', 'K', 0x03, 0x04}
	zipEmptyMagic = []byte{'P', 'K', 0x05, 0x06}
	gzipMagic     = []byte{0x1f, 0x8b}
	bzip2Magic    = []byte{'B', 'Z', 'h'}
	ustarMagic    = []byte("ustar")
)

// tarMagicOffset is where the ustar magic sits in a tar header block.
const tarMagicOffset = 257

// DetectFormat sniffs the archive format from file content. File names and
// extensions are never consulted; a zip named foo.txt is still a zip.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening archive for sniffing: %w", err)
	}
	defer f.Close()

	header := make([]byte, tarMagicOffset+len(ustarMagic))
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("%w: archive is empty or unreadable", ErrUnsupportedFormat)
	}
	header = header[:n]

	switch {
	case bytes.HasPrefix(header, zipMagic), bytes.HasPrefix(header, zipEmptyMagic):
		return FormatZip, nil
	case bytes.HasPrefix(header, gzipMagic):
		return FormatTarGz, nil
	case bytes.HasPrefix(header, bzip2Magic):
		return FormatTarBz, nil
	case len(header) >= tarMagicOffset+len(ustarMagic) &&
		bytes.Equal(header[tarMagicOffset:tarMagicOffset+len(ustarMagic)], ustarMagic):
		return FormatTar, nil
	}

	return "", fmt.Errorf("%w: supported formats are %v", ErrUnsupportedFormat, SupportedFormats)
}
