package ingest

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/daap14/stencil/internal/store"
)

// Extractor unpacks an acquired archive into a private temporary directory,
// enforces the single-top-level-directory contract, and stages the content
// on the store root under a collision-resistant name.
type Extractor struct {
	layout *store.Layout
}

// NewExtractor creates an Extractor over the given store layout.
func NewExtractor(layout *store.Layout) *Extractor {
	return &Extractor{layout: layout}
}

// ExtractToStore unpacks archivePath and moves its single top-level
// directory onto the store root under a generated unique name. It returns
// the staged directory name (relative to the root) and the detected format.
// The temporary extraction directory is removed on every exit path.
func (e *Extractor) ExtractToStore(archivePath string) (string, Format, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return "", "", err
	}

	tmpDir, err := os.MkdirTemp(e.layout.Root, ".extract-*")
	if err != nil {
		return "", "", fmt.Errorf("creating extraction directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := unpack(archivePath, format, tmpDir); err != nil {
		return "", "", err
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", "", fmt.Errorf("listing extracted entries: %w", err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return "", "", fmt.Errorf("%w: archive must contain exactly one directory", ErrStructuralValidation)
	}

	// The uploaded directory name is not unique across concurrent or
	// repeated uploads; the blueprint identity is. Stage under a generated
	// name until the parse succeeds and the content earns its permanent
	// identity-addressed path.
	base := entries[0].Name()
	staged := base + "-" + uuid.New().String()
	if err := os.Rename(filepath.Join(tmpDir, base), filepath.Join(e.layout.Root, staged)); err != nil {
		return "", "", fmt.Errorf("staging %s onto store root: %w", base, err)
	}

	return staged, format, nil
}

func unpack(archivePath string, format Format, dest string) error {
	switch format {
	case FormatZip:
		return unpackZip(archivePath, dest)
	case FormatTar, FormatTarGz, FormatTarBz:
		return unpackTar(archivePath, format, dest)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// safeJoin joins an archive entry name onto dest, rejecting entries that
// would escape it (zip-slip).
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.Clean(name))
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: entry %q escapes the extraction directory", ErrStructuralValidation, name)
	}
	return target, nil
}

func unpackZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: reading zip: %v", ErrUnsupportedFormat, err)
	}
	defer zr.Close()

	for _, entry := range zr.File {
		target, err := safeJoin(dest, entry.Name)
		if err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", entry.Name, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("creating parent of %s: %w", entry.Name, err)
		}
		src, err := entry.Open()
		if err != nil {
			return fmt.Errorf("opening zip entry %s: %w", entry.Name, err)
		}
		if err := writeFile(target, src); err != nil {
			src.Close()
			return fmt.Errorf("extracting %s: %w", entry.Name, err)
		}
		src.Close()
	}
	return nil
}

func unpackTar(archivePath string, format Format, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%w: reading gzip stream: %v", ErrUnsupportedFormat, err)
		}
		defer gz.Close()
		r = gz
	case FormatTarBz:
		r = bzip2.NewReader(f)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading tar stream: %v", ErrUnsupportedFormat, err)
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("creating directory %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating parent of %s: %w", hdr.Name, err)
			}
			if err := writeFile(target, tr); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
		}
	}
}

func writeFile(target string, src io.Reader) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
