package ingest

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/flate"

	"github.com/daap14/stencil/internal/store"
)

// PackagePlugins archives each immediate subdirectory of the placed
// blueprint's plugins/ directory into a standalone <name>.zip next to it,
// for later distribution to agents. A blueprint without a plugins directory
// is fine. Callers treat failures as non-fatal: plugins are auxiliary
// artifacts and never invalidate an already-placed blueprint.
func PackagePlugins(layout *store.Layout, blueprintID string) error {
	pluginsDir := filepath.Join(layout.BlueprintDir(blueprintID), "plugins")
	info, err := os.Stat(pluginsDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		return fmt.Errorf("listing plugins directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		target := filepath.Join(pluginsDir, entry.Name()+".zip")
		if err := zipDir(filepath.Join(pluginsDir, entry.Name()), target); err != nil {
			return fmt.Errorf("packaging plugin %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// zipDir writes a deflate-compressed zip of dir to target. Entry paths are
// rooted at dir's base name so the archive is self-contained and
// relocatable.
func zipDir(dir, target string) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	base := filepath.Base(dir)
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:   path.Join(base, filepath.ToSlash(rel)),
			Method: zip.Deflate,
		})
		if err != nil {
			return err
		}
		src, err := os.Open(p)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		out.Close()
		os.Remove(target)
		return err
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
