package ingest

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/daap14/stencil/internal/store"
)

func newTestLayout(t *testing.T) *store.Layout {
	t.Helper()

	layout := store.NewLayout(t.TempDir(), "http://localhost:8080/resources")
	require.NoError(t, layout.EnsureDirs())
	return layout
}

// zipBytes builds an in-memory zip. Keys ending in "/" become directory
// entries.
func zipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range sortedKeys(entries) {
		if name[len(name)-1] == '/' {
			_, err := zw.Create(name)
			require.NoError(t, err)
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// tarBytes builds an in-memory tar. Keys ending in "/" become directory
// entries.
func tarBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, name := range sortedKeys(entries) {
		if name[len(name)-1] == '/' {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     name,
				Typeflag: tar.TypeDir,
				Mode:     0o755,
				Format:   tar.FormatUSTAR,
			}))
			continue
		}
		body := []byte(entries[name])
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
			Format:   tar.FormatUSTAR,
		}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeArchive(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

// storeEntries returns the names of everything directly under the store
// root, the permanent subtrees excluded. A clean store returns nothing.
func storeEntries(t *testing.T, layout *store.Layout) []string {
	t.Helper()

	entries, err := os.ReadDir(layout.Root)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		if e.Name() == store.BlueprintsFolder || e.Name() == store.UploadedBlueprintsFolder {
			continue
		}
		names = append(names, e.Name())
	}
	return names
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
