package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/stencil/internal/store"
)

func stageDir(t *testing.T, layout *store.Layout, name string, files map[string]string) {
	t.Helper()

	for f, content := range files {
		p := filepath.Join(layout.Root, name, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestLocateDefinition_Convention(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)
	stageDir(t, layout, "app-abc", map[string]string{"blueprint.yaml": "a: b\n"})

	p, err := LocateDefinition(layout, "app-abc", "")
	require.NoError(t, err)
	assert.Equal(t, "app-abc/blueprint.yaml", p)
}

func TestLocateDefinition_ExplicitOverride(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)
	stageDir(t, layout, "app-abc", map[string]string{"my config.yml": "a: b\n"})

	// The override arrives percent-encoded and is decoded before lookup.
	p, err := LocateDefinition(layout, "app-abc", "my%20config.yml")
	require.NoError(t, err)
	assert.Equal(t, "app-abc/my config.yml", p)
}

func TestLocateDefinition_Errors(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)
	stageDir(t, layout, "app-abc", map[string]string{"other.yaml": "a: b\n"})

	tests := []struct {
		name         string
		mainFileName string
		want         error
	}{
		{"no convention file and no override", "", ErrMissingDefinition},
		{"override names a missing file", "nope.yaml", ErrMissingDefinition},
		{"override is not valid percent-encoding", "bad%zz.yaml", ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := LocateDefinition(layout, "app-abc", tt.mainFileName)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLocateArchive(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)

	dir := layout.UploadedBlueprintDir("stored")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(layout.UploadedArchivePath("stored", "tar.gz"), []byte("gz"), 0o644))

	p, format, err := LocateArchive(layout, "stored")
	require.NoError(t, err)
	assert.Equal(t, FormatTarGz, format)
	assert.Equal(t, layout.UploadedArchivePath("stored", "tar.gz"), p)

	_, _, err = LocateArchive(layout, "absent")
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestLocateArchive_ProbeOrder(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)

	dir := layout.UploadedBlueprintDir("both")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(layout.UploadedArchivePath("both", "zip"), []byte("z"), 0o644))
	require.NoError(t, os.WriteFile(layout.UploadedArchivePath("both", "tar"), []byte("t"), 0o644))

	// zip wins when several candidates exist.
	_, format, err := LocateArchive(layout, "both")
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)
}

func TestPackagePlugins_NoPluginsDirectory(t *testing.T) {
	t.Parallel()

	layout := newTestLayout(t)
	require.NoError(t, os.MkdirAll(layout.BlueprintDir("plain"), 0o755))

	assert.NoError(t, PackagePlugins(layout, "plain"))
}
