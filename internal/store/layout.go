package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default subtree names under the store root. They match the paths the
// definition parser resolves resource URLs against, so they are part of the
// external contract, not an implementation detail.
const (
	BlueprintsFolder         = "blueprints"
	UploadedBlueprintsFolder = "uploaded-blueprints"
)

// Layout describes the fixed subtrees of the shared file store. It is built
// once at startup from configuration and passed into every component that
// touches the store; nothing reads it as ambient global state. Read-only
// after construction.
type Layout struct {
	// Root is the absolute path of the store root. All temporary artifacts
	// created during ingestion live directly under it so that promotion to a
	// permanent path is a same-filesystem rename.
	Root string

	// ResourcesBaseURI is the base URI the definition parser resolves
	// relative resource references against (e.g. http://fileserver:53229).
	ResourcesBaseURI string
}

// NewLayout returns a Layout rooted at root.
func NewLayout(root, resourcesBaseURI string) *Layout {
	return &Layout{Root: root, ResourcesBaseURI: resourcesBaseURI}
}

// EnsureDirs creates the permanent subtrees if they do not exist yet.
// Called once at startup.
func (l *Layout) EnsureDirs() error {
	for _, dir := range []string{
		filepath.Join(l.Root, BlueprintsFolder),
		filepath.Join(l.Root, UploadedBlueprintsFolder),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}
	return nil
}

// BlueprintDir returns the permanent unpacked-content directory for a
// blueprint identity.
func (l *Layout) BlueprintDir(blueprintID string) string {
	return filepath.Join(l.Root, BlueprintsFolder, blueprintID)
}

// UploadedBlueprintDir returns the permanent directory holding the
// originally uploaded archive for a blueprint identity.
func (l *Layout) UploadedBlueprintDir(blueprintID string) string {
	return filepath.Join(l.Root, UploadedBlueprintsFolder, blueprintID)
}

// UploadedArchivePath returns the permanent path of the uploaded archive for
// a blueprint identity and archive extension.
func (l *Layout) UploadedArchivePath(blueprintID, ext string) string {
	return filepath.Join(l.UploadedBlueprintDir(blueprintID), blueprintID+"."+ext)
}
