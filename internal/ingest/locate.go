package ingest

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/daap14/stencil/internal/store"
)

// ConventionMainFileName is the entry definition file looked up when the
// caller does not name one explicitly.
const ConventionMainFileName = "blueprint.yaml"

// LocateDefinition resolves the entry definition file inside a staged
// application directory. mainFileName, when non-empty, is a caller-supplied
// override in percent-encoded form. The returned path is relative to the
// store root; the parser appends it to the resources base URI rather than
// reading it as a local path.
func LocateDefinition(layout *store.Layout, stagedDir, mainFileName string) (string, error) {
	if mainFileName != "" {
		decoded, err := url.QueryUnescape(mainFileName)
		if err != nil {
			return "", fmt.Errorf("%w: main file name %q is not valid percent-encoding", ErrInvalidParameter, mainFileName)
		}
		if !isRegularFile(filepath.Join(layout.Root, stagedDir, decoded)) {
			return "", fmt.Errorf("%w: %s does not exist in the application directory", ErrMissingDefinition, decoded)
		}
		return path.Join(stagedDir, decoded), nil
	}

	if !isRegularFile(filepath.Join(layout.Root, stagedDir, ConventionMainFileName)) {
		return "", fmt.Errorf("%w: application directory has no %s and no main file name was given", ErrMissingDefinition, ConventionMainFileName)
	}
	return path.Join(stagedDir, ConventionMainFileName), nil
}

// LocateArchive finds the originally uploaded archive of an ingested
// blueprint by probing the supported extensions in fixed priority order.
// Used by the download path.
func LocateArchive(layout *store.Layout, blueprintID string) (string, Format, error) {
	for _, format := range SupportedFormats {
		p := layout.UploadedArchivePath(blueprintID, string(format))
		if isRegularFile(p) {
			return p, format, nil
		}
	}
	return "", "", fmt.Errorf("%w: blueprint %s", ErrArchiveNotFound, blueprintID)
}

func isRegularFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
