package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/daap14/stencil/internal/blueprint"
	"github.com/daap14/stencil/internal/dsl"
	"github.com/daap14/stencil/internal/store"
)

// Ingestor drives the full ingestion pipeline: acquisition, extraction and
// structural validation, staging, definition parsing, permanent placement,
// plugin packaging, and archive preservation. It owns all rollback logic;
// a failed ingestion leaves nothing under the permanent paths and no temp
// artifacts on the store.
type Ingestor struct {
	layout    *store.Layout
	acquirer  *Acquirer
	extractor *Extractor
	parser    dsl.Parser
	repo      blueprint.Repository
}

// Options bound the acquisition paths.
type Options struct {
	// FetchTimeout bounds a URL fetch end to end.
	FetchTimeout time.Duration

	// MaxArchiveSize bounds the archive size in bytes on every
	// acquisition path.
	MaxArchiveSize int64
}

// NewIngestor creates an Ingestor over the given store layout, definition
// parser, and metadata repository.
func NewIngestor(layout *store.Layout, parser dsl.Parser, repo blueprint.Repository, opts Options) *Ingestor {
	return &Ingestor{
		layout:    layout,
		acquirer:  NewAcquirer(layout, opts.FetchTimeout, opts.MaxArchiveSize),
		extractor: NewExtractor(layout),
		parser:    parser,
		repo:      repo,
	}
}

// Ingest runs one ingestion attempt for blueprintID. mainFileName, when
// non-empty, overrides the blueprint.yaml convention (percent-encoded).
// On success the blueprint content lives under blueprints/<id>/, the
// original archive under uploaded-blueprints/<id>/, and the returned record
// is persisted. On failure every intermediate artifact is rolled back; the
// permanent namespace for the identity is only ever touched by single
// rename operations.
func (ing *Ingestor) Ingest(ctx context.Context, blueprintID string, src Source, mainFileName string) (*blueprint.Blueprint, error) {
	archivePath, err := ing.acquirer.Acquire(ctx, src)
	if err != nil {
		return nil, err
	}
	// The temp archive never outlives the attempt: on success it has been
	// renamed into uploaded-blueprints/ by then and this is a no-op.
	defer os.Remove(archivePath)

	stagedDir, format, err := ing.extractor.ExtractToStore(archivePath)
	if err != nil {
		return nil, err
	}
	stagedPath := filepath.Join(ing.layout.Root, stagedDir)

	mainFile, err := LocateDefinition(ing.layout, stagedDir, mainFileName)
	if err != nil {
		os.RemoveAll(stagedPath)
		return nil, err
	}

	parsed, err := ing.parser.Parse(ctx, mainFile, ing.layout.ResourcesBaseURI)
	if err != nil {
		os.RemoveAll(stagedPath)
		var perr *dsl.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, perr.Message)
		}
		return nil, fmt.Errorf("parsing definition: %w", err)
	}

	bp := &blueprint.Blueprint{
		ID:           blueprintID,
		MainFileName: path.Base(mainFile),
		Description:  parsed.Description,
	}
	if err := ing.repo.Create(ctx, bp); err != nil {
		os.RemoveAll(stagedPath)
		return nil, err
	}

	// The single visibility-changing operation: until this rename nothing
	// exists under the permanent namespace for this identity.
	if err := os.Rename(stagedPath, ing.layout.BlueprintDir(blueprintID)); err != nil {
		ing.rollback(ctx, blueprintID, stagedPath)
		return nil, fmt.Errorf("placing blueprint %s: %w", blueprintID, err)
	}

	// Plugin archives are auxiliary distribution artifacts. A packaging
	// failure does not invalidate the already-placed blueprint.
	if err := PackagePlugins(ing.layout, blueprintID); err != nil {
		slog.Warn("plugin packaging failed; blueprint remains ingested",
			"blueprintId", blueprintID, "error", err)
	}

	if err := ing.placeUploadedArchive(blueprintID, archivePath, format); err != nil {
		ing.rollback(ctx, blueprintID, stagedPath)
		return nil, err
	}

	return bp, nil
}

// placeUploadedArchive moves the originally uploaded archive from its temp
// path into the permanent uploaded-blueprints location, named after the
// blueprint identity and detected format.
func (ing *Ingestor) placeUploadedArchive(blueprintID, archivePath string, format Format) error {
	if _, err := os.Stat(archivePath); err != nil {
		// A prior step violated its cleanup contract. Report, never
		// recover silently.
		return fmt.Errorf("%w: uploaded archive %s vanished before permanent placement", ErrInternalInconsistency, archivePath)
	}

	dir := ing.layout.UploadedBlueprintDir(blueprintID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	target := ing.layout.UploadedArchivePath(blueprintID, string(format))
	if err := os.Rename(archivePath, target); err != nil {
		return fmt.Errorf("moving archive to %s: %w", target, err)
	}
	return nil
}

// rollback undoes a partially completed placement: the staged directory,
// anything already under the permanent paths, and the metadata record. All
// removals are best-effort; the record delete failure is logged because a
// dangling record without store content will surface as an inconsistency
// on the next read.
func (ing *Ingestor) rollback(ctx context.Context, blueprintID, stagedPath string) {
	os.RemoveAll(stagedPath)
	os.RemoveAll(ing.layout.BlueprintDir(blueprintID))
	os.RemoveAll(ing.layout.UploadedBlueprintDir(blueprintID))
	if err := ing.repo.Delete(ctx, blueprintID); err != nil && !errors.Is(err, blueprint.ErrBlueprintNotFound) {
		slog.Error("rollback could not remove blueprint record", "blueprintId", blueprintID, "error", err)
	}
}

// Remove deletes both permanent subtrees of an ingested blueprint. It does
// not stop at the first failure; any subtree that could not be removed is
// reported so the inconsistency is surfaced instead of silently ignored.
func (ing *Ingestor) Remove(blueprintID string) error {
	var errs []error
	for _, dir := range []string{
		ing.layout.BlueprintDir(blueprintID),
		ing.layout.UploadedBlueprintDir(blueprintID),
	} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, fmt.Errorf("removing %s: %w", dir, err))
		}
	}
	return errors.Join(errs...)
}
