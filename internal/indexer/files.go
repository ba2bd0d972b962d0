package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/chunkd/internal/extract"
	"github.com/hyperjump/chunkd/internal/fileid"
	"github.com/hyperjump/chunkd/internal/models"
)

// Metadata keys recorded on documents synced from files.
const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
)

// IndexFile extracts the file at path and stores it under the id fileid derives from the
// path, replacing any earlier version and its chunks. A file whose mtime and size match the
// stored version is skipped and reported with a nil result. A file that no longer yields
// any text has its previous version removed and fails with ErrEmptyContent.
func (idx *Indexer) IndexFile(ctx context.Context, ex *extract.Extractor, path string) (*models.IngestResult, error) {
	absPath, docID, err := fileid.ForPath(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", models.ErrValidation, absPath)
	}

	unlock := idx.docLock.Lock(docID)
	defer unlock()

	if idx.unchanged(ctx, docID, absPath, info) {
		idx.logger.Debug("Skipping unchanged file", zap.String("path", absPath))
		return nil, nil
	}

	text, err := ex.Extract(absPath)
	if err != nil {
		return nil, err
	}
	input := &models.DocumentInput{
		Title:   filepath.Base(absPath),
		Content: text,
		Metadata: map[string]interface{}{
			metaKeySourcePath: absPath,
			// Strings: UnixNano does not survive a JSON float64.
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	}
	res, err := idx.ingest(ctx, docID, input, true)
	if errors.Is(err, models.ErrEmptyContent) {
		if derr := idx.deleteLocked(ctx, docID); derr != nil && !errors.Is(derr, models.ErrNotFound) {
			idx.logger.Warn("Failed to drop emptied file", zap.String("path", absPath), zap.Error(derr))
		}
	}
	return res, err
}

// RemoveFile deletes the document synced from path. It fails with ErrNotFound when the
// file was never indexed.
func (idx *Indexer) RemoveFile(ctx context.Context, path string) error {
	_, docID, err := fileid.ForPath(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.Delete(ctx, docID)
}

func (idx *Indexer) unchanged(ctx context.Context, docID, absPath string, info os.FileInfo) bool {
	doc, err := idx.store.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return false
	}
	return doc.Metadata[metaKeySourcePath] == absPath &&
		doc.Metadata[metaKeySourceMtime] == strconv.FormatInt(info.ModTime().UnixNano(), 10) &&
		doc.Metadata[metaKeySourceSize] == strconv.FormatInt(info.Size(), 10)
}
