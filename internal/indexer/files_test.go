package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/chunkd/internal/extract"
	"github.com/hyperjump/chunkd/internal/fileid"
	"github.com/hyperjump/chunkd/internal/models"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestIndexFile_syncsByPath(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	ex := extract.NewExtractor()
	path := filepath.Join(t.TempDir(), "handbook.txt")

	writeFile(t, path, content(3))
	res, err := env.idx.IndexFile(ctx, ex, path)
	require.NoError(t, err)
	require.NotNil(t, res)
	_, wantID, _ := fileid.ForPath(path)
	assert.Equal(t, wantID, res.Document.ID)
	assert.Equal(t, "handbook.txt", res.Document.Title)
	assert.Equal(t, 3, res.Stats.Chunks)
	assert.Equal(t, models.EmbeddingComplete, res.Stats.Status)

	res, err = env.idx.IndexFile(ctx, ex, path)
	require.NoError(t, err)
	assert.Nil(t, res, "unchanged file is skipped")

	writeFile(t, path, content(5))
	res, err = env.idx.IndexFile(ctx, ex, path)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, wantID, res.Document.ID)

	n, err := env.store.CountDocuments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	chunks, err := env.store.GetChunksByDocumentID(ctx, wantID)
	require.NoError(t, err)
	assert.Len(t, chunks, 5)
	assert.Equal(t, 5, env.vectors.Size())
}

func TestIndexFile_emptiedFileIsDropped(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	ex := extract.NewExtractor()
	path := filepath.Join(t.TempDir(), "notes.md")

	writeFile(t, path, content(2))
	_, err := env.idx.IndexFile(ctx, ex, path)
	require.NoError(t, err)

	writeFile(t, path, "   \n")
	_, err = env.idx.IndexFile(ctx, ex, path)
	require.ErrorIs(t, err, models.ErrEmptyContent)

	_, id, _ := fileid.ForPath(path)
	_, err = env.store.GetDocument(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, env.vectors.Size())
}

func TestIndexFile_rejectsDirectoriesAndBinary(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	ex := extract.NewExtractor()
	dir := t.TempDir()

	_, err := env.idx.IndexFile(ctx, ex, dir)
	assert.ErrorIs(t, err, models.ErrValidation)

	bin := filepath.Join(dir, "blob.dat")
	writeFile(t, bin, "PK\x00\x00"+strings.Repeat("\x00", 16))
	_, err = env.idx.IndexFile(ctx, ex, bin)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRemoveFile(t *testing.T) {
	env := newTestEnv(t, newScriptedEmbedder(nil))
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, content(2))

	_, err := env.idx.IndexFile(ctx, extract.NewExtractor(), path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	require.NoError(t, env.idx.RemoveFile(ctx, path))
	assert.Zero(t, env.vectors.Size())
	assert.ErrorIs(t, env.idx.RemoveFile(ctx, path), models.ErrNotFound)
}
