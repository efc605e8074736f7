package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocumentName(t *testing.T) {
	valid := []string{"paper1", "Deep Learning 2024", "机器学习综述", "a.b"}
	for _, name := range valid {
		assert.NoError(t, ValidateDocumentName(name), name)
	}

	invalid := []string{"", "  ", " padded", ".", "..", "a/b", `a\b`, "nul\x00"}
	for _, name := range invalid {
		assert.ErrorIs(t, ValidateDocumentName(name), ErrInvalidDocumentName, "%q", name)
	}
}

func TestFileDocumentRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewFileDocumentRepository(t.TempDir())

	saved, err := repo.Save(ctx, 7, "paper1", "attention is all you need")
	require.NoError(t, err)
	assert.Equal(t, "paper1", saved.Name)
	assert.EqualValues(t, len("attention is all you need"), saved.Size)

	doc, err := repo.Get(ctx, 7, "paper1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "attention is all you need", doc.Content)

	_, err = repo.Save(ctx, 7, "paper1", "replaced")
	require.NoError(t, err)
	doc, err = repo.Get(ctx, 7, "paper1")
	require.NoError(t, err)
	assert.Equal(t, "replaced", doc.Content)

	other, err := repo.Get(ctx, 8, "paper1")
	require.NoError(t, err)
	assert.Nil(t, other, "documents are scoped per user")

	deleted, err := repo.Delete(ctx, 7, "paper1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, 7, "paper1")
	require.NoError(t, err)
	assert.False(t, deleted)

	missing, err := repo.Get(ctx, 7, "paper1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFileDocumentRepositoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	repo := NewFileDocumentRepository(base)

	docs, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	now := time.Now()
	for i, name := range []string{"old", "middle", "new"} {
		_, err := repo.Save(ctx, 1, name, name)
		require.NoError(t, err)
		mod := now.Add(time.Duration(i-3) * time.Hour)
		require.NoError(t, os.Chtimes(repo.documentPath(1, name), mod, mod))
	}
	require.NoError(t, os.WriteFile(filepath.Join(repo.userDir(1), "ignored.pdf"), []byte("x"), 0o644))

	docs, err = repo.List(ctx, 1)
	require.NoError(t, err)
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
		assert.Empty(t, d.Content)
	}
	assert.Equal(t, []string{"new", "middle", "old"}, names)
}

func TestFileDocumentRepositoryRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	repo := NewFileDocumentRepository(base)

	_, err := repo.Save(ctx, 1, "../escape", "x")
	assert.ErrorIs(t, err, ErrInvalidDocumentName)

	doc, err := repo.Get(ctx, 1, "../../etc/passwd")
	require.NoError(t, err)
	assert.Nil(t, doc)

	deleted, err := repo.Delete(ctx, 1, "..")
	require.NoError(t, err)
	assert.False(t, deleted)
}
