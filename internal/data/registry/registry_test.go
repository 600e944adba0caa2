package registry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/akolanti/DocMind/internal/data/redisStore"
	"github.com/akolanti/DocMind/internal/domain/commonModels"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]commonModels.DocumentRegistry {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lite, err := NewSQLite(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lite.Close() })

	return map[string]commonModels.DocumentRegistry{
		"memory": NewMemory(),
		"redis":  NewRedis(redisStore.NewTestStore(client)),
		"sqlite": lite,
	}
}

func document(name string, uploaded time.Time) commonModels.Document {
	return commonModels.Document{
		FileName:    name,
		Title:       "Title of " + name,
		Authors:     "Ada Lovelace, Alan Turing",
		PageCount:   12,
		FileSize:    2048,
		StoragePath: "/uploads/" + name,
		PDFType:     commonModels.PDFDigital,
		Status:      commonModels.StatusPending,
		UploadedAt:  uploaded,
	}
}

func TestRegistry_Contract(t *testing.T) {
	for name, reg := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

			t.Run("Insert is idempotent on file name", func(t *testing.T) {
				id, existed, err := reg.Insert(ctx, document("a.pdf", base))
				require.NoError(t, err)
				assert.False(t, existed)
				assert.NotEmpty(t, id)

				again, existed, err := reg.Insert(ctx, document("a.pdf", base.Add(time.Hour)))
				require.NoError(t, err)
				assert.True(t, existed)
				assert.Equal(t, id, again)

				doc, found, err := reg.Get(ctx, id)
				require.NoError(t, err)
				require.True(t, found)
				assert.Equal(t, "Title of a.pdf", doc.Title)
				assert.Equal(t, "Ada Lovelace, Alan Turing", doc.Authors)
				assert.Equal(t, commonModels.PDFDigital, doc.PDFType)
				assert.Equal(t, commonModels.StatusPending, doc.Status)
				assert.True(t, base.Equal(doc.UploadedAt))
				assert.True(t, doc.LastProcessed.IsZero())
			})

			t.Run("UpdateStatus", func(t *testing.T) {
				id, _, err := reg.Insert(ctx, document("b.pdf", base.Add(time.Minute)))
				require.NoError(t, err)

				require.NoError(t, reg.UpdateStatus(ctx, id, commonModels.StatusUpdate{Status: commonModels.StatusPartial}))
				require.NoError(t, reg.UpdateStatus(ctx, id, commonModels.StatusUpdate{
					ChunkCount: 17, HasEmbeddings: true, Status: commonModels.StatusCompleted,
				}))

				doc, _, err := reg.Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, commonModels.StatusCompleted, doc.Status)
				assert.Equal(t, 17, doc.ChunkCount)
				assert.True(t, doc.HasEmbeddings)
				assert.False(t, doc.LastProcessed.IsZero())

				err = reg.UpdateStatus(ctx, "missing", commonModels.StatusUpdate{Status: commonModels.StatusFailed})
				assert.ErrorIs(t, err, commonModels.ErrNotFound)
			})

			t.Run("List newest first with filter and paging", func(t *testing.T) {
				_, _, err := reg.Insert(ctx, document("c.pdf", base.Add(2*time.Minute)))
				require.NoError(t, err)

				all, err := reg.List(ctx, commonModels.ListFilter{})
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.Equal(t, []string{"c.pdf", "b.pdf", "a.pdf"}, names(all))

				completed, err := reg.List(ctx, commonModels.ListFilter{Status: commonModels.StatusCompleted})
				require.NoError(t, err)
				assert.Equal(t, []string{"b.pdf"}, names(completed))

				paged, err := reg.List(ctx, commonModels.ListFilter{Limit: 1, Offset: 1})
				require.NoError(t, err)
				assert.Equal(t, []string{"b.pdf"}, names(paged))

				beyond, err := reg.List(ctx, commonModels.ListFilter{Offset: 10})
				require.NoError(t, err)
				assert.Empty(t, beyond)
			})

			t.Run("Stats", func(t *testing.T) {
				stats, err := reg.Stats(ctx)
				require.NoError(t, err)
				assert.Equal(t, commonModels.RegistryStats{TotalDocuments: 3, DocumentsWithEmbeddings: 1, TotalChunks: 17}, stats)
			})

			t.Run("Delete frees the file name", func(t *testing.T) {
				all, err := reg.List(ctx, commonModels.ListFilter{})
				require.NoError(t, err)
				target := all[0]

				ok, err := reg.Delete(ctx, target.Id)
				require.NoError(t, err)
				assert.True(t, ok)

				ok, err = reg.Delete(ctx, target.Id)
				require.NoError(t, err)
				assert.False(t, ok)

				_, found, err := reg.Get(ctx, target.Id)
				require.NoError(t, err)
				assert.False(t, found)

				id, existed, err := reg.Insert(ctx, document(target.FileName, base))
				require.NoError(t, err)
				assert.False(t, existed)
				assert.NotEqual(t, target.Id, id)
			})

			t.Run("Ping", func(t *testing.T) {
				assert.NoError(t, reg.Ping(ctx))
			})
		})
	}
}

func names(docs []commonModels.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.FileName
	}
	return out
}

func TestPage(t *testing.T) {
	base := time.Now()
	docs := []commonModels.Document{
		{Id: "1", UploadedAt: base, Status: commonModels.StatusFailed},
		{Id: "2", UploadedAt: base.Add(time.Second), Status: commonModels.StatusCompleted},
		{Id: "3", UploadedAt: base.Add(2 * time.Second), Status: commonModels.StatusCompleted},
	}
	got := page(docs, commonModels.ListFilter{Status: commonModels.StatusCompleted, Limit: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].Id)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.db")
	first, err := NewSQLite(path)
	require.NoError(t, err)
	id, _, err := first.Insert(context.Background(), document("kept.pdf", time.Now()))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLite(path)
	require.NoError(t, err)
	defer second.Close()
	doc, found, err := second.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "kept.pdf", doc.FileName)
}
