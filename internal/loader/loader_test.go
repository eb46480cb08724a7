package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nugget-pipeline/internal/loader"
	"github.com/nugget-pipeline/internal/mocks"
	"github.com/nugget-pipeline/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSeed = `{"title":"Cache Invalidation Patterns","topic":"Keeping caches honest","tags":["caching"]}`

func writeSeeds(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestSeedFiles(t *testing.T) {
	dir := writeSeeds(t, map[string]string{
		"b.json":        validSeed,
		"a.json":        validSeed,
		"TEMPLATE.json": validSeed,
		"notes.txt":     "not a seed",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	files, err := loader.SeedFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.json"), filepath.Join(dir, "b.json")}, files)
}

func TestLoadDir(t *testing.T) {
	dir := writeSeeds(t, map[string]string{
		"cache.json":    validSeed,
		"bad-tag.json":  `{"title":"Sourdough","topic":"bread","tags":["cooking"]}`,
		"broken.json":   `{"title":`,
		"TEMPLATE.json": `{"title":"Your title here","topic":"...","tags":["caching"]}`,
	})
	target := mocks.NewMockPipelineService()

	summary, err := loader.New(target, loader.Options{}, zerolog.Nop()).LoadDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Len(t, summary.Results, 3)

	idea, ok := target.Ideas["cache-invalidation-patterns"]
	require.True(t, ok)
	assert.Equal(t, models.IdeaStatusPending, idea.Status)
	assert.NotContains(t, target.Ideas, "your-title-here")

	for _, r := range summary.Results {
		if r.File == "bad-tag.json" {
			assert.Equal(t, loader.StatusFailed, r.Status)
			assert.Contains(t, r.Message, "cooking")
		}
	}
}

func TestLoadDir_SkipsExisting(t *testing.T) {
	dir := writeSeeds(t, map[string]string{"cache.json": validSeed})
	target := mocks.NewMockPipelineService()
	target.Ideas["cache-invalidation-patterns"] = &models.Idea{
		Slug:   "cache-invalidation-patterns",
		Status: models.IdeaStatusAwaitingReview,
	}

	summary, err := loader.New(target, loader.Options{}, zerolog.Nop()).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, models.IdeaStatusAwaitingReview, target.Ideas["cache-invalidation-patterns"].Status)

	summary, err = loader.New(target, loader.Options{Overwrite: true}, zerolog.Nop()).LoadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Loaded)
	assert.Equal(t, models.IdeaStatusPending, target.Ideas["cache-invalidation-patterns"].Status)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := loader.New(mocks.NewMockPipelineService(), loader.Options{}, zerolog.Nop()).
		LoadDir(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	target := mocks.NewMockPipelineService()
	l := loader.New(target, loader.Options{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan loader.FileResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, dir, func(r loader.FileResult) { results <- r })
	}()

	// Give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "TEMPLATE.json"), []byte(validSeed), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cache.json"), []byte(validSeed), 0o644))

	select {
	case r := <-results:
		assert.Equal(t, "cache.json", r.File)
		assert.Equal(t, loader.StatusLoaded, r.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the watcher to load the seed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher did not stop")
	}
}
