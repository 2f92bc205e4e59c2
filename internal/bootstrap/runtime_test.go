package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contentstudio/internal/domain"
	"contentstudio/internal/infra"
	"contentstudio/internal/queue"
)

func memoryConfig(t *testing.T) *infra.Config {
	return &infra.Config{
		StoreBackend:      "memory",
		QueueBackend:      "memory",
		QueueName:         "content_generation",
		QueueBuffer:       8,
		WorkerConcurrency: 2,
		ScriptProvider:    "static",
		StoragePath:       t.TempDir(),
		StorageBaseURL:    "http://localhost:8080/static",
		StepTimeout:       5 * time.Second,
		MaxRunDuration:    30 * time.Minute,
	}
}

func TestRuntimeRunsQueuedContentToCompletion(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := New(ctx, memoryConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer rt.Close()

	orch, err := rt.Orchestrator()
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := rt.RunWorkers(ctx, orch)
		assert.True(t, err == nil || errors.Is(err, context.Canceled), "unexpected worker error: %v", err)
	}()

	rec, err := rt.Store.Create(ctx, domain.ContentConfig{
		Title:          "Tidepools",
		Description:    "Life between the tides",
		TargetAudience: "students",
		Duration:       45,
		Style:          "Educational",
		SceneAmount:    2,
		Services: domain.Services{
			ContentGeneration: true,
			ImageGeneration:   true,
			VoiceGeneration:   true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, rt.Queue.Enqueue(ctx, queue.NewTask(rec.ID)))

	require.Eventually(t, func() bool {
		got, err := rt.Store.Get(ctx, rec.ID)
		return err == nil && got.Status.Terminal()
	}, 5*time.Second, 20*time.Millisecond)

	got, err := rt.Store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.ProgressPercentage)
	require.NotNil(t, got.GeneratedContent)
	require.NotNil(t, got.GeneratedPicture)
	assert.Contains(t, *got.GeneratedPicture, "http://localhost:8080/static/")
	assert.Nil(t, got.GeneratedMusic)

	cancel()
	wg.Wait()
}

func TestRuntimeWithoutDependenciesHasNoChecks(t *testing.T) {
	rt, err := New(context.Background(), memoryConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer rt.Close()

	assert.Empty(t, rt.Checks)
	assert.NotNil(t, rt.Reaper())
	_, ok := rt.Queue.(*queue.MemoryQueue)
	assert.True(t, ok)
}
