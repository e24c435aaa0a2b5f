package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mira/internal/cache"
	"mira/internal/capability"
	"mira/internal/dispatch"
	"mira/internal/media"
	"mira/internal/staging"
)

// slowVision delays long enough for concurrent misses to overlap.
type slowVision struct {
	delay time.Duration

	mu    sync.Mutex
	calls int
}

func (s *slowVision) AnalyzeImage(ctx context.Context, path string, mediaCtx media.Context) (capability.ImageAnalysis, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return capability.ImageAnalysis{}, ctx.Err()
	}
	return capability.ImageAnalysis{Description: "slow but steady"}, nil
}

func (s *slowVision) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	store, err := cache.New(t.TempDir(), time.Hour, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	stager, err := staging.New(t.TempDir(), nil)
	require.NoError(t, err)

	vision := &slowVision{delay: 50 * time.Millisecond}
	reg := capability.NewRegistry()
	require.NoError(t, reg.Register(capability.NameVisionAnalyzeImage, vision))

	p := New(store, stager, dispatch.New(reg, nil), nil)
	file := media.File{Bytes: []byte("stampede"), OriginalName: "pic.png"}
	pctx := media.Context{ConversationID: "c1"}

	const workers = 8
	var wg sync.WaitGroup
	results := make([]*media.Result, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.ProcessMedia(context.Background(), file, media.KindImage, pctx)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "slow but steady", results[i].Text)
	}
	assert.Equal(t, 1, vision.Calls(), "identical concurrent misses share one dispatch")
}
