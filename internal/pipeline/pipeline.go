// Package pipeline composes key derivation, the cache store, temp staging,
// and the media dispatcher into one request/response cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"mira/internal/cache"
	"mira/internal/dispatch"
	"mira/internal/media"
	"mira/internal/staging"
)

// Pipeline is the public entry point for media processing. Construct one per
// process and share it by reference.
type Pipeline struct {
	cache      *cache.Store
	stager     *staging.Stager
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger

	// Concurrent misses for the same content address are coalesced so only
	// one backend dispatch runs; waiters share its result.
	group singleflight.Group
}

// New wires the pipeline. The cache store must already be initialized.
func New(store *cache.Store, stager *staging.Stager, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		cache:      store,
		stager:     stager,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// ProcessMedia converts an attachment into its textual representation plus
// metadata. Identical content, kind, and context within the cache TTL is
// served from the store without staging or a backend call.
//
// A kind outside the closed set fails with media.ErrUnsupportedKind before
// anything is staged or the cache is touched.
func (p *Pipeline) ProcessMedia(ctx context.Context, file media.File, kind media.Kind, mediaCtx media.Context) (*media.Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", media.ErrUnsupportedKind, kind)
	}

	key := cache.Key(file.Bytes, kind, mediaCtx)
	if entry, ok := p.cache.Get(key); ok {
		p.logger.Debug("media cache hit",
			slog.String("key", shortKey(key)), slog.String("kind", string(kind)))
		return &media.Result{Text: entry.Text, Metadata: entry.Metadata, Analysis: entry.Analysis}, nil
	}

	value, err, shared := p.group.Do(key, func() (any, error) {
		return p.analyze(ctx, key, file, kind, mediaCtx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("media dispatch coalesced", slog.String("key", shortKey(key)))
	}
	return value.(*media.Result), nil
}

// analyze runs the miss path: stage, dispatch, best-effort persist. The
// staged file is released exactly once on every exit, including backend
// failure and caller cancellation surfacing as a dispatch error.
func (p *Pipeline) analyze(ctx context.Context, key string, file media.File, kind media.Kind, mediaCtx media.Context) (*media.Result, error) {
	path, err := p.stager.Stage(file.Bytes, filepath.Ext(file.OriginalName))
	if err != nil {
		return nil, fmt.Errorf("stage media: %w", err)
	}
	defer func() {
		if err := p.stager.Release(path); err != nil {
			p.logger.Warn("release staged file",
				slog.String("path", path), slog.String("error", err.Error()))
		}
	}()

	result, err := p.dispatcher.Process(ctx, kind, path, file.OriginalName, mediaCtx)
	if err != nil {
		return nil, err
	}

	entry := cache.Entry{
		Text:      result.Text,
		Metadata:  result.Metadata,
		Analysis:  result.Analysis,
		Timestamp: time.Now(),
	}
	if err := p.cache.Set(key, entry); err != nil {
		// Memoization is advisory; the computed result is authoritative.
		p.logger.Warn("media cache write failed",
			slog.String("key", shortKey(key)), slog.String("error", err.Error()))
	}

	return result, nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
