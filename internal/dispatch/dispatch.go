// Package dispatch routes a staged media file to the analysis backend for
// its kind and normalizes the heterogeneous backend outputs into one result
// shape.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mira/internal/capability"
	"mira/internal/media"
)

const (
	mimeImage = "image/png"
	mimeAudio = "audio/wav"
	mimeFile  = "application/octet-stream"
)

// analyzer produces the normalized result for exactly one media kind. The
// set of implementations is closed and built in full at construction, so an
// unrecognized kind can never reach a backend.
type analyzer interface {
	Analyze(ctx context.Context, staged stagedFile, mediaCtx media.Context) (*media.Result, error)
}

type stagedFile struct {
	path     string
	fileName string
	size     int64
}

// Dispatcher owns one analyzer per kind. It adds no retry policy of its own;
// a backend failure propagates unchanged.
type Dispatcher struct {
	analyzers map[media.Kind]analyzer
	logger    *slog.Logger
}

// New wires a dispatcher over the capability registry.
func New(registry *capability.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		analyzers: map[media.Kind]analyzer{
			media.KindImage: &imageAnalyzer{registry: registry, logger: logger},
			media.KindVoice: &voiceAnalyzer{registry: registry},
			media.KindFile:  &fileAnalyzer{registry: registry},
		},
		logger: logger,
	}
}

// Process analyzes the staged file as the declared kind. fileName is the
// original upload name, carried into metadata; the staged path stays private
// to processing.
func (d *Dispatcher) Process(ctx context.Context, kind media.Kind, stagedPath, fileName string, mediaCtx media.Context) (*media.Result, error) {
	a, ok := d.analyzers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", media.ErrUnsupportedKind, kind)
	}

	info, err := os.Stat(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	result, err := a.Analyze(ctx, stagedFile{path: stagedPath, fileName: fileName, size: info.Size()}, mediaCtx)
	if err != nil {
		return nil, err
	}

	// Token count of the canonical text lets downstream chat assembly budget
	// context without re-encoding. Failure to count is silent.
	if tokens := countTokens(result.Text); tokens > 0 {
		if result.Analysis == nil {
			result.Analysis = make(map[string]any)
		}
		result.Analysis["text_tokens"] = tokens
	}

	d.logger.Debug("media dispatched",
		slog.String("kind", string(kind)),
		slog.String("file", fileName),
		slog.Int64("bytes", info.Size()))
	return result, nil
}

// mergeAnalysis copies the backend's raw payload and layers the normalized
// fields on top of it.
func mergeAnalysis(raw map[string]any, fields map[string]any) map[string]any {
	merged := make(map[string]any, len(raw)+len(fields))
	for k, v := range raw {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
