package dispatch

import (
	"context"
	"image"
	"log/slog"
	"os"

	// Registered so image.DecodeConfig can probe the common chat formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"mira/internal/capability"
	"mira/internal/media"
)

type imageAnalyzer struct {
	registry *capability.Registry
	logger   *slog.Logger
}

func (a *imageAnalyzer) Analyze(ctx context.Context, staged stagedFile, mediaCtx media.Context) (*media.Result, error) {
	vision, err := a.registry.Vision()
	if err != nil {
		return nil, err
	}

	// The dimension probe is best-effort; the backend's description is the
	// authoritative output even when the format is not decodable locally.
	width, height := a.probeDimensions(staged.path)

	analysis, err := vision.AnalyzeImage(ctx, staged.path, mediaCtx)
	if err != nil {
		return nil, err
	}

	return &media.Result{
		Text: analysis.Description,
		Metadata: media.Metadata{
			FileName: staged.fileName,
			FileSize: staged.size,
			MimeType: mimeImage,
			Width:    width,
			Height:   height,
		},
		Analysis: mergeAnalysis(analysis.Raw, map[string]any{
			"description": analysis.Description,
		}),
	}, nil
}

func (a *imageAnalyzer) probeDimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		a.logger.Debug("image dimension probe failed", slog.String("error", err.Error()))
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

type voiceAnalyzer struct {
	registry *capability.Registry
}

func (a *voiceAnalyzer) Analyze(ctx context.Context, staged stagedFile, mediaCtx media.Context) (*media.Result, error) {
	speech, err := a.registry.Speech()
	if err != nil {
		return nil, err
	}

	transcription, err := speech.TranscribeAudio(ctx, staged.path, mediaCtx)
	if err != nil {
		return nil, err
	}

	return &media.Result{
		Text: transcription.Text,
		Metadata: media.Metadata{
			FileName: staged.fileName,
			FileSize: staged.size,
			MimeType: mimeAudio,
			Duration: transcription.Duration,
		},
		Analysis: mergeAnalysis(transcription.Raw, map[string]any{
			"transcript": transcription.Text,
			"duration":   transcription.Duration,
		}),
	}, nil
}

type fileAnalyzer struct {
	registry *capability.Registry
}

func (a *fileAnalyzer) Analyze(ctx context.Context, staged stagedFile, mediaCtx media.Context) (*media.Result, error) {
	document, err := a.registry.Document()
	if err != nil {
		return nil, err
	}

	analysis, err := document.AnalyzeDocument(ctx, staged.path, mediaCtx)
	if err != nil {
		return nil, err
	}

	return &media.Result{
		Text: analysis.Summary,
		Metadata: media.Metadata{
			FileName: staged.fileName,
			FileSize: staged.size,
			MimeType: mimeFile,
		},
		Analysis: mergeAnalysis(analysis.Raw, map[string]any{
			"summary": analysis.Summary,
		}),
	}, nil
}
