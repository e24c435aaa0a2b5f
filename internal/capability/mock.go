package capability

import (
	"context"
	"path/filepath"
	"sync"

	"mira/internal/media"
)

// MockVision implements Vision for tests and offline runs. No backend is
// contacted; the configured description (or a canned one) is returned.
type MockVision struct {
	Description string
	Err         error

	mu    sync.Mutex
	calls int
}

func (m *MockVision) AnalyzeImage(ctx context.Context, path string, mediaCtx media.Context) (ImageAnalysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return ImageAnalysis{}, m.Err
	}
	description := m.Description
	if description == "" {
		description = "This is a mock image description. No analysis backend was called."
	}
	return ImageAnalysis{
		Description: description,
		Raw: map[string]any{
			"model": "mock-vision",
			"file":  filepath.Base(path),
		},
	}, nil
}

// Calls reports how many times AnalyzeImage ran.
func (m *MockVision) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockSpeech implements Speech for tests and offline runs.
type MockSpeech struct {
	Text     string
	Duration float64
	Err      error

	mu    sync.Mutex
	calls int
}

func (m *MockSpeech) TranscribeAudio(ctx context.Context, path string, mediaCtx media.Context) (Transcription, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return Transcription{}, m.Err
	}
	text := m.Text
	if text == "" {
		text = "This is a mock transcript. No analysis backend was called."
	}
	duration := m.Duration
	if duration == 0 {
		duration = 4.2
	}
	return Transcription{
		Text:     text,
		Duration: duration,
		Raw: map[string]any{
			"model": "mock-speech",
			"file":  filepath.Base(path),
		},
	}, nil
}

// Calls reports how many times TranscribeAudio ran.
func (m *MockSpeech) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockDocument implements Document for tests and offline runs.
type MockDocument struct {
	Summary string
	Err     error

	mu    sync.Mutex
	calls int
}

func (m *MockDocument) AnalyzeDocument(ctx context.Context, path string, mediaCtx media.Context) (DocumentAnalysis, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.Err != nil {
		return DocumentAnalysis{}, m.Err
	}
	summary := m.Summary
	if summary == "" {
		summary = "This is a mock document summary. No analysis backend was called."
	}
	return DocumentAnalysis{
		Summary: summary,
		Raw: map[string]any{
			"model": "mock-document",
			"file":  filepath.Base(path),
		},
	}, nil
}

// Calls reports how many times AnalyzeDocument ran.
func (m *MockDocument) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// RegisterMocks fills reg with the three mock backends.
func RegisterMocks(reg *Registry) error {
	if err := reg.Register(NameVisionAnalyzeImage, &MockVision{}); err != nil {
		return err
	}
	if err := reg.Register(NameSpeechTranscribeAudio, &MockSpeech{}); err != nil {
		return err
	}
	return reg.Register(NameDocumentAnalyzeDocument, &MockDocument{})
}
