// Package capability defines the analysis backends the media pipeline
// consumes and the registry they are looked up from. The backends themselves
// are external collaborators; this package only names their contracts.
package capability

import (
	"context"

	"mira/internal/media"
)

// Registry names follow the agent convention <domain>.<operation>.
const (
	NameVisionAnalyzeImage      = "vision.analyze_image"
	NameSpeechTranscribeAudio   = "speech.transcribe_audio"
	NameDocumentAnalyzeDocument = "document.analyze_document"
)

// ImageAnalysis is the vision backend's view of an image. Raw carries the
// backend-specific payload untouched.
type ImageAnalysis struct {
	Description string
	Raw         map[string]any
}

// Transcription is the speech backend's view of a voice recording. Duration
// is in seconds.
type Transcription struct {
	Text     string
	Duration float64
	Raw      map[string]any
}

// DocumentAnalysis is the document backend's view of an arbitrary file.
type DocumentAnalysis struct {
	Summary string
	Raw     map[string]any
}

// Vision describes an image on disk.
type Vision interface {
	AnalyzeImage(ctx context.Context, path string, mediaCtx media.Context) (ImageAnalysis, error)
}

// Speech transcribes a voice recording on disk.
type Speech interface {
	TranscribeAudio(ctx context.Context, path string, mediaCtx media.Context) (Transcription, error)
}

// Document summarizes an arbitrary file on disk.
type Document interface {
	AnalyzeDocument(ctx context.Context, path string, mediaCtx media.Context) (DocumentAnalysis, error)
}
