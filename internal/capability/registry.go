package capability

import (
	"fmt"
	"sync"
)

// Registry maps capability names to their implementations. Lookups a caller
// depends on go through the typed accessors so a misregistered implementation
// surfaces as an error instead of a panic.
type Registry struct {
	mu   sync.RWMutex
	caps map[string]any
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]any)}
}

// Register binds name to impl. Registering the same name twice is an error.
func (r *Registry) Register(name string, impl any) error {
	if name == "" {
		return fmt.Errorf("capability name is required")
	}
	if impl == nil {
		return fmt.Errorf("capability %s: implementation is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[name]; exists {
		return fmt.Errorf("capability already exists: %s", name)
	}
	r.caps[name] = impl
	return nil
}

// Vision resolves the image analysis backend.
func (r *Registry) Vision() (Vision, error) {
	impl, err := r.lookup(NameVisionAnalyzeImage)
	if err != nil {
		return nil, err
	}
	vision, ok := impl.(Vision)
	if !ok {
		return nil, fmt.Errorf("capability %s does not implement Vision", NameVisionAnalyzeImage)
	}
	return vision, nil
}

// Speech resolves the audio transcription backend.
func (r *Registry) Speech() (Speech, error) {
	impl, err := r.lookup(NameSpeechTranscribeAudio)
	if err != nil {
		return nil, err
	}
	speech, ok := impl.(Speech)
	if !ok {
		return nil, fmt.Errorf("capability %s does not implement Speech", NameSpeechTranscribeAudio)
	}
	return speech, nil
}

// Document resolves the document analysis backend.
func (r *Registry) Document() (Document, error) {
	impl, err := r.lookup(NameDocumentAnalyzeDocument)
	if err != nil {
		return nil, err
	}
	document, ok := impl.(Document)
	if !ok {
		return nil, fmt.Errorf("capability %s does not implement Document", NameDocumentAnalyzeDocument)
	}
	return document, nil
}

func (r *Registry) lookup(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	impl, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("capability not found: %s", name)
	}
	return impl, nil
}
