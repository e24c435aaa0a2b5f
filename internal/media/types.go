package media

import "errors"

// Kind identifies the class of an inbound attachment and selects the analysis
// backend used to describe it. The set is closed; anything else is rejected
// before staging.
type Kind string

const (
	KindImage Kind = "image"
	KindVoice Kind = "voice"
	KindFile  Kind = "file"
)

// ErrUnsupportedKind reports a kind outside the closed enumeration. It signals
// a caller bug rather than bad user data and must not be retried.
var ErrUnsupportedKind = errors.New("unsupported media kind")

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindVoice, KindFile:
		return true
	}
	return false
}

// Context carries the correlation identifiers of the chat turn that submitted
// the attachment. The pipeline never interprets these; they flow through to
// the analysis backends and are folded into the cache key.
type Context struct {
	ProjectID      string `json:"project_id"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
}

// Metadata describes the analysed payload. Width and Height are populated for
// images only, Duration (seconds) for voice recordings only.
type Metadata struct {
	FileName string  `json:"file_name"`
	FileSize int64   `json:"file_size"`
	MimeType string  `json:"mime_type"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// Result is the normalized output of one analysis: the canonical textual
// summary plus the raw backend payload, untouched.
type Result struct {
	Text     string         `json:"text"`
	Metadata Metadata       `json:"metadata"`
	Analysis map[string]any `json:"analysis,omitempty"`
}

// File is an inbound attachment payload before staging.
type File struct {
	Bytes        []byte
	OriginalName string
}
