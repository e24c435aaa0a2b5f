// Package openai adapts an OpenAI-compatible API into the three analysis
// capabilities consumed by the media pipeline: vision via chat completions
// with an image part, speech via the audio transcription endpoint, and
// document summarization via a plain completion.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"mira/internal/capability"
	"mira/internal/media"
)

const (
	defaultBaseURL            = "https://api.openai.com/v1"
	defaultVisionModel        = "gpt-4o-mini"
	defaultChatModel          = "gpt-4o-mini"
	defaultTranscriptionModel = "whisper-1"
	defaultTimeout            = 60 * time.Second

	// Documents are truncated before being sent for summarization so a large
	// upload cannot blow the prompt budget.
	maxDocumentPromptBytes = 16 * 1024
)

// Config customizes the adapter. Zero values fall back to OpenAI defaults.
type Config struct {
	BaseURL            string
	APIKey             string
	VisionModel        string
	ChatModel          string
	TranscriptionModel string
	Timeout            time.Duration
}

// Client implements capability.Vision, capability.Speech, and
// capability.Document against one OpenAI-compatible endpoint. It carries no
// retry policy: a backend failure propagates unchanged to the caller.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New builds a client from cfg.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.VisionModel == "" {
		cfg.VisionModel = defaultVisionModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = defaultTranscriptionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Register binds all three capabilities to reg.
func (c *Client) Register(reg *capability.Registry) error {
	if err := reg.Register(capability.NameVisionAnalyzeImage, c); err != nil {
		return err
	}
	if err := reg.Register(capability.NameSpeechTranscribeAudio, c); err != nil {
		return err
	}
	return reg.Register(capability.NameDocumentAnalyzeDocument, c)
}

// AnalyzeImage sends the staged file as a data URL inside a chat completion
// and returns the model's description.
func (c *Client) AnalyzeImage(ctx context.Context, path string, mediaCtx media.Context) (capability.ImageAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capability.ImageAnalysis{}, fmt.Errorf("read staged image: %w", err)
	}

	dataURL := "data:" + imageMediaType(path) + ";base64," + base64.StdEncoding.EncodeToString(data)
	body := map[string]any{
		"model": c.cfg.VisionModel,
		"user":  mediaCtx.UserID,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": "Describe this image for a chat transcript. Be concise and factual."},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	content, raw, err := c.complete(ctx, body)
	if err != nil {
		return capability.ImageAnalysis{}, fmt.Errorf("vision analyze: %w", err)
	}
	return capability.ImageAnalysis{Description: content, Raw: raw}, nil
}

// TranscribeAudio posts the staged file to the transcription endpoint and
// returns the transcript with its measured duration.
func (c *Client) TranscribeAudio(ctx context.Context, path string, mediaCtx media.Context) (capability.Transcription, error) {
	file, err := os.Open(path)
	if err != nil {
		return capability.Transcription{}, fmt.Errorf("open staged audio: %w", err)
	}
	defer func() { _ = file.Close() }()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return capability.Transcription{}, fmt.Errorf("build transcription form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return capability.Transcription{}, fmt.Errorf("copy staged audio: %w", err)
	}
	if err := form.WriteField("model", c.cfg.TranscriptionModel); err != nil {
		return capability.Transcription{}, fmt.Errorf("build transcription form: %w", err)
	}
	if err := form.WriteField("response_format", "verbose_json"); err != nil {
		return capability.Transcription{}, fmt.Errorf("build transcription form: %w", err)
	}
	if err := form.Close(); err != nil {
		return capability.Transcription{}, fmt.Errorf("build transcription form: %w", err)
	}

	respBody, err := c.post(ctx, "/audio/transcriptions", form.FormDataContentType(), &buf)
	if err != nil {
		return capability.Transcription{}, fmt.Errorf("speech transcribe: %w", err)
	}

	var parsed struct {
		Text     string  `json:"text"`
		Duration float64 `json:"duration"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return capability.Transcription{}, fmt.Errorf("speech transcribe: decode response: %w", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(respBody, &raw)
	return capability.Transcription{Text: parsed.Text, Duration: parsed.Duration, Raw: raw}, nil
}

// AnalyzeDocument summarizes the staged file's textual content.
func (c *Client) AnalyzeDocument(ctx context.Context, path string, mediaCtx media.Context) (capability.DocumentAnalysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capability.DocumentAnalysis{}, fmt.Errorf("read staged document: %w", err)
	}
	if len(data) > maxDocumentPromptBytes {
		data = data[:maxDocumentPromptBytes]
	}

	excerpt := strings.ToValidUTF8(string(data), "")
	body := map[string]any{
		"model": c.cfg.ChatModel,
		"user":  mediaCtx.UserID,
		"messages": []map[string]any{
			{
				"role":    "system",
				"content": "Summarize the user-provided document excerpt in a few sentences for a chat transcript.",
			},
			{
				"role":    "user",
				"content": excerpt,
			},
		},
	}

	content, raw, err := c.complete(ctx, body)
	if err != nil {
		return capability.DocumentAnalysis{}, fmt.Errorf("document analyze: %w", err)
	}
	return capability.DocumentAnalysis{Summary: content, Raw: raw}, nil
}

// complete posts a chat completion request and returns the first choice's
// content plus the model/usage fields as a raw payload.
func (c *Client) complete(ctx context.Context, body map[string]any) (string, map[string]any, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", nil, fmt.Errorf("marshal request: %w", err)
	}

	respBody, err := c.post(ctx, "/chat/completions", "application/json", bytes.NewReader(encoded))
	if err != nil {
		return "", nil, err
	}

	var parsed struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil, fmt.Errorf("empty completion response")
	}

	raw := map[string]any{
		"model": parsed.Model,
		"usage": map[string]any{
			"prompt_tokens":     parsed.Usage.PromptTokens,
			"completion_tokens": parsed.Usage.CompletionTokens,
			"total_tokens":      parsed.Usage.TotalTokens,
		},
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), raw, nil
}

func (c *Client) post(ctx context.Context, endpoint, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("backend request failed",
			slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("backend returned %d: %s", resp.StatusCode, trimBody(respBody))
	}
	return respBody, nil
}

func trimBody(body []byte) string {
	const limit = 512
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}

func imageMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
