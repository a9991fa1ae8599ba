// Package transcribe converts WhatsApp voice notes to text using the OpenAI
// Whisper API.
package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Transcriber converts an audio payload to text. Implementations return an
// error when the audio cannot be understood; the caller decides how to reply
// to the customer.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
}

// Whisper implements Transcriber over the OpenAI audio transcription API.
type Whisper struct {
	client openai.Client
}

// NewWhisper initializes a Whisper transcriber. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewWhisper(apiKey string) (*Whisper, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &Whisper{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Transcribe sends the audio to Whisper, hinting Brazilian Portuguese since
// that is what customers speak.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio payload")
	}

	resp, err := w.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:    openai.AudioModelWhisper1,
		File:     openai.File(bytes.NewReader(audio), fileNameFor(contentType), contentType),
		Language: openai.String("pt"),
	})
	if err != nil {
		slog.Error("Whisper.Transcribe failed", "error", err, "bytes", len(audio))
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("transcription returned no text")
	}
	slog.Debug("Whisper.Transcribe succeeded", "chars", len(text))
	return text, nil
}

// fileNameFor picks a filename extension the API recognizes. WhatsApp voice
// notes arrive as OGG/Opus.
func fileNameFor(contentType string) string {
	switch {
	case strings.Contains(contentType, "ogg"):
		return "voice-note.ogg"
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return "voice-note.mp3"
	case strings.Contains(contentType, "wav"):
		return "voice-note.wav"
	default:
		return "voice-note.ogg"
	}
}

// Mock is a canned Transcriber for tests.
type Mock struct {
	Text string
	Err  error
}

func (m *Mock) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}
