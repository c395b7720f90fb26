// Package whisper implements the asr.Listener against a Whisper-compatible
// transcription endpoint (whisper.cpp server, faster-whisper, or the
// whisper-asr-webservice). Audio is captured by an external recorder command
// (arecord, sox, ffmpeg) writing WAV to stdout, then uploaded as
// multipart/form-data.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/config"
)

// Listener records microphone audio and transcribes it remotely.
type Listener struct {
	endpoint   string
	language   string
	captureCmd []string
	captureDur time.Duration
	client     *http.Client
}

// New creates a Listener from config.
func New(cfg config.ASRConfig) *Listener {
	lang := cfg.Language
	if lang == "" {
		lang = "tr"
	}
	dur := time.Duration(cfg.CaptureSeconds) * time.Second
	if dur <= 0 {
		dur = 5 * time.Second
	}
	return &Listener{
		endpoint:   cfg.Endpoint,
		language:   lang,
		captureCmd: strings.Fields(cfg.CaptureCommand),
		captureDur: dur,
		client:     &http.Client{},
	}
}

// Listen captures one utterance and returns its lowercase transcript, or ""
// when the window contained no recognizable speech.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	audio, err := l.capture(ctx)
	if err != nil {
		return "", fmt.Errorf("capturing audio: %w", err)
	}
	if len(audio) == 0 {
		return "", nil
	}

	text, err := l.transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	text = strings.ToLower(strings.TrimSpace(text))
	slog.Debug("transcript received", "text_length", len(text))
	return text, nil
}

// capture runs the recorder command for the capture window and collects its
// stdout.
func (l *Listener) capture(ctx context.Context) ([]byte, error) {
	if len(l.captureCmd) == 0 {
		return nil, fmt.Errorf("no capture command configured")
	}

	captureCtx, cancel := context.WithTimeout(ctx, l.captureDur+2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(captureCtx, l.captureCmd[0], l.captureCmd[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		// Recorder commands bounded by -d/-t exit zero; a kill from the
		// timeout still leaves usable audio in the buffer.
		if captureCtx.Err() == nil {
			return nil, fmt.Errorf("recorder command: %w", err)
		}
	}
	return out.Bytes(), nil
}

// transcribe uploads WAV audio to the transcription endpoint.
// API shape: POST ?task=transcribe&language=tr&output=json with a
// multipart "audio_file" field, answered by {"text": "..."}.
func (l *Listener) transcribe(ctx context.Context, audio []byte) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio_file", "utterance.wav")
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(audio)); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}
	writer.Close()

	q := make(url.Values)
	q.Set("task", "transcribe")
	q.Set("output", "json")
	q.Set("language", l.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint+"?"+q.Encode(), body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("transcription failed (status %d): %s", resp.StatusCode, respBody)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return result.Text, nil
}

// Close is a no-op — requests are per-turn.
func (l *Listener) Close() error { return nil }
