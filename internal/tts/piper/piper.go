// Package piper implements tts.Speaker against a Piper Wyoming protocol
// server and a local audio player.
//
// Piper is a fast local neural TTS; the linuxserver/piper container exposes
// the Wyoming protocol on TCP port 10200. Synthesized PCM is wrapped in a
// WAV container and piped to the configured player command (aplay, paplay,
// ffplay) on stdin.
//
// Wyoming protocol format (per event):
//
//	<json_length> <payload_length>\n
//	<json_bytes>\n
//	<payload_bytes>   (if payload_length > 0)
package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sudeakyildz/sesli-asistan/internal/config"
)

// defaultVoice is a Turkish Piper voice model.
const defaultVoice = "tr_TR-fettah-medium"

// Speaker implements tts.Speaker using the Wyoming protocol.
type Speaker struct {
	endpoint  string
	voice     string
	playerCmd []string
}

// New creates a Piper speaker from config.
func New(cfg config.PiperConfig) *Speaker {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "tcp://")
	voice := cfg.Voice
	if voice == "" {
		voice = defaultVoice
	}
	player := strings.Fields(cfg.PlayerCommand)
	if len(player) == 0 {
		player = []string{"aplay", "-q", "-"}
	}
	return &Speaker{endpoint: endpoint, voice: voice, playerCmd: player}
}

// Speak synthesizes the text and plays the result, blocking until the
// player exits.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	wav, err := s.synthesize(ctx, text)
	if err != nil {
		return err
	}
	return s.play(ctx, wav)
}

// synthesize sends one synthesize event and collects the audio chunk stream.
func (s *Speaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured")
	}

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	synth := wyomingEvent{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": s.voice},
		},
	}
	if err := writeEvent(conn, synth, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	var (
		pcm        bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)
	for {
		evt, payload, err := readEvent(conn)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}
		switch evt.Type {
		case "audio-start":
			if v, ok := evt.Data["rate"].(float64); ok {
				sampleRate = int(v)
			}
			if v, ok := evt.Data["channels"].(float64); ok {
				channels = int(v)
			}
			if v, ok := evt.Data["width"].(float64); ok {
				width = int(v)
			}
		case "audio-chunk":
			pcm.Write(payload)
		case "audio-stop":
			slog.Debug("piper synthesis complete", "pcm_bytes", pcm.Len(), "rate", sampleRate)
			return pcmToWAV(pcm.Bytes(), sampleRate, channels, width), nil
		case "error":
			msg := "unknown error"
			if v, ok := evt.Data["text"].(string); ok {
				msg = v
			}
			return nil, fmt.Errorf("piper error: %s", msg)
		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

// play pipes the WAV to the player command's stdin and waits for it.
func (s *Speaker) play(ctx context.Context, wav []byte) error {
	cmd := exec.CommandContext(ctx, s.playerCmd[0], s.playerCmd[1:]...)
	cmd.Stdin = bytes.NewReader(wav)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player command: %w", err)
	}
	return nil
}

// Close is a no-op — connections are per-request.
func (s *Speaker) Close() error { return nil }

// --- Wyoming protocol helpers ---

type wyomingEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// writeEvent sends a Wyoming event over the connection.
func writeEvent(w io.Writer, evt wyomingEvent, payload []byte) error {
	jsonBytes, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	header := fmt.Sprintf("%d %d\n", len(jsonBytes), len(payload))
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return err
		}
	}
	return nil
}

// readEvent reads one Wyoming event. The header line carries the JSON and
// payload lengths.
func readEvent(r io.Reader) (*wyomingEvent, []byte, error) {
	header, err := readLine(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("invalid wyoming header: %q", header)
	}
	jsonLen, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing json_length: %w", err)
	}
	payloadLen, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing payload_length: %w", err)
	}

	jsonBuf := make([]byte, jsonLen+1) // +1 for the trailing \n
	if _, err := io.ReadFull(r, jsonBuf); err != nil {
		return nil, nil, fmt.Errorf("reading json: %w", err)
	}
	var evt wyomingEvent
	if err := json.Unmarshal(jsonBuf[:jsonLen], &evt); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling event: %w", err)
	}

	var payload []byte
	if payloadLen > 0 {
		payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, nil, fmt.Errorf("reading payload: %w", err)
		}
	}
	return &evt, payload, nil
}

// readLine reads bytes until '\n' without buffering past it — the payload
// that follows must stay in the stream.
func readLine(r io.Reader) (string, error) {
	var line []byte
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return "", err
		}
		if one[0] == '\n' {
			return string(line), nil
		}
		line = append(line, one[0])
	}
}

// pcmToWAV wraps raw PCM in a 44-byte WAV header.
func pcmToWAV(pcm []byte, sampleRate, channels, bytesPerSample int) []byte {
	buf := &bytes.Buffer{}
	buf.Grow(44 + len(pcm))

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bytesPerSample))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bytesPerSample*8))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
