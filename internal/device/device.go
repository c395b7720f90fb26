// Package device adjusts system volume and screen brightness through
// configurable shell commands (amixer, pactl, brightnessctl and friends).
// The assistant reports the returned status text to the user verbatim.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Kind selects the parameter being adjusted.
type Kind string

const (
	Volume     Kind = "volume"
	Brightness Kind = "brightness"
)

// Controller adjusts a device parameter by a signed step.
type Controller interface {
	// Adjust applies the delta and returns a short spoken status text.
	Adjust(ctx context.Context, kind Kind, delta int) (string, error)
}

// Commands implements Controller by running configured commands. Each
// command may contain a {step} placeholder replaced with the absolute delta.
type Commands struct {
	VolumeUp       string
	VolumeDown     string
	BrightnessUp   string
	BrightnessDown string
}

// Adjust picks the command for the kind and direction, substitutes the step,
// and runs it through the shell.
func (c *Commands) Adjust(ctx context.Context, kind Kind, delta int) (string, error) {
	var command, status string
	switch {
	case kind == Volume && delta > 0:
		command, status = c.VolumeUp, "Sesi artırıyorum."
	case kind == Volume && delta < 0:
		command, status = c.VolumeDown, "Sesi azaltıyorum."
	case kind == Brightness && delta > 0:
		command, status = c.BrightnessUp, "Parlaklığı artırıyorum."
	case kind == Brightness && delta < 0:
		command, status = c.BrightnessDown, "Parlaklığı azaltıyorum."
	default:
		return "", fmt.Errorf("no adjustment for %s delta %d", kind, delta)
	}
	if command == "" {
		return fmt.Sprintf("%s ayarı için komut yapılandırılmamış.", kind), nil
	}

	step := delta
	if step < 0 {
		step = -step
	}
	command = strings.ReplaceAll(command, "{step}", strconv.Itoa(step))

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(runCtx, "sh", "-c", command).CombinedOutput()
	if err != nil {
		slog.Warn("device command failed", "kind", kind, "error", err, "output", string(out))
		return "", fmt.Errorf("device command %q: %w", command, err)
	}
	slog.Debug("device adjusted", "kind", kind, "delta", delta)
	return status, nil
}
