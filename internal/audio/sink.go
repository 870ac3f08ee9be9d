package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
)

// Sink produces sound for a clip.
type Sink interface {
	// Start begins playing the clip and returns once playback is running.
	// Canceling ctx stops the playback.
	Start(ctx context.Context, clip Clip) (Stream, error)
}

// Stream is a running playback.
type Stream interface {
	// Wait blocks until the clip finished or was stopped.
	Wait() error
}

var (
	// errNoClipFile is returned when a command sink is asked to play an unmaterialized clip.
	errNoClipFile = errors.New("clip has no file")
	// errNoTones is returned when the beeper is asked to play a clip without tones.
	errNoTones = errors.New("clip has no tones")
)

// CommandSink plays clip files with an OS audio player.
type CommandSink struct {
	// command is the player executable.
	command string
	// args are placed before the file path.
	args []string
}

// NewCommandSink creates a sink running command with the given base arguments.
func NewCommandSink(command string, args ...string) *CommandSink {
	return &CommandSink{
		command: command,
		args:    args,
	}
}

// Start launches the player process for the clip's file.
//
//nolint:ireturn // Stream hides *exec.Cmd and the beeper stream behind one type.
func (s *CommandSink) Start(ctx context.Context, clip Clip) (Stream, error) {
	if clip.Path == "" {
		return nil, fmt.Errorf("%w: %s", errNoClipFile, clip.Name)
	}

	cmd := exec.CommandContext(ctx, s.command, s.buildArgs(clip)...) //nolint:gosec // Player is detected or configured.
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", s.command, err)
	}

	return cmd, nil
}

// String names the player for logs.
func (s *CommandSink) String() string {
	return s.command
}

// paplayFullVolume is paplay's unamplified volume.
const paplayFullVolume = 65536

// buildArgs constructs player arguments in a new slice. A user-supplied file
// gets the clip volume when the player takes one.
func (s *CommandSink) buildArgs(clip Clip) []string {
	if isPowerShell(s.command) {
		path := strings.ReplaceAll(clip.Path, "'", "''")
		return []string{"-c", fmt.Sprintf("(New-Object System.Media.SoundPlayer '%s').PlaySync()", path)}
	}

	args := make([]string, 0, len(s.args)+3)
	args = append(args, s.args...)

	if clip.External {
		args = append(args, volumeArgs(s.command, clip.Volume)...)
	}

	return append(args, clip.Path)
}

// volumeArgs returns the flags setting volume for players that support one.
// Full or unset volume needs no flag.
func volumeArgs(command string, volume float64) []string {
	if volume <= 0 || volume >= 1 {
		return nil
	}

	switch strings.TrimSuffix(strings.ToLower(filepath.Base(command)), ".exe") {
	case "paplay":
		return []string{"--volume=" + strconv.Itoa(int(volume*paplayFullVolume))}
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64)}
	case "mpv":
		return []string{"--volume=" + strconv.Itoa(int(volume*100))}
	default:
		return nil
	}
}

// BeepSink plays a clip's tones on the system beeper.
type BeepSink struct {
	// beep emits one tone; replaced in tests.
	beep func(frequency float64, durationMs int) error
}

// NewBeepSink creates a beeper-backed sink.
func NewBeepSink() *BeepSink {
	return &BeepSink{beep: beeep.Beep}
}

// beepStream is a tone sequence played in the background.
type beepStream struct {
	// done receives the playback result once.
	done chan error
}

// Wait blocks until the tone sequence ends.
func (s *beepStream) Wait() error {
	return <-s.done
}

// Start plays the tones in a goroutine, checking ctx between tones.
//
//nolint:ireturn // See CommandSink.Start.
func (s *BeepSink) Start(ctx context.Context, clip Clip) (Stream, error) {
	if len(clip.Tones) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoTones, clip.Name)
	}

	stream := &beepStream{done: make(chan error, 1)}

	go func() {
		stream.done <- s.play(ctx, clip.Tones)
	}()

	return stream, nil
}

// String names the sink for logs.
func (s *BeepSink) String() string {
	return "beeper"
}

// play emits tones one after another; rests are plain waits.
func (s *BeepSink) play(ctx context.Context, tones []Tone) error {
	for _, tone := range tones {
		if err := ctx.Err(); err != nil {
			return err
		}

		if tone.Frequency == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(tone.Duration):
			}

			continue
		}

		if err := s.beep(tone.Frequency, int(tone.Duration/time.Millisecond)); err != nil {
			return fmt.Errorf("beep: %w", err)
		}
	}

	return nil
}

// DetectSink returns a sink for the configured player or the first player found on this platform.
// The beeper is the fallback when no player exists.
//
//nolint:ireturn // Callers only need the Sink behavior.
func DetectSink(player string) Sink {
	if fields := strings.Fields(player); len(fields) > 0 {
		return NewCommandSink(fields[0], fields[1:]...)
	}

	if cmd, args := detectAudioCommand(); cmd != "" {
		return NewCommandSink(cmd, args...)
	}

	return NewBeepSink()
}

// detectAudioCommand returns the audio command and base arguments for the current platform.
func detectAudioCommand() (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		if path, err := exec.LookPath("afplay"); err == nil {
			return path, nil
		}
	case "linux":
		// Prefer PulseAudio, fall back to ALSA.
		if path, err := exec.LookPath("paplay"); err == nil {
			return path, nil
		}

		if path, err := exec.LookPath("aplay"); err == nil {
			return path, []string{"-q"}
		}
	case "windows":
		if path, err := exec.LookPath("powershell.exe"); err == nil {
			return path, nil
		}
	}

	return "", nil
}

// isPowerShell reports whether command is PowerShell, which needs the path inside a script.
func isPowerShell(command string) bool {
	return strings.HasPrefix(strings.ToLower(filepath.Base(command)), "powershell")
}
