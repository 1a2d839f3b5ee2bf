package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"blac/config"
)

// CommandSource captures audio by running an external recorder and reading
// raw PCM from its stdout.
type CommandSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	closeOnce sync.Once
}

// NewCommandOpener returns an AudioOpener that runs commandLine, for
// example "arecord -q -f S16_LE -r 16000 -c 1 -t raw". The command must
// emit 16-bit mono PCM at the listener's sample rate.
func NewCommandOpener(commandLine string) AudioOpener {
	return func(ctx context.Context, sampleRate int) (AudioSource, error) {
		return StartCommandSource(ctx, commandLine)
	}
}

func StartCommandSource(ctx context.Context, commandLine string) (*CommandSource, error) {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty capture command")
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open capture pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdout = pw
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("failed to start %s: %w", fields[0], err)
	}
	// The child holds its own copy of the write end.
	pw.Close()

	config.Debugf("[Speech] capture started: %s (pid %d)", commandLine, cmd.Process.Pid)
	return &CommandSource{cmd: cmd, stdout: pr}, nil
}

func (s *CommandSource) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Close stops the recorder. Safe to call more than once.
func (s *CommandSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		// A killed recorder exits non-zero.
		_ = s.cmd.Wait()
		_ = s.stdout.Close()
	})
	return nil
}
