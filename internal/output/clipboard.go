// Package output applies transcript side effects: clipboard copies and
// plain-text file exports.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/atotto/clipboard"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies text with a configured command, or the native clipboard
// when Argv is empty.
type Clipboard struct {
	Argv   []string
	Logger *slog.Logger

	native func(string) error
}

// NewClipboard constructs a clipboard writer. argv receives the text on stdin.
func NewClipboard(argv []string, logger *slog.Logger) *Clipboard {
	return &Clipboard{Argv: argv, Logger: logger, native: clipboard.WriteAll}
}

// Copy writes text to the clipboard.
func (c *Clipboard) Copy(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()

	if len(c.Argv) > 0 {
		if err := runCommandWithInput(ctx, c.Argv, text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		return nil
	}

	native := c.native
	if native == nil {
		native = clipboard.WriteAll
	}
	if clipboard.Unsupported && c.native == nil {
		return errors.New("set clipboard: no clipboard utility available")
	}

	done := make(chan error, 1)
	go func() { done <- native(text) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		return nil
	case <-ctx.Done():
		if c.Logger != nil {
			c.Logger.Warn("native clipboard write timed out")
		}
		return fmt.Errorf("set clipboard: %w", ctx.Err())
	}
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
