package tui

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// copyText pipes text into the clipboard command.
func copyText(text, command string) error {
	if command == "" {
		command = detectClipboardCommand()
	}
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return fmt.Errorf("no clipboard command available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := exec.CommandContext(ctx, parts[0], parts[1:]...)
	c.Stdin = strings.NewReader(text)
	return c.Run()
}

// detectClipboardCommand picks wl-copy on Wayland, then the X11 tools.
func detectClipboardCommand() string {
	if _, err := exec.LookPath("wl-copy"); err == nil {
		return "wl-copy"
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return "xclip -selection clipboard"
	}
	if _, err := exec.LookPath("xsel"); err == nil {
		return "xsel --clipboard --input"
	}
	return ""
}
