// Package clipboard shims the system clipboard behind a small provider
// interface so commands stay testable with fakes.
package clipboard

import (
	"bytes"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// Provider abstracts clipboard access.
type Provider interface {
	// ReadText returns the clipboard text, empty if none.
	ReadText() (string, error)
	// WriteText replaces the clipboard contents with s.
	WriteText(s string) error
	// ReadImage returns PNG bytes from the clipboard.
	ReadImage() ([]byte, error)
}

// System is the real clipboard. Text goes through atotto/clipboard; image
// reads shell out to the platform paste tool, since the text bridge cannot
// carry binary data.
type System struct{}

var _ Provider = System{}

func (System) ReadText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return text, nil
}

func (System) WriteText(s string) error {
	if err := clipboard.WriteAll(s); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// imagePasteCommands lists candidate paste tools per OS, tried in order.
func imagePasteCommands() ([][]string, error) {
	switch runtime.GOOS {
	case "darwin":
		return [][]string{{"pngpaste", "-"}}, nil
	case "linux":
		return [][]string{
			{"wl-paste", "--type", "image/png"},
			{"xclip", "-selection", "clipboard", "-t", "image/png", "-o"},
		}, nil
	default:
		return nil, fmt.Errorf("image clipboard is not supported on %s", runtime.GOOS)
	}
}

func (System) ReadImage() ([]byte, error) {
	candidates, err := imagePasteCommands()
	if err != nil {
		return nil, err
	}

	var tried []string
	for _, argv := range candidates {
		if _, err := exec.LookPath(argv[0]); err != nil {
			tried = append(tried, argv[0])
			continue
		}
		var out bytes.Buffer
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("no image on clipboard (%s failed): %w", argv[0], err)
		}
		if out.Len() == 0 {
			return nil, fmt.Errorf("no image on clipboard")
		}
		return out.Bytes(), nil
	}
	return nil, fmt.Errorf("no clipboard image tool found (install one of: %s)", strings.Join(tried, ", "))
}
