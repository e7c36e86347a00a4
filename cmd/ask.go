package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/pkg/clipboard"
	"github.com/cliprelay/cli/pkg/llm"
	"github.com/cliprelay/cli/pkg/util"
)

var askCmd = &cobra.Command{
	Use:   "ask [text...]",
	Short: "Send clipboard or given text to the model",
	Long: `Send content to the model and print the answer.

The input can come from (in order of precedence):
- Command line arguments
- A file (using --file)
- Piped stdin
- The clipboard (the default when nothing else is given)

Images are sent with --image <path> or --image-clipboard. The answer is
stored so 'cliprelay copy' can put it on the clipboard afterwards.`,
	Example: `  # Send the clipboard contents
  cliprelay ask

  # Send explicit text
  cliprelay ask "What is 2+2?"

  # Pipe input
  git diff | cliprelay ask "Review this diff"

  # Send an image from a file
  cliprelay ask --image screenshot.png "What does this error mean?"

  # Scripting
  cliprelay ask "Hello" --json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("file", "f", "", "Read input from file")
	askCmd.Flags().String("image", "", "Attach an image file (PNG or JPEG)")
	askCmd.Flags().Bool("image-clipboard", false, "Attach the image currently on the clipboard")
	askCmd.Flags().Int("timeout", 0, "Response timeout in seconds (overrides the configured value)")
	askCmd.Flags().StringP("model", "m", "", "Model to use for this call only")
	askCmd.Flags().Bool("json", false, "Output response as JSON")
	askCmd.Flags().Bool("raw", false, "Output raw response without formatting")
	askCmd.MarkFlagsMutuallyExclusive("image", "image-clipboard")
	rootCmd.AddCommand(askCmd)
}

// Sender is the subset of the relay that ask and chat depend on.
type Sender interface {
	Send(ctx context.Context, in relay.Input) (*relay.Outcome, error)
}

// AskCmd handles the ask operation.
type AskCmd struct {
	sender      Sender
	clip        clipboard.Provider
	stdin       io.Reader
	stdinIsPipe bool
}

// AskInput holds the resolved flags for one ask invocation.
type AskInput struct {
	Args           []string
	FilePath       string
	ImagePath      string
	ImageClipboard bool
	Model          string
	TimeoutSeconds int
	JSON           bool
	Raw            bool
}

// AskResponse is the JSON output shape.
type AskResponse struct {
	Answer       string `json:"answer"`
	AnswerID     string `json:"answer_id"`
	Model        string `json:"model"`
	SessionMode  string `json:"session_mode"`
	SessionTurns int    `json:"session_turns,omitempty"`
	InputTokens  int64  `json:"input_tokens,omitempty"`
	OutputTokens int64  `json:"output_tokens,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	rly, err := newRelay()
	if err != nil {
		return err
	}

	filePath, _ := cmd.Flags().GetString("file")
	imagePath, _ := cmd.Flags().GetString("image")
	imageClip, _ := cmd.Flags().GetBool("image-clipboard")
	timeout, _ := cmd.Flags().GetInt("timeout")
	model, _ := cmd.Flags().GetString("model")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	rawOutput, _ := cmd.Flags().GetBool("raw")

	stat, _ := os.Stdin.Stat()
	ask := AskCmd{
		sender:      rly,
		clip:        clipboard.System{},
		stdin:       bufio.NewReader(os.Stdin),
		stdinIsPipe: (stat.Mode() & os.ModeCharDevice) == 0,
	}
	return ask.Run(cmd.Context(), AskInput{
		Args:           args,
		FilePath:       filePath,
		ImagePath:      imagePath,
		ImageClipboard: imageClip,
		Model:          model,
		TimeoutSeconds: timeout,
		JSON:           jsonOutput,
		Raw:            rawOutput,
	})
}

// Run resolves the input sources, performs the send, and prints the answer.
func (a AskCmd) Run(ctx context.Context, in AskInput) error {
	text, err := a.resolveText(in)
	if err != nil {
		return err
	}

	image, err := a.resolveImage(in)
	if err != nil {
		return err
	}

	if strings.TrimSpace(text) == "" && image == nil {
		return fmt.Errorf("nothing to send: provide text as an argument, via stdin, --file, or put something on the clipboard")
	}

	quiet := in.JSON || in.Raw
	var spinner *pterm.SpinnerPrinter
	if !quiet {
		spinner, _ = pterm.DefaultSpinner.Start("Waiting for the model...")
	}

	out, err := a.sender.Send(ctx, relay.Input{
		Text:            text,
		Image:           image,
		ModelOverride:   in.Model,
		TimeoutOverride: time.Duration(in.TimeoutSeconds) * time.Second,
	})
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	if in.JSON {
		return util.PrintJSON(AskResponse{
			Answer:       out.Answer.Text,
			AnswerID:     out.Answer.ID,
			Model:        out.Answer.Model,
			SessionMode:  string(out.SessionMode),
			SessionTurns: out.SessionTurns,
			InputTokens:  out.InputTokens,
			OutputTokens: out.OutputTokens,
		})
	}
	if in.Raw {
		fmt.Print(out.Answer.Text)
		return nil
	}

	pterm.Println()
	pterm.Success.Println("Answer:")
	pterm.Println()
	fmt.Println(out.Answer.Text)
	pterm.Println()
	pterm.Info.Println("Copy it to the clipboard with: cliprelay copy")
	return nil
}

// resolveText picks the text source: args > file > piped stdin > clipboard.
func (a AskCmd) resolveText(in AskInput) (string, error) {
	if len(in.Args) > 0 {
		return strings.Join(in.Args, " "), nil
	}
	if in.FilePath != "" {
		content, err := os.ReadFile(in.FilePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	if a.stdinIsPipe {
		content, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	// Image-only sends skip the clipboard text fallback.
	if in.ImagePath != "" || in.ImageClipboard {
		return "", nil
	}
	text, err := a.clip.ReadText()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (a AskCmd) resolveImage(in AskInput) (*llm.Image, error) {
	switch {
	case in.ImagePath != "":
		data, err := os.ReadFile(in.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return llm.DetectImage(data)
	case in.ImageClipboard:
		data, err := a.clip.ReadImage()
		if err != nil {
			return nil, err
		}
		return llm.DetectImage(data)
	}
	return nil, nil
}
