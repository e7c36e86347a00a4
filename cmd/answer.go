package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/clipboard"
	"github.com/cliprelay/cli/pkg/util"
)

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Print the last answer",
	Example: `  cliprelay answer
  cliprelay answer --json`,
	Args: cobra.NoArgs,
	RunE: runAnswer,
}

var copyCmd = &cobra.Command{
	Use:   "copy",
	Short: "Copy the last answer to the clipboard",
	Long: `Copy the last model answer to the clipboard.

Collecting the answer returns the status indicator from ready to idle.`,
	Args: cobra.NoArgs,
	RunE: runCopy,
}

func init() {
	answerCmd.Flags().Bool("json", false, "Output as JSON")
	answerCmd.Flags().Bool("raw", false, "Output raw answer text only")
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(copyCmd)
}

// AnswerTaker is the subset of the relay used by answer and copy.
type AnswerTaker interface {
	TakeAnswer() (*state.Answer, error)
}

func runAnswer(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}
	if doc.Answer == nil {
		return fmt.Errorf("no answer available yet: send something with 'cliprelay ask' first")
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	rawOutput, _ := cmd.Flags().GetBool("raw")

	if jsonOutput {
		return util.PrintJSON(doc.Answer)
	}
	if rawOutput {
		fmt.Print(doc.Answer.Text)
		return nil
	}
	fmt.Println(doc.Answer.Text)
	return nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	// Copy talks to the store and clipboard only; no API key needed.
	c := CopyCmd{taker: relay.New(store, nil), clip: clipboard.System{}}
	return c.Run()
}

// CopyCmd handles the copy operation.
type CopyCmd struct {
	taker AnswerTaker
	clip  clipboard.Provider
}

// Run copies the stored answer to the clipboard.
func (c CopyCmd) Run() error {
	answer, err := c.taker.TakeAnswer()
	if err != nil {
		return err
	}
	if err := c.clip.WriteText(answer.Text); err != nil {
		return err
	}
	pterm.Success.Printf("Copied answer to clipboard (%s)\n", util.FormatBytes(int64(len(answer.Text))))
	return nil
}
