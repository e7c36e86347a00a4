package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the model",
	Long: `Start an interactive chat session with the model.

Type your messages and receive responses directly in the terminal. A
session is started automatically if none is active, so context carries
from one message to the next.

Special commands:
  /quit, /exit  - Exit the chat
  /copy         - Copy the last answer to the clipboard
  /clear        - Clear the terminal
  /status       - Show the relay status
  /help         - Show available commands`,
	Example: `  cliprelay chat`,
	Args:    cobra.NoArgs,
	RunE:    runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	rly, err := newRelay()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}

	// Chat needs continuity; start a session when none is active.
	if doc.Session == nil {
		mode := doc.Settings.ContinuityMode
		if mode == session.ModeOff {
			mode = session.ModeHistory
		}
		if _, err := rly.StartSession(mode); err != nil {
			return err
		}
		pterm.Info.Printf("Started a %s-mode session for this chat.\n", mode)
	} else {
		pterm.Info.Printf("Continuing the active %s-mode session.\n", doc.Session.Mode)
	}

	pterm.Println()
	pterm.DefaultHeader.WithBackgroundStyle(pterm.NewStyle(pterm.BgBlue)).
		WithTextStyle(pterm.NewStyle(pterm.FgWhite)).
		Println("cliprelay chat")
	pterm.Println()
	pterm.Info.Printf("Model: %s\n", doc.Settings.Model)
	pterm.Info.Println("Type your message and press Enter. Use /help for commands, /quit to exit.")
	pterm.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		pterm.Print(pterm.Cyan("You: "))

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			handled, shouldExit := handleChatCommand(input)
			if shouldExit {
				pterm.Info.Println("Goodbye!")
				return nil
			}
			if handled {
				continue
			}
		}

		spinner, _ := pterm.DefaultSpinner.Start("Thinking...")
		out, err := rly.Send(cmd.Context(), relay.Input{Text: input})
		_ = spinner.Stop()

		if err != nil {
			pterm.Error.Printf("Error: %v\n", err)
			pterm.Println()
			continue
		}

		pterm.Println()
		pterm.Print(pterm.Green("Model: "))
		fmt.Println(out.Answer.Text)
		pterm.Println()
	}

	return nil
}

func handleChatCommand(input string) (handled bool, shouldExit bool) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false, false
	}

	switch strings.ToLower(parts[0]) {
	case "/quit", "/exit", "/q":
		return true, true

	case "/clear":
		// Clear terminal (works on most terminals)
		fmt.Print("\033[H\033[2J")
		pterm.Info.Println("Terminal cleared.")
		return true, false

	case "/copy":
		if err := runCopy(nil, nil); err != nil {
			pterm.Error.Printf("Copy failed: %v\n", err)
		}
		return true, false

	case "/status":
		if err := chatStatus(); err != nil {
			pterm.Error.Printf("Status check failed: %v\n", err)
		}
		return true, false

	case "/help", "/?":
		pterm.Println()
		pterm.Info.Println("Available commands:")
		pterm.Println("  /quit, /exit  - Exit the chat")
		pterm.Println("  /copy         - Copy the last answer to the clipboard")
		pterm.Println("  /clear        - Clear the terminal")
		pterm.Println("  /status       - Show the relay status")
		pterm.Println("  /help         - Show this help message")
		pterm.Println()
		return true, false

	default:
		pterm.Warning.Printf("Unknown command: %s (use /help for available commands)\n", parts[0])
		return true, false
	}
}

// chatStatus prints a one-line status summary inside the chat loop.
func chatStatus() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}

	sess := "none"
	if doc.Session != nil {
		sess = string(doc.Session.Mode)
		if doc.Session.Mode == session.ModeHistory {
			sess = fmt.Sprintf("%s (%d turns)", sess, doc.Session.Turns())
		}
	}
	pterm.Info.Printf("Status: %s, Session: %s, Model: %s\n", doc.Badge.Phase, sess, doc.Settings.Model)
	return nil
}
