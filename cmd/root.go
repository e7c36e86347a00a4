// Package cmd implements the cliprelay command surface.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/llm"
)

// Version is overridden at build time via ldflags.
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "cliprelay",
	Short: "Relay clipboard and selection content to a model API",
	Long: `cliprelay sends clipboard or selected text (and images) to a model API
and keeps the last answer around for a quick copy.

Typical flow:
  # Configure once
  cliprelay init
  cliprelay config set-key

  # Send whatever is on the clipboard
  cliprelay ask

  # Put the answer on the clipboard
  cliprelay copy

Multi-turn conversations are available via 'cliprelay session' and the
interactive 'cliprelay chat'.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env files are a convenience for CLIPRELAY_API_KEY and friends.
		_ = godotenv.Load()

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return fang.Execute(ctx, rootCmd, fang.WithVersion(Version))
}

// openStore resolves the state file location and returns a store over it.
func openStore() (*state.Store, error) {
	path, err := state.DefaultPath()
	if err != nil {
		return nil, err
	}
	return state.NewStore(path), nil
}

// newRelay wires a relay against the real store and model client.
func newRelay() (*relay.Relay, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	doc, err := store.Load()
	if err != nil {
		return nil, err
	}
	key, err := state.APIKey()
	if err != nil {
		return nil, err
	}
	return relay.New(store, llm.NewOpenAI(key, doc.Settings.BaseURL)), nil
}
