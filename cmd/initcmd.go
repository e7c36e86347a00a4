package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/state"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default state file",
	Long: `Create the state file with default settings.

This is also the escape hatch for a corrupt state file: --force rewrites
it from scratch (the stored answer and session are lost).`,
	Example: `  cliprelay init
  cliprelay init --force`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing state file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	store, err := openStore()
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(store.Path()); statErr == nil && !force {
		return fmt.Errorf("state file already exists at %s (use --force to overwrite)", store.Path())
	} else if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return statErr
	}

	if err := store.Save(state.DefaultDocument()); err != nil {
		return err
	}

	pterm.Success.Printf("State file written to %s\n", store.Path())
	pterm.Println()
	if !state.HasAPIKey() {
		pterm.Info.Println("Next steps:")
		pterm.Printf("  # Store your API key (get one at %s)\n", apiKeysURL)
		pterm.Printf("  cliprelay config set-key\n")
		pterm.Println()
		pterm.Printf("  # Then send whatever is on the clipboard\n")
		pterm.Printf("  cliprelay ask\n")
	} else {
		pterm.Info.Println("API key found. Try it:")
		pterm.Printf("  cliprelay ask \"Hello!\"\n")
	}
	return nil
}
