package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cliprelay/cli/internal/session"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/util"
)

const apiKeysURL = "https://platform.openai.com/api-keys"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage cliprelay settings",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Example: `  cliprelay config set model gpt-4o-mini
  cliprelay config set timeout_seconds 60
  cliprelay config set continuity_mode server
  cliprelay config set system_prompt "Answer concisely."`,
	Args: cobra.MinimumNArgs(2),
	RunE: runConfigSet,
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Store the API key in the OS keychain",
	Long: `Store the model API key in the OS keychain.

The key is read interactively (hidden input) so it never lands in shell
history. Environment variables CLIPRELAY_API_KEY and OPENAI_API_KEY take
precedence over the keychain when set.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetKey,
}

var configDeleteKeyCmd = &cobra.Command{
	Use:   "delete-key",
	Short: "Remove the API key from the OS keychain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := state.DeleteAPIKey(); err != nil {
			return err
		}
		pterm.Success.Println("API key removed from keychain.")
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Open the vendor API-keys page in the browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.Info.Printf("Opening %s\n", apiKeysURL)
		return browser.OpenURL(apiKeysURL)
	},
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configDeleteKeyCmd)
	configCmd.AddCommand(configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

// settingAccessors maps setting names to typed get/set functions over the
// Settings struct. Adding a field means adding one entry here.
type settingAccessor struct {
	get func(s *state.Settings) string
	set func(s *state.Settings, value string) error
}

func settingAccessors() map[string]settingAccessor {
	return map[string]settingAccessor{
		"model": {
			get: func(s *state.Settings) string { return s.Model },
			set: func(s *state.Settings, v string) error {
				if strings.TrimSpace(v) == "" {
					return fmt.Errorf("model cannot be empty")
				}
				s.Model = v
				return nil
			},
		},
		"base_url": {
			get: func(s *state.Settings) string { return s.BaseURL },
			set: func(s *state.Settings, v string) error {
				s.BaseURL = strings.TrimRight(v, "/")
				return nil
			},
		},
		"system_prompt": {
			get: func(s *state.Settings) string { return s.SystemPrompt },
			set: func(s *state.Settings, v string) error {
				s.SystemPrompt = v
				return nil
			},
		},
		"timeout_seconds": {
			get: func(s *state.Settings) string { return strconv.Itoa(s.TimeoutSeconds) },
			set: func(s *state.Settings, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil || n <= 0 {
					return fmt.Errorf("timeout_seconds must be a positive integer")
				}
				s.TimeoutSeconds = n
				return nil
			},
		},
		"continuity_mode": {
			get: func(s *state.Settings) string { return string(s.ContinuityMode) },
			set: func(s *state.Settings, v string) error {
				mode, err := session.ParseMode(v)
				if err != nil {
					return err
				}
				s.ContinuityMode = mode
				return nil
			},
		},
		"max_history_turns": {
			get: func(s *state.Settings) string { return strconv.Itoa(s.MaxHistoryTurns) },
			set: func(s *state.Settings, v string) error {
				n, err := strconv.Atoi(v)
				if err != nil || n <= 0 {
					return fmt.Errorf("max_history_turns must be a positive integer")
				}
				s.MaxHistoryTurns = n
				return nil
			},
		},
	}
}

func settingNames() []string {
	accessors := settingAccessors()
	names := make([]string, 0, len(accessors))
	for name := range accessors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runConfigList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}

	rows := pterm.TableData{{"Setting", "Value"}}
	accessors := settingAccessors()
	for _, name := range settingNames() {
		rows = append(rows, []string{name, util.OrDash(accessors[name].get(&doc.Settings))})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	accessor, ok := settingAccessors()[args[0]]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", args[0], strings.Join(settingNames(), ", "))
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}
	fmt.Println(accessor.get(&doc.Settings))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	accessor, ok := settingAccessors()[args[0]]
	if !ok {
		return fmt.Errorf("unknown setting %q (known: %s)", args[0], strings.Join(settingNames(), ", "))
	}
	value := strings.Join(args[1:], " ")

	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}
	if err := accessor.set(&doc.Settings, value); err != nil {
		return err
	}
	if err := store.Save(doc); err != nil {
		return err
	}
	pterm.Success.Printf("%s = %s\n", args[0], accessor.get(&doc.Settings))
	return nil
}

func runConfigSetKey(cmd *cobra.Command, args []string) error {
	pterm.Print("API key (input hidden): ")
	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	pterm.Println()
	if err != nil {
		return fmt.Errorf("failed to read API key: %w", err)
	}
	if err := state.SetAPIKey(string(keyBytes)); err != nil {
		return err
	}
	pterm.Success.Println("API key stored in the OS keychain.")
	return nil
}
