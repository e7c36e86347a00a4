package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/session"
	"github.com/cliprelay/cli/pkg/util"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage conversation continuity",
	Long: `Manage the session that carries conversation context between calls.

Without a session every 'ask' is one-shot. With one, context is carried in
one of two ways:

  history  the transcript is stored locally and resent with every call
  server   only the vendor's previous-response pointer is stored; the
           vendor reassembles the conversation server-side`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session",
	Long: `Start a new session, discarding any previous continuity state.

The mode defaults to the configured continuity_mode setting, or history
when that is off.`,
	Example: `  cliprelay session start
  cliprelay session start --mode server`,
	Args: cobra.NoArgs,
	RunE: runSessionStart,
}

var sessionClearCmd = &cobra.Command{
	Use:     "clear",
	Aliases: []string{"end"},
	Short:   "End the active session",
	Args:    cobra.NoArgs,
	RunE:    runSessionClear,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active session",
	Args:  cobra.NoArgs,
	RunE:  runSessionShow,
}

func init() {
	sessionStartCmd.Flags().String("mode", "", "Continuity mode: history or server")
	sessionShowCmd.Flags().StringP("output", "o", "", "Output format: json for raw session state")
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionClearCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}

	modeFlag, _ := cmd.Flags().GetString("mode")
	mode := doc.Settings.ContinuityMode
	if modeFlag != "" {
		mode, err = session.ParseMode(modeFlag)
		if err != nil {
			return err
		}
	}
	if mode == session.ModeOff {
		mode = session.ModeHistory
	}

	s, err := relay.New(store, nil).StartSession(mode)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Session started (%s mode)\n", s.Mode)
	if s.Mode == session.ModeHistory {
		pterm.Info.Printf("The newest %d exchanges will ride along with each call.\n", doc.Settings.MaxHistoryTurns)
	} else {
		pterm.Info.Println("The vendor will carry conversation context server-side.")
	}
	return nil
}

func runSessionClear(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := relay.New(store, nil).EndSession(); err != nil {
		return err
	}
	pterm.Success.Println("Session cleared.")
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}
	if doc.Session == nil {
		return relay.ErrNoSession
	}

	if output == "json" {
		return util.PrintJSON(doc.Session)
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Mode", string(doc.Session.Mode)})
	rows = append(rows, []string{"Started", util.FormatLocal(doc.Session.StartedAt)})
	switch doc.Session.Mode {
	case session.ModeHistory:
		rows = append(rows, []string{"Turns", fmt.Sprintf("%d", doc.Session.Turns())})
		rows = append(rows, []string{"Turn Budget", fmt.Sprintf("%d", doc.Settings.MaxHistoryTurns)})
	case session.ModeServer:
		rows = append(rows, []string{"Pointer", util.OrDash(doc.Session.PreviousResponseID)})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	return nil
}
