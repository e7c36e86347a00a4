package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/cliprelay/cli/internal/relay"
	"github.com/cliprelay/cli/internal/session"
	"github.com/cliprelay/cli/internal/state"
	"github.com/cliprelay/cli/pkg/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the relay status indicator",
	Long: `Show the status indicator and surrounding state:

- The current phase (idle, busy, ready, error)
- The last answer, if any
- The active session, if any
- Whether an API key is configured`,
	Example: `  cliprelay status
  cliprelay status -o json
  cliprelay status --clear`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format: json for raw state")
	statusCmd.Flags().Bool("clear", false, "Acknowledge an error and return to idle")
	rootCmd.AddCommand(statusCmd)
}

// StatusReport is the JSON output of the status command.
type StatusReport struct {
	Phase        state.Phase `json:"phase"`
	Detail       string      `json:"detail,omitempty"`
	ChangedAt    time.Time   `json:"changed_at"`
	HasAnswer    bool        `json:"has_answer"`
	AnswerAge    string      `json:"answer_age,omitempty"`
	SessionMode  string      `json:"session_mode"`
	SessionTurns int         `json:"session_turns,omitempty"`
	Model        string      `json:"model"`
	HasAPIKey    bool        `json:"has_api_key"`
}

var phaseStyles = map[state.Phase]lipgloss.Style{
	state.PhaseIdle:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	state.PhaseBusy:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	state.PhaseReady: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	state.PhaseError: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
}

// renderPhase draws the badge dot plus the phase name.
func renderPhase(phase state.Phase) string {
	style, ok := phaseStyles[phase]
	if !ok {
		return string(phase)
	}
	return style.Render("●") + " " + string(phase)
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	clearFlag, _ := cmd.Flags().GetBool("clear")
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	if clearFlag {
		cleared, err := relay.New(store, nil).ClearError()
		if err != nil {
			return err
		}
		if cleared {
			pterm.Success.Println("Status cleared.")
		} else {
			pterm.Info.Println("Nothing to clear: the status is not in the error phase.")
		}
	}

	doc, err := store.Load()
	if err != nil {
		return err
	}

	now := time.Now()
	report := StatusReport{
		Phase:       doc.Badge.Phase,
		Detail:      doc.Badge.Detail,
		ChangedAt:   doc.Badge.ChangedAt,
		HasAnswer:   doc.Answer != nil,
		SessionMode: string(session.ModeOff),
		Model:       doc.Settings.Model,
		HasAPIKey:   state.HasAPIKey(),
	}
	if doc.Answer != nil {
		report.AnswerAge = util.FormatAge(doc.Answer.ReceivedAt, now)
	}
	if doc.Session != nil {
		report.SessionMode = string(doc.Session.Mode)
		report.SessionTurns = doc.Session.Turns()
	}

	if output == "json" {
		return util.PrintJSON(report)
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Status", renderPhase(doc.Badge.Phase)})
	if doc.Badge.Detail != "" {
		rows = append(rows, []string{"Detail", doc.Badge.Detail})
	}
	rows = append(rows, []string{"Changed", util.FormatAge(doc.Badge.ChangedAt, now)})
	rows = append(rows, []string{"Model", doc.Settings.Model})

	if doc.Answer != nil {
		preview := util.Truncate(doc.Answer.Text, 60)
		rows = append(rows, []string{"Last Answer", preview})
		rows = append(rows, []string{"Answer Age", util.FormatAge(doc.Answer.ReceivedAt, now)})
		rows = append(rows, []string{"Answer Size", util.FormatBytes(int64(len(doc.Answer.Text)))})
	} else {
		rows = append(rows, []string{"Last Answer", "-"})
	}

	if doc.Session != nil {
		rows = append(rows, []string{"Session", string(doc.Session.Mode)})
		switch doc.Session.Mode {
		case session.ModeHistory:
			rows = append(rows, []string{"Session Turns", fmt.Sprintf("%d", doc.Session.Turns())})
		case session.ModeServer:
			rows = append(rows, []string{"Session Pointer", util.OrDash(util.Truncate(doc.Session.PreviousResponseID, 24))})
		}
	} else {
		rows = append(rows, []string{"Session", "none"})
	}

	if state.HasAPIKey() {
		rows = append(rows, []string{"API Key", pterm.Green("Configured")})
	} else {
		rows = append(rows, []string{"API Key", pterm.Red("Missing")})
	}

	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()

	// Next-step hints depending on where the user is.
	pterm.Println()
	switch {
	case !state.HasAPIKey():
		pterm.Warning.Println("No API key configured. Set one with:")
		pterm.Printf("  cliprelay config set-key\n")
	case doc.Badge.Phase == state.PhaseError:
		pterm.Warning.Println("The last request failed. Acknowledge with:")
		pterm.Printf("  cliprelay status --clear\n")
	case doc.Badge.Phase == state.PhaseReady:
		pterm.Success.Println("An answer is waiting!")
		pterm.Printf("  cliprelay copy\n")
	case doc.Badge.Phase == state.PhaseBusy:
		pterm.Info.Println("A request is in flight.")
	default:
		pterm.Info.Println("Ready to go:")
		pterm.Printf("  cliprelay ask\n")
	}
	return nil
}
