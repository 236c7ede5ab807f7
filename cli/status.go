package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/ezenkico/deploy-commander/vectorstack/models"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).PaddingRight(2)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).PaddingRight(2)
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).PaddingRight(2)
)

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stack's services and volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.resolveProject(); err != nil {
				return err
			}
			p, err := a.platform()
			if err != nil {
				return err
			}
			defer p.Close()

			st, err := p.Status(cmd.Context(), a.cfg.Project)
			if err != nil {
				return err
			}

			if a.cfg.Output == "json" {
				return writeJSON(cmd.OutOrStdout(), st)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderStatus(st))
			return err
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderStatus lays the status out as two aligned tables.
func renderStatus(st *models.StackStatus) string {
	var b strings.Builder

	if len(st.Services) == 0 {
		fmt.Fprintf(&b, "project %s has no services\n", st.Project)
	} else {
		rows := [][]string{{"SERVICE", "STATE", "HEALTH", "IMAGE", "PORTS"}}
		for _, s := range st.Services {
			health := s.Health
			if health == "" {
				health = "-"
			}
			rows = append(rows, []string{s.Service, s.State, health, s.Image, strings.Join(s.Ports, ", ")})
		}
		b.WriteString(renderTable(rows, stateColumns))
	}

	if len(st.Volumes) > 0 {
		b.WriteString("\n")
		rows := [][]string{{"VOLUME", "NAME", "DRIVER"}}
		for _, v := range st.Volumes {
			rows = append(rows, []string{v.Volume, v.Name, v.Driver})
		}
		b.WriteString(renderTable(rows, nil))
	}

	return b.String()
}

// stateColumns colors the state and health columns of the services table.
func stateColumns(col int, value string) lipgloss.Style {
	if col != 1 && col != 2 {
		return cellStyle
	}
	switch value {
	case "running", "healthy":
		return okStyle
	case "exited", "dead", "unhealthy":
		return badStyle
	case "-":
		return cellStyle
	default:
		return warnStyle
	}
}

func renderTable(rows [][]string, style func(col int, value string) lipgloss.Style) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			s := cellStyle
			switch {
			case r == 0:
				s = headerStyle
			case style != nil:
				s = style(i, cell)
			}
			// padding is added by the style, width covers the text only
			cells[i] = s.Width(widths[i] + s.GetPaddingRight()).Render(cell)
		}
		b.WriteString(strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " "))
		b.WriteString("\n")
	}
	return b.String()
}
