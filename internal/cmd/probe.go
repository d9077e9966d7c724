package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Iron-Ham/mediaidle/internal/activity"
	"github.com/Iron-Ham/mediaidle/internal/daemon"
	"github.com/Iron-Ham/mediaidle/internal/errors"
	"github.com/Iron-Ham/mediaidle/internal/graph/pwdump"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats supported by probe.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func newProbeCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show which streams currently count as active",
		Long: `Connect to PipeWire, take one snapshot of the graph, and print every
stream endpoint the daemon would consider, the state of each output port's
link, and the resulting active stream count.

The helper is never started or stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()

			switch format {
			case formatTable, formatJSON, formatYAML:
			default:
				return errors.NewUsageError("format", fmt.Sprintf("unknown format %q (must be table, json, or yaml)", format))
			}

			p := pwdump.New(pwdump.Options{
				Command: a.cfg.Provider.Command,
				Args:    a.cfg.Provider.Args,
				Logger:  a.logger.WithComponent("provider"),
			})
			reg, err := daemon.LoadSnapshot(cmd.Context(), p, a.cfg.Provider.ConnectTimeout)
			if err != nil {
				return err
			}

			return writeReport(cmd.OutOrStdout(), activity.Inspect(reg), format, isTerminal(cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table, json, yaml")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeReport renders r in the requested format. Table output is only
// colored when styled is true.
func writeReport(w io.Writer, r activity.Report, format string, styled bool) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderTable(r, styled))
		return err
	}
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	summaryStyle  = lipgloss.NewStyle().Bold(true)
)

// renderTable lays out one row per output port.
func renderTable(r activity.Report, styled bool) string {
	style := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	header := []string{"NODE", "NAME", "CLASS", "PORT", "LINK", "STATE"}
	var rows [][]string
	var active []bool
	for _, ep := range r.Endpoints {
		if len(ep.Ports) == 0 {
			rows = append(rows, []string{strconv.Itoa(int(ep.NodeID)), ep.Name, ep.MediaClass, "-", "-", "no output ports"})
			active = append(active, false)
			continue
		}
		for _, p := range ep.Ports {
			link := "-"
			if p.Linked {
				link = strconv.Itoa(int(p.LinkID))
			}
			rows = append(rows, []string{
				strconv.Itoa(int(ep.NodeID)), ep.Name, ep.MediaClass,
				strconv.Itoa(int(p.PortID)), link, p.LinkState,
			})
			active = append(active, p.Active)
		}
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	pad := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	if len(rows) == 0 {
		b.WriteString(style(inactiveStyle, "No audio or video streams."))
		b.WriteString("\n")
	} else {
		b.WriteString(style(headerStyle, pad(header)))
		b.WriteString("\n")
		for i, row := range rows {
			line := pad(row)
			if active[i] {
				line = style(activeStyle, line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	if len(r.Grouped) > 0 {
		b.WriteString("\n")
		b.WriteString(style(inactiveStyle, "Ignored (link-grouped):"))
		b.WriteString("\n")
		for _, g := range r.Grouped {
			fmt.Fprintf(&b, "  %d  %s  %s  group=%s\n", g.NodeID, g.Name, g.MediaClass, g.LinkGroup)
		}
	}

	b.WriteString("\n")
	b.WriteString(style(summaryStyle, fmt.Sprintf("Active streams: %d", r.Active)))
	b.WriteString("\n")
	return b.String()
}
