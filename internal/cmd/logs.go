package cmd

import (
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/moddirector/internal/config"
	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View director logs",
	Long: `View, filter and export the director log, including rotated backups.

Examples:
  # Show the last 50 entries
  moddirector logs

  # Show every failed install
  moddirector logs --level error -n 0

  # Show what happened to one mod in the last hour
  moddirector logs --mod jei --since 1h

  # Search messages and attributes
  moddirector logs --grep "timed out|429"

  # Export everything as CSV
  moddirector logs -n 0 --format csv --output director.csv`,
	RunE: runLogs,
}

var (
	logsTail      int
	logsLevel     string
	logsSince     string
	logsGrep      string
	logsMod       string
	logsComponent string
	logsFormat    string
	logsOutput    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsMod, "mod", "", "Only show entries for this mod")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "Only show entries from this component")
	logsCmd.Flags().StringVar(&logsFormat, "format", "text", "Output format (text/json/csv)")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Write entries to a file instead of stdout")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logDir := cfg.Logging.ResolveDir()

	filter := logging.LogFilter{
		Mod:       logsMod,
		Component: logsComponent,
	}
	if logsLevel != "" {
		filter.Level = logging.ParseLevel(logsLevel)
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.StartTime = time.Now().Add(-duration)
	}

	var grepRegex *regexp.Regexp
	if logsGrep != "" {
		grepRegex, err = regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	entries, err := logging.AggregateLogs(logDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(cmd.OutOrStdout(), "No logs found.")
			fmt.Fprintln(cmd.OutOrStdout(), "Logs are stored at:", logDir)
			return nil
		}
		return errors.Wrapf(err, "failed to read logs in %s", logDir)
	}

	entries = logging.FilterLogs(entries, filter)
	if grepRegex != nil {
		entries = grepEntries(entries, grepRegex)
	}
	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}

	if logsOutput != "" {
		if err := logging.ExportLogEntries(entries, logsOutput, logsFormat); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), logsOutput)
		return nil
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 && strings.EqualFold(logsFormat, "text") {
		fmt.Fprintln(out, "No matching log entries found.")
		return nil
	}
	if strings.EqualFold(logsFormat, "text") && terminalWidth(out) > 0 {
		return printLogEntries(out, entries)
	}
	return logging.WriteLogEntries(out, entries, logsFormat)
}

// grepEntries keeps entries whose message, error or attributes match re.
func grepEntries(entries []logging.LogEntry, re *regexp.Regexp) []logging.LogEntry {
	var out []logging.LogEntry
	for _, e := range entries {
		searchText := e.Message + " " + e.Error
		for _, v := range e.Attrs {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if re.MatchString(searchText) {
			out = append(out, e)
		}
	}
	return out
}

// printLogEntries writes entries in a colored, terminal-friendly layout.
func printLogEntries(w io.Writer, entries []logging.LogEntry) error {
	p := newPalette(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(w, formatLogEntry(p, e)); err != nil {
			return err
		}
	}
	return nil
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(p palette, e logging.LogEntry) string {
	var sb strings.Builder

	sb.WriteString(p.muted.Render("[" + e.Timestamp.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(p.level(e.Level).Render("[" + strings.ToUpper(e.Level) + "]"))
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	if e.Mod != "" {
		sb.WriteString(" ")
		sb.WriteString(p.key.Render("mod=" + e.Mod))
	}
	if e.Component != "" {
		sb.WriteString(" ")
		sb.WriteString(p.key.Render("component=" + e.Component))
	}
	if e.Error != "" {
		sb.WriteString(" ")
		sb.WriteString(p.failure.Render("error=" + e.Error))
	}

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" ")
		sb.WriteString(p.key.Render(k + "="))
		sb.WriteString(fmt.Sprintf("%v", e.Attrs[k]))
	}

	return sb.String()
}
