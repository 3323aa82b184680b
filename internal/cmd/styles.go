package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/Iron-Ham/moddirector/internal/errors"
	"github.com/Iron-Ham/moddirector/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#F87171") // Red
	mutedColor   = lipgloss.Color("#9CA3AF") // Gray
	infoColor    = lipgloss.Color("#60A5FA") // Blue
	accentColor  = lipgloss.Color("#A78BFA") // Purple
)

// palette holds the styles used by command output. Styles are bound to the
// output writer's renderer so redirected output stays free of escape codes.
type palette struct {
	title   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	muted   lipgloss.Style
	info    lipgloss.Style
	key     lipgloss.Style
}

func newPalette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		title:   r.NewStyle().Bold(true).Foreground(accentColor),
		success: r.NewStyle().Foreground(successColor),
		warning: r.NewStyle().Foreground(warningColor),
		failure: r.NewStyle().Bold(true).Foreground(errorColor),
		muted:   r.NewStyle().Foreground(mutedColor),
		info:    r.NewStyle().Foreground(infoColor),
		key:     r.NewStyle().Foreground(accentColor),
	}
}

// severity returns the style for a record severity.
func (p palette) severity(s errors.Severity) lipgloss.Style {
	switch s {
	case errors.SeverityError, errors.SeverityCritical:
		return p.failure
	case errors.SeverityWarning:
		return p.warning
	case errors.SeverityInfo:
		return p.info
	default:
		return p.muted
	}
}

// level returns the style for a log level name.
func (p palette) level(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return p.muted
	case logging.LevelInfo:
		return p.info
	case logging.LevelWarn:
		return p.warning
	case logging.LevelError:
		return p.failure
	default:
		return lipgloss.NewStyle()
	}
}

// terminalWidth returns the width of w when it is a terminal, or 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// truncate shortens s to width runes, marking the cut with an ellipsis.
// A width of 0 disables truncation.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
