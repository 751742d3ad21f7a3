// Package output provides consistent CLI output formatting with colors and progress indicators.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette.
const (
	ColorAccent   = "154" // Titles, success (#AFFF00)
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "240" // Snippets
	ColorYellow   = "220" // Warnings
)

// Styles holds the lipgloss styles used by Writer.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Dim     lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
}

// ColorStyles returns the styles for an interactive terminal.
func ColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Title:   lipgloss.NewStyle().Bold(true),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
	}
}

// PlainStyles returns unstyled components for pipes and NO_COLOR.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Title:   plain,
		Label:   plain,
		Dim:     plain,
		Success: plain,
		Warning: plain,
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that colors output only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !NoColor())
}

// NewWithColor creates a Writer with color forced on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	styles := PlainStyles()
	if color {
		styles = ColorStyles()
	}
	return &Writer{out: out, styles: styles}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColor checks if the NO_COLOR environment variable is set.
func NoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status("✅", w.styles.Success.Render(msg))
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.styles.Warning.Render(msg))
}

// Header prints a bold section heading.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// Line prints one unstyled line.
func (w *Writer) Line(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format+"\n", args...)
}

// Bullet prints "* msg".
func (w *Writer) Bullet(msg string) {
	_, _ = fmt.Fprintf(w.out, "* %s\n", msg)
}

// KeyValue prints "  - key: value" with the key styled as a label.
func (w *Writer) KeyValue(key, value string) {
	_, _ = fmt.Fprintf(w.out, "  - %s %s\n", w.styles.Label.Render(key+":"), value)
}

// Result prints a numbered search result: the title on the first line, each
// detail indented beneath it and the snippet, if any, dimmed last.
func (w *Writer) Result(rank int, title string, details []string, snippet string) {
	_, _ = fmt.Fprintf(w.out, "%d. %s\n", rank, w.styles.Title.Render(title))
	for _, d := range details {
		_, _ = fmt.Fprintf(w.out, "   %s\n", d)
	}
	if snippet != "" {
		_, _ = fmt.Fprintf(w.out, "   %s\n", w.styles.Dim.Render(snippet))
	}
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints a progress bar with message.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	// Carriage return for in-place updates
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	filled := int(float64(current) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
