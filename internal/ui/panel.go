package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Money formats a price or total.
func Money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Frame wraps s in the theme's border.
func Frame(s string) string {
	t := Current()
	return lipgloss.NewStyle().
		Border(t.BorderShape).
		BorderForeground(t.Border.GetForeground()).
		Padding(0, 1).
		Render(s)
}

// Panel prints lines inside a frame.
func Panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, Frame(strings.Join(lines, "\n")))
}

// OK prints a success line to w.
func OK(w io.Writer, msg string) {
	t := Current()
	fmt.Fprintln(w, t.Success.Render(t.SymOK+" "+msg))
}

func Fail(msg string) {
	t := Current()
	fmt.Fprintln(os.Stderr, t.Error.Render(t.SymFail+" "+msg))
}

// Hint prints a muted line on stderr.
func Hint(msg string) {
	fmt.Fprintln(os.Stderr, Current().Muted.Render(msg))
}
