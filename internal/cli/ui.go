package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stackgate/pkg/errors"
	"github.com/matzehuels/stackgate/pkg/history"
	"github.com/matzehuels/stackgate/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleLink    = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleCode        = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconPending = "…"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// ui writes styled status lines. Commands use stdout; tests use a buffer.
type ui struct {
	w io.Writer
}

func (u ui) line(icon lipgloss.Style, glyph, msg string) {
	fmt.Fprintln(u.w, icon.Render(glyph)+" "+msg)
}

func (u ui) success(format string, args ...any) {
	u.line(styleIconSuccess, iconSuccess, fmt.Sprintf(format, args...))
}

func (u ui) failure(format string, args ...any) {
	u.line(styleIconError, iconError, fmt.Sprintf(format, args...))
}

func (u ui) warning(format string, args ...any) {
	u.line(styleIconWarning, iconWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (u ui) info(format string, args ...any) {
	u.line(styleIconInfo, iconInfo, fmt.Sprintf(format, args...))
}

// detail prints an indented secondary line.
func (u ui) detail(format string, args ...any) {
	fmt.Fprintln(u.w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (u ui) link(url string) {
	fmt.Fprintln(u.w, "  "+StyleDim.Render(iconArrow)+" "+StyleLink.Render(url))
}

// =============================================================================
// Outcomes
// =============================================================================

// outcome prints one package result with its warnings and run link.
func (u ui) outcome(o *pipeline.Outcome) {
	name := StyleValue.Render(o.Request.Name)
	if o.Version != "" {
		name += StyleDim.Render("@" + o.Version)
	} else if o.Request.Spec != "" {
		name += StyleDim.Render("@" + o.Request.Spec)
	}

	switch o.Kind {
	case pipeline.Present:
		u.success("%s %s", name, StyleDim.Render("already mirrored"))
	case pipeline.Succeeded:
		u.success("%s %s", name, StyleDim.Render("mirrored as "+o.MirrorName))
	case pipeline.TimedOut:
		u.line(styleIconWarning, iconPending, name+" "+StyleWarning.Render("still caching; re-run with --pending"))
	default:
		u.failure("%s %s %s", name, styleCode.Render(string(o.Code())), errors.UserMessage(o.Err))
		if v, ok := o.Violation(); ok && len(v.Path) > 1 {
			u.detail("via %s", strings.Join(v.Path, " "+iconArrow+" "))
		}
	}
	for _, w := range o.Warnings {
		u.detail("%s %s", iconWarning, w)
	}
	if o.RunURL != "" && o.Kind != pipeline.Present {
		u.link(o.RunURL)
	}
}

// summary prints one line of counts for a batch.
func (u ui) summary(b *pipeline.Batch) {
	parts := []string{StyleNumber.Render(fmt.Sprint(len(b.Outcomes))) + " checked"}
	for _, k := range []pipeline.Kind{pipeline.Present, pipeline.Succeeded, pipeline.TimedOut, pipeline.Failed} {
		if n := b.Count(k); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ReplaceAll(k.String(), "_", " ")))
		}
	}
	fmt.Fprintln(u.w, StyleDim.Render(strings.Join(parts, " · ")))
}

// entry prints one history ledger entry.
func (u ui) entry(e history.Entry) {
	label := StyleValue.Render(e.Name)
	if e.Spec != "" {
		label += StyleDim.Render("@" + e.Spec)
	}
	when := StyleDim.Render(e.UpdatedAt.Local().Format("2006-01-02 15:04"))
	switch e.Status {
	case history.StatusDone:
		u.success("%s %s %s", label, StyleDim.Render(e.Outcome), when)
	case history.StatusBlocked:
		u.failure("%s %s %s", label, styleCode.Render(e.Code), when)
	default:
		u.line(styleIconWarning, iconPending, label+" "+StyleWarning.Render(e.Outcome)+" "+when)
	}
	if e.Message != "" {
		u.detail("%s", e.Message)
	}
	if e.RunURL != "" {
		u.link(e.RunURL)
	}
}
