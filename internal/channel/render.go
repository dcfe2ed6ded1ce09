package channel

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"clawchat/internal/domain"
)

var (
	colorAccent  = lipgloss.Color("#7C3AED")
	colorInfo    = lipgloss.Color("#06B6D4")
	colorSuccess = lipgloss.Color("#10B981")
	colorError   = lipgloss.Color("#EF4444")
	colorMuted   = lipgloss.Color("#6B7280")
)

// styles holds the terminal styles for one theme.
type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	thinking  lipgloss.Style
	success   lipgloss.Style
	err       lipgloss.Style
	dim       lipgloss.Style
	current   lipgloss.Style
}

func newStyles(theme string) styles {
	text := lipgloss.Color("#F9FAFB")
	if theme == "light" {
		text = lipgloss.Color("#111827")
	}
	return styles{
		header:    lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		user:      lipgloss.NewStyle().Foreground(colorInfo).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(colorAccent).Bold(true),
		thinking:  lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		success:   lipgloss.NewStyle().Foreground(colorSuccess),
		err:       lipgloss.NewStyle().Foreground(colorError),
		dim:       lipgloss.NewStyle().Foreground(colorMuted),
		current:   lipgloss.NewStyle().Foreground(text).Bold(true),
	}
}

func (s styles) toast(t domain.Toast) string {
	if t.Type == domain.ToastError {
		return s.err.Render("✗ " + t.Message)
	}
	return s.success.Render("✓ " + t.Message)
}

// renderMarkdown renders markdown for the terminal in the given theme,
// falling back to the raw text if glamour fails.
func renderMarkdown(text, theme string, width int) string {
	if width <= 0 {
		width = 100
	}
	style := "dark"
	if theme == "light" {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	// glamour pads with blank lines.
	return strings.Trim(out, "\n")
}
