// ABOUTME: Shared lipgloss styles for the artfolio terminal client
// ABOUTME: Palette plus the text, list and frame styles the feed browser and commands use

package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	Primary = lipgloss.Color("#7C3AED") // Purple
	Success = lipgloss.Color("#10B981") // Green
	Warning = lipgloss.Color("#F59E0B") // Amber
	Danger  = lipgloss.Color("#EF4444") // Red
	Muted   = lipgloss.Color("#6B7280") // Gray
	Text    = lipgloss.Color("#F9FAFB") // Light
	Accent  = lipgloss.Color("#8B5CF6") // Lighter purple for highlights
	Surface = lipgloss.Color("#374151") // Selected row background

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(Muted)

	// Feed rows
	Item = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)

	SelectedItem = lipgloss.NewStyle().
			Foreground(Text).
			Background(Surface).
			Bold(true).
			PaddingLeft(1).
			BorderStyle(lipgloss.ThickBorder()).
			BorderLeft(true).
			BorderForeground(Accent)

	Owner = lipgloss.NewStyle().
		Foreground(Muted)

	// Detail pane under the list
	Detail = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Muted).
		Padding(0, 1)

	// Status line
	OK = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Notice = lipgloss.NewStyle().
		Foreground(Warning)

	Error = lipgloss.NewStyle().
		Foreground(Danger).
		Bold(true)

	Help = lipgloss.NewStyle().
		Foreground(Muted)

	KeyStyle = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)

	Label = lipgloss.NewStyle().
		Foreground(Muted).
		Width(12)

	Value = lipgloss.NewStyle().
		Foreground(Text).
		Bold(true)
)

// Field renders one "label value" line for command output.
func Field(label, value string) string {
	return Label.Render(label) + Value.Render(value)
}

// Key renders a key binding hint such as "r retry".
func Key(key, action string) string {
	return KeyStyle.Render(key) + " " + Help.Render(action)
}
