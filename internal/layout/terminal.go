package layout

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
)

// Terminal renders l for a terminal of the given width. Regions sit side by
// side in bordered boxes of equal width.
func (l Layout) Terminal(width int) string {
	if width < 40 {
		width = 40
	}
	header := headerStyle.Render(strings.ToUpper(l.Template))
	if len(l.Regions) == 0 {
		return header
	}

	// Each box adds two border and two padding columns.
	colWidth := width/len(l.Regions) - 4
	if colWidth < 16 {
		colWidth = 16
	}
	boxes := make([]string, 0, len(l.Regions))
	for _, r := range l.Regions {
		parts := make([]string, 0, 2*len(r.Blocks))
		for i, b := range r.Blocks {
			if i > 0 {
				parts = append(parts, "")
			}
			parts = append(parts, titleStyle.Render(b.Title))
			if b.Body != "" {
				parts = append(parts, bodyStyle.Render(b.Body))
			}
		}
		box := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1).
			Width(colWidth).
			Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
		boxes = append(boxes, box)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
}
