package chatclient

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"modelchat-backend/internal/models"
)

// Theme holds the terminal colors.
type Theme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Canned    lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
}

var DefaultTheme = Theme{
	User:      lipgloss.Color("#5FAFD7"),
	Assistant: lipgloss.Color("#00D787"),
	Canned:    lipgloss.Color("#D7AF5F"),
	Error:     lipgloss.Color("#FF005F"),
	Hint:      lipgloss.Color("#6C6C6C"),
}

func (t Theme) label(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// RenderHistory formats a conversation. names maps tags to display names.
func (t Theme) RenderHistory(history []*models.Message, names map[string]string) string {
	if len(history) == 0 {
		return lipgloss.NewStyle().Foreground(t.Hint).Italic(true).Render("No messages yet.")
	}

	var b strings.Builder
	for i, m := range history {
		stamp := lipgloss.NewStyle().Foreground(t.Hint).Render(m.CreatedAt.Local().Format("15:04:05"))
		var who string
		if m.Role == models.RoleUser {
			who = t.label(t.User).Render("You")
		} else {
			name := names[m.ModelTag]
			if name == "" {
				name = m.ModelTag
			}
			color := t.Assistant
			if isCanned(m.Content) {
				color = t.Canned
			}
			who = t.label(color).Render(name)
		}
		fmt.Fprintf(&b, "%s %s\n%s\n", stamp, who, m.Content)

		// A user turn with no reply after it.
		if m.Role == models.RoleUser && (i == len(history)-1 || history[i+1].Role == models.RoleUser) {
			b.WriteString(lipgloss.NewStyle().Foreground(t.Hint).Italic(true).Render("(no reply stored)"))
			b.WriteString("\n")
		}
		if i < len(history)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderModels formats the catalog, marking the selected tag.
func (t Theme) RenderModels(list []*models.Model, selected string) string {
	if len(list) == 0 {
		return lipgloss.NewStyle().Foreground(t.Hint).Italic(true).Render("No models available.")
	}
	var b strings.Builder
	for _, m := range list {
		marker := "  "
		if m.Tag == selected {
			marker = t.label(t.Assistant).Render("* ")
		}
		fmt.Fprintf(&b, "%s%s %s", marker, t.label(t.User).Render(m.Name), lipgloss.NewStyle().Foreground(t.Hint).Render("("+m.Tag+")"))
		if m.Description != nil {
			fmt.Fprintf(&b, " - %s", *m.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (t Theme) RenderError(err error) string {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true).Render(DescribeError(err))
}

func isCanned(content string) bool {
	head := content
	if i := strings.Index(head, "]"); i > 0 {
		head = head[:i]
	}
	return strings.HasPrefix(content, "[") && (strings.Contains(head, "Simulated Response") || strings.Contains(head, "Fallback Response"))
}
