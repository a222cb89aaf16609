package confab

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"confab/message"
	"confab/store"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // bright blue

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // cyan

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")) // orange-ish

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Faint(true)
)

// renderTranscript writes the full history, role-colored, to w. Used by the
// in-session `history` command.
func renderTranscript(w io.Writer, history []message.Message) {
	for _, m := range history {
		switch m.Role {
		case message.RoleSystem:
			fmt.Fprintln(w, systemStyle.Render("[system] "+m.Text()))
		case message.RoleUser:
			fmt.Fprintln(w, userStyle.Render("you: ")+m.Text())
		case message.RoleAssistant:
			fmt.Fprintln(w, assistantStyle.Render("assistant: ")+m.Text())
			for _, p := range m.Parts {
				if p.Type == message.PartToolCall {
					fmt.Fprintln(w, toolStyle.Render(fmt.Sprintf("  -> %s(%s)", p.ToolCall.Name, FormatToolInput(p.ToolCall.Input))))
				}
			}
		case message.RoleTool:
			for _, p := range m.Parts {
				if p.Type == message.PartToolResult {
					fmt.Fprintln(w, toolStyle.Render("  <- ")+summarize(p.ToolResult.Content, 120))
				}
			}
		}
	}
}

// renderCatalog writes the saved-conversation listing used for resume
// selection and the `list` command.
func renderCatalog(w io.Writer, entries []store.Metadata) {
	for _, e := range entries {
		line := fmt.Sprintf("%2d. %s", e.DisplayID, summarize(e.Title, 48))
		meta := fmt.Sprintf("  (%d messages, %s)", e.MessageCount, e.LastModified.Format("2006-01-02 15:04"))
		fmt.Fprintln(w, line+dimStyle.Render(meta))
	}
}

func summarize(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
