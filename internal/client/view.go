package client

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
)

var (
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	typingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Italic(true)
)

var banner = bannerStyle.Render(strings.TrimRight(figure.NewFigure("driftline", "", true).String(), "\n"))

func (a *App) View() string {
	var b strings.Builder

	if !a.joined && len(a.messages) == 0 {
		b.WriteString(banner)
		b.WriteString("\n")
	}

	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.typingLine())
	b.WriteString("\n")
	b.WriteString(a.input.View())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(a.logLine))

	return b.String()
}

func (a *App) typingLine() string {
	if len(a.typing) == 0 {
		return ""
	}
	users := make([]string, 0, len(a.typing))
	for user := range a.typing {
		users = append(users, user)
	}
	sort.Strings(users)
	suffix := " is typing..."
	if len(users) > 1 {
		suffix = " are typing..."
	}
	return typingStyle.Render(strings.Join(users, ", ") + suffix)
}

func (a *App) resize() {
	const fixed = 3
	height := a.height - fixed
	if height < 3 {
		height = 3
	}
	a.viewport.Height = height
	a.viewport.Width = a.width
	a.input.Width = a.width
	a.refreshViewport()
}

func (a *App) refreshViewport() {
	if len(a.messages) == 0 {
		a.viewport.SetContent("No chat messages yet. Type and press Enter to send.")
		return
	}
	a.viewport.SetContent(strings.Join(a.messages, "\n"))
	a.viewport.GotoBottom()
}
