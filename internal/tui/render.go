package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/towerrelay/internal/protocol"
)

const healthBarWidth = 20

var (
	infoStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("15"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	hostStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	damagedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	logStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("248"))

	codeStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("15")).
			Padding(0, 1)
)

func RenderMenu(playerName string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(`
╔══════════════════════════════╗
║      T O W E R   R E L A Y   ║
║   Cooperative Defense Rooms  ║
╚══════════════════════════════╝`) + "\n\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Playing as %s", playerName)) + "\n\n")
	sb.WriteString(infoStyle.Render("[C] Create room") + "\n")
	sb.WriteString(infoStyle.Render("[J] Join room by code") + "\n")
	sb.WriteString(infoStyle.Render("[Q] Quick play") + "\n")
	sb.WriteString(infoStyle.Render("[Esc] Quit") + "\n")

	return sb.String()
}

func RenderJoinPrompt(code string) string {
	padded := code + strings.Repeat("_", max(0, 6-len(code)))

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("=== JOIN ROOM ===") + "\n\n")
	sb.WriteString(codeStyle.Render(padded) + "\n\n")
	sb.WriteString(infoStyle.Render("Type the 6 character code, ENTER to join, ESC to cancel") + "\n")
	return sb.String()
}

func RenderStatus(code string, isHost, quickPlay bool, wave, coins int, coreHealth float64, enemies int) string {
	var sb strings.Builder

	title := "ROOM " + code
	if quickPlay {
		title += " (quick play)"
	}
	sb.WriteString(titleStyle.Render(title) + "\n")
	if isHost {
		sb.WriteString(hostStyle.Render("You are the host") + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Wave:    %d", wave)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Coins:   %d", coins)) + "\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("Enemies: %d", enemies)) + "\n")
	sb.WriteString(infoStyle.Render("Core:") + " " + RenderHealthBar(coreHealth) + "\n")

	return sb.String()
}

// RenderHealthBar draws core health out of 100.
func RenderHealthBar(health float64) string {
	health = max(0, min(health, 100))
	filled := int(health / 100 * healthBarWidth)

	style := healthyStyle
	if health < 35 {
		style = damagedStyle
	}
	return style.Render(strings.Repeat("█", filled)) +
		logStyle.Render(strings.Repeat("·", healthBarWidth-filled)) +
		fmt.Sprintf(" %3.0f", health)
}

func RenderPlayers(players []protocol.PlayerInfo, self string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("PLAYERS (%d)", len(players))) + "\n")
	for i, p := range players {
		marker := ""
		if p.ID == self {
			marker = " <"
		}
		line := fmt.Sprintf("%s%s", p.Name, marker)
		if i == 0 {
			line = hostStyle.Render("★ ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}

	return sb.String()
}

func RenderLog(events []string) string {
	if len(events) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("EVENTS") + "\n")
	for _, e := range events {
		sb.WriteString(logStyle.Render(e) + "\n")
	}
	return sb.String()
}

func RenderControls() string {
	return infoStyle.Render(`
Controls:
  B  Buy turret (150)
  S  Shoot
  E  Spawn enemy
  X  Hit enemy #0
  K  Kill enemy #0
  H  Core hit
  W  Wave complete
  Y  Sync state (host)
  G  Game over
  L  Leave room
`)
}
