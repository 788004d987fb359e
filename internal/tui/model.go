package tui

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hersh/towerrelay/internal/netclient"
	"github.com/hersh/towerrelay/internal/protocol"
)

const (
	maxLogLines    = 12
	turretCost     = 150
	killReward     = 10
	waveBonus      = 50
	coreHitDamage  = 10
	enemiesPerWave = 8
)

// Conn is the relay connection the model drives.
type Conn interface {
	Send(env protocol.Envelope)
	Close()
}

// --- Custom tea.Msg types ---

type TickMsg time.Time

// --- Screens ---

type Screen int

const (
	ScreenConnecting Screen = iota
	ScreenMenu
	ScreenJoin
	ScreenRoom
)

// roomView is the client's copy of the room's shared counters.
type roomView struct {
	Wave       int               `json:"wave"`
	Coins      int               `json:"coins"`
	CoreHealth float64           `json:"coreHealth"`
	Enemies    []json.RawMessage `json:"enemies"`
}

// --- Model ---

type Model struct {
	screen     Screen
	playerID   string
	playerName string
	width      int
	height     int

	// Network
	conn    Conn
	nextAck int64
	pending map[int64]protocol.MessageType

	// Room state (from server)
	roomCode  string
	isHost    bool
	quickPlay bool
	players   []protocol.PlayerInfo
	state     roomView

	codeInput string
	events    []string

	// Error
	err          error
	disconnected bool
}

// NewModel creates a model for the relay console.
func NewModel(playerName string, conn Conn) Model {
	return Model{
		screen:     ScreenConnecting,
		playerName: playerName,
		conn:       conn,
		pending:    make(map[int64]protocol.MessageType),
	}
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case TickMsg:
		return m, tickCmd()

	// Network messages
	case netclient.ConnectedMsg:
		m.playerID = msg.PlayerID
		if m.playerName == "" {
			m.playerName = msg.Name
		}
		m.screen = ScreenMenu
		return m, nil
	case netclient.DisconnectedMsg:
		m.disconnected = true
		m.err = msg.Err
		return m, nil
	case netclient.AckMsg:
		return m.handleAck(msg)
	case netclient.ServerMsg:
		return m.handleServerMsg(msg)
	}
	return m, nil
}

// request sends an event with a fresh ack id.
func (m *Model) request(typ protocol.MessageType, payload interface{}) {
	m.nextAck++
	m.pending[m.nextAck] = typ
	m.send(protocol.Envelope{Type: typ, Payload: payload, Ack: m.nextAck})
}

func (m *Model) send(env protocol.Envelope) {
	if m.conn != nil {
		m.conn.Send(env)
	}
}

func (m *Model) logf(format string, args ...interface{}) {
	m.events = append(m.events, fmt.Sprintf(format, args...))
	if over := len(m.events) - maxLogLines; over > 0 {
		m.events = m.events[over:]
	}
}

func (m *Model) nameOf(id string) string {
	if id == m.playerID {
		return "you"
	}
	for _, p := range m.players {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

func (m *Model) setPlayers(players []protocol.PlayerInfo) {
	m.players = players
	m.isHost = len(players) > 0 && players[0].ID == m.playerID
}

// --- Network message handlers ---

func (m Model) handleAck(msg netclient.AckMsg) (tea.Model, tea.Cmd) {
	typ, ok := m.pending[msg.ID]
	if !ok {
		return m, nil
	}
	delete(m.pending, msg.ID)

	var ack protocol.RoomJoinedAck
	if err := json.Unmarshal(msg.Raw, &ack); err != nil {
		m.logf("bad %s reply: %v", typ, err)
		return m, nil
	}
	if !ack.Success {
		m.logf("%s failed: %s", typ, ack.Reason)
		if m.screen == ScreenJoin {
			m.screen = ScreenMenu
		}
		return m, nil
	}

	m.roomCode = ack.RoomCode
	m.quickPlay = false
	m.setPlayers(ack.Players)
	m.isHost = ack.IsHost
	m.screen = ScreenRoom
	m.codeInput = ""
	m.logf("joined room %s", ack.RoomCode)
	return m, nil
}

func (m Model) handleServerMsg(msg netclient.ServerMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.MsgGameState:
		var payload roomView
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state = payload
		}

	case protocol.MsgGameReset:
		var payload struct {
			GameState roomView `json:"gameState"`
		}
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state = payload.GameState
			m.logf("game reset")
		}

	case protocol.MsgPlayerJoined:
		var payload protocol.PlayerJoinedPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.setPlayers(append(m.players, protocol.PlayerInfo{ID: payload.PlayerID, Name: payload.Name}))
			m.logf("%s joined", payload.Name)
		}

	case protocol.MsgPlayerLeft:
		var payload protocol.PlayerLeftPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			name := m.nameOf(payload.PlayerID)
			remaining := make([]protocol.PlayerInfo, 0, len(m.players))
			for _, p := range m.players {
				if p.ID != payload.PlayerID {
					remaining = append(remaining, p)
				}
			}
			m.setPlayers(remaining)
			m.logf("%s left", name)
		}

	case protocol.MsgQuickPlayWaiting:
		var payload protocol.QuickPlayWaitingPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.setPlayers(payload.Players)
		}

	case protocol.MsgQuickPlayJoined:
		var payload protocol.RoomJoinedAck
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.quickPlay = true
			m.logf("quick play room %s, %d waiting", payload.RoomCode, payload.PlayerCount)
		}

	case protocol.MsgQuickPlayReady:
		m.logf("match ready")

	case protocol.MsgProjectileShot:
		var payload protocol.ProjectileShotPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.logf("%s fired %s", m.nameOf(payload.PlayerID), payload.Projectile.ID)
		}

	case protocol.MsgEnemyHit:
		var payload protocol.EnemyHitBroadcast
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.logf("%s hit enemy #%d for %.0f", m.nameOf(payload.PlayerID), payload.EnemyIndex, payload.Damage)
		}

	case protocol.MsgEnemySpawned:
		m.state.Enemies = append(m.state.Enemies, msg.Raw)

	case protocol.MsgEnemyKilled:
		var payload protocol.EnemyKilledBroadcast
		if json.Unmarshal(msg.Raw, &payload) == nil {
			if i := payload.EnemyIndex; i >= 0 && i < len(m.state.Enemies) {
				m.state.Enemies = append(m.state.Enemies[:i], m.state.Enemies[i+1:]...)
			}
			m.state.Coins = payload.TotalCoins
			m.logf("%s killed enemy #%d (+%d)", m.nameOf(payload.PlayerID), payload.EnemyIndex, payload.Coins)
		}

	case protocol.MsgCoreHit:
		var payload protocol.CoreHitBroadcast
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state.CoreHealth = payload.CoreHealth
			m.logf("core hit for %.0f", payload.Damage)
		}

	case protocol.MsgWaveComplete:
		var payload protocol.WaveCompleteBroadcast
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state.Wave = payload.Wave
			m.state.Coins = payload.TotalCoins
			m.logf("wave %d begins (+%d)", payload.Wave, payload.Bonus)
		}

	case protocol.MsgShopPurchase:
		var payload protocol.ShopPurchaseBroadcast
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state.Coins = payload.TotalCoins
			m.logf("%s bought %s for %d", m.nameOf(payload.PlayerID), payload.Type, payload.Cost)
		}

	case protocol.MsgShopPurchaseFailed:
		var payload protocol.ShopPurchaseFailedPayload
		if json.Unmarshal(msg.Raw, &payload) == nil {
			m.state.Coins = payload.TotalCoins
			m.logf("purchase of %s failed: %s", payload.Type, payload.Reason)
		}
	}

	return m, nil
}

// --- Key handlers ---

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		if m.conn != nil {
			m.conn.Close()
		}
		return m, tea.Quit
	}

	switch m.screen {
	case ScreenMenu:
		return m.handleMenuKeys(msg)
	case ScreenJoin:
		return m.handleJoinKeys(msg)
	case ScreenRoom:
		return m.handleRoomKeys(msg)
	}
	return m, nil
}

func (m Model) handleMenuKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "c":
		m.request(protocol.MsgCreateRoom, nil)
	case "q":
		m.request(protocol.MsgQuickPlay, nil)
	case "j":
		m.screen = ScreenJoin
		m.codeInput = ""
	case "esc":
		if m.conn != nil {
			m.conn.Close()
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleJoinKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.screen = ScreenMenu
		m.codeInput = ""
	case tea.KeyEnter:
		m.request(protocol.MsgJoinRoomByCode, protocol.JoinRoomPayload{RoomCode: m.codeInput})
	case tea.KeyBackspace:
		if len(m.codeInput) > 0 {
			m.codeInput = m.codeInput[:len(m.codeInput)-1]
		}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			if len(m.codeInput) < 6 && isCodeRune(r) {
				m.codeInput += strings.ToUpper(string(r))
			}
		}
	}
	return m, nil
}

func isCodeRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func (m Model) handleRoomKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "b":
		m.send(protocol.Envelope{
			Type:    protocol.MsgShopPurchase,
			Payload: protocol.ShopPurchasePayload{Type: "turret", Cost: turretCost},
		})
	case "s":
		m.send(protocol.Envelope{
			Type: protocol.MsgShoot,
			Payload: protocol.ShootPayload{
				Position:    json.RawMessage(`{"x":0,"y":1,"z":0}`),
				Velocity:    json.RawMessage(`{"x":0,"y":0,"z":20}`),
				Radius:      0.2,
				Mass:        1,
				AmmoType:    "basic",
				ChargeLevel: 1,
			},
		})
	case "e":
		m.send(protocol.Envelope{
			Type: protocol.MsgEnemySpawned,
			Payload: protocol.EnemySpawnedPayload{
				ID:        fmt.Sprintf("%s-%d", m.playerID, len(m.state.Enemies)),
				Type:      "basic",
				Health:    30,
				MaxHealth: 30,
				Speed:     1,
				Damage:    coreHitDamage,
				Radius:    0.5,
				Coins:     killReward,
			},
		})
	case "x":
		m.send(protocol.Envelope{
			Type:    protocol.MsgEnemyHit,
			Payload: protocol.EnemyHitPayload{EnemyIndex: 0, Damage: 10},
		})
	case "k":
		m.send(protocol.Envelope{
			Type:    protocol.MsgEnemyKilled,
			Payload: protocol.EnemyKilledPayload{EnemyIndex: 0, Coins: killReward},
		})
	case "h":
		m.send(protocol.Envelope{
			Type:    protocol.MsgCoreHit,
			Payload: protocol.CoreHitPayload{Damage: coreHitDamage},
		})
	case "w":
		m.send(protocol.Envelope{
			Type: protocol.MsgWaveComplete,
			Payload: protocol.WaveCompletePayload{
				Bonus:          waveBonus,
				EnemiesToSpawn: enemiesPerWave + m.state.Wave,
			},
		})
	case "y":
		if !m.isHost {
			m.logf("only the host can sync")
			break
		}
		m.send(protocol.Envelope{
			Type: protocol.MsgGameStateSync,
			Payload: protocol.GameStateSyncPayload{
				Coins:      m.state.Coins,
				CoreHealth: m.state.CoreHealth,
				Wave:       m.state.Wave,
			},
		})
	case "g":
		m.send(protocol.Envelope{Type: protocol.MsgGameOver})
	case "l":
		m.send(protocol.Envelope{Type: protocol.MsgLeaveRoom})
		m.screen = ScreenMenu
		m.roomCode = ""
		m.isHost = false
		m.players = nil
		m.state = roomView{}
		m.logf("left room")
	}
	return m, nil
}

// --- View ---

func (m Model) View() string {
	if m.disconnected {
		return m.renderCentered("Disconnected from server.\nPress Ctrl+C to exit.")
	}

	switch m.screen {
	case ScreenConnecting:
		return m.renderCentered("Connecting to relay...")
	case ScreenMenu:
		return m.renderCentered(RenderMenu(m.playerName) + "\n" + RenderLog(m.events))
	case ScreenJoin:
		return m.renderCentered(RenderJoinPrompt(m.codeInput))
	case ScreenRoom:
		return m.renderRoom()
	}
	return ""
}

func (m Model) renderCentered(content string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func (m Model) renderRoom() string {
	status := RenderStatus(m.roomCode, m.isHost, m.quickPlay, m.state.Wave, m.state.Coins, m.state.CoreHealth, len(m.state.Enemies))
	players := RenderPlayers(m.players, m.playerID)

	leftPanel := lipgloss.NewStyle().
		Width(32).
		Render(status + "\n\n" + players)

	rightPanel := lipgloss.NewStyle().
		Padding(0, 2).
		Render(RenderLog(m.events) + "\n" + RenderControls())

	return m.renderCentered(lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel))
}
