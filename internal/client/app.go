package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/protocol"
)

// App implements the bubbletea tea.Model interface for the terminal client.
type App struct {
	cfg      config.ClientConfig
	session  *Session
	input    textinput.Model
	viewport viewport.Model
	messages []string
	typing   map[string]bool
	joined   bool
	wasEmpty bool
	logLine  string
	width    int
	height   int
}

type connectResultMsg struct{ err error }

type envelopeMsg protocol.Envelope

type sessionClosedMsg struct{}

// NewApp returns a Bubble Tea model pre-populated with defaults.
func NewApp(cfg config.ClientConfig) *App {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Focus()
	input.CharLimit = 512

	return &App{
		cfg:      cfg,
		session:  NewSession(cfg),
		input:    input,
		viewport: viewport.New(0, 0),
		messages: make([]string, 0, 128),
		typing:   make(map[string]bool),
		wasEmpty: true,
	}
}

// Init is part of the tea.Model interface.
func (a *App) Init() tea.Cmd {
	return a.connectCmd()
}

func (a *App) connectCmd() tea.Cmd {
	return func() tea.Msg {
		// The session outlives this command; the dialer carries its own
		// handshake timeout.
		return connectResultMsg{err: a.session.Connect(context.Background())}
	}
}

func (a *App) waitForEnvelope() tea.Cmd {
	return func() tea.Msg {
		select {
		case env, ok := <-a.session.Inbound():
			if !ok {
				return sessionClosedMsg{}
			}
			return envelopeMsg(env)
		case <-a.session.Closed():
			return sessionClosedMsg{}
		}
	}
}

// Update handles user input and server events.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		a.height = m.Height
		a.resize()
		return a, nil
	case tea.KeyMsg:
		return a.handleKey(m)
	case connectResultMsg:
		return a.handleConnectResult(m)
	case envelopeMsg:
		return a.handleEnvelope(protocol.Envelope(m))
	case sessionClosedMsg:
		a.logLine = "disconnected from server"
		a.joined = false
		return a, nil
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		_ = a.session.Close()
		return a, tea.Quit
	case tea.KeyEnter:
		return a, a.submitInput()
	case tea.KeyPgUp:
		a.viewport.LineUp(a.viewport.Height)
		return a, nil
	case tea.KeyPgDown:
		a.viewport.LineDown(a.viewport.Height)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, tea.Batch(cmd, a.emitTyping())
}

// emitTyping notifies the room when the input transitions between empty
// and non-empty.
func (a *App) emitTyping() tea.Cmd {
	if !a.joined {
		return nil
	}
	empty := strings.TrimSpace(a.input.Value()) == ""
	if empty == a.wasEmpty {
		return nil
	}
	a.wasEmpty = empty
	payload := protocol.Typing{
		Room:     a.cfg.Room,
		Username: a.cfg.Username,
		IsTyping: !empty,
	}
	return func() tea.Msg {
		_ = a.session.Send(protocol.EventTypeTyping, payload)
		return nil
	}
}

func (a *App) submitInput() tea.Cmd {
	body := strings.TrimSpace(a.input.Value())
	if body == "" || !a.joined {
		return nil
	}
	a.input.Reset()
	a.wasEmpty = true

	send := func() tea.Msg {
		_ = a.session.Send(protocol.EventTypeMessage, protocol.ChatMessage{
			Message:  body,
			Room:     a.cfg.Room,
			Username: a.cfg.Username,
		})
		_ = a.session.Send(protocol.EventTypeTyping, protocol.Typing{
			Room:     a.cfg.Room,
			Username: a.cfg.Username,
			IsTyping: false,
		})
		return nil
	}
	return send
}

func (a *App) handleConnectResult(msg connectResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logLine = fmt.Sprintf("connect failed: %v", msg.err)
		return a, nil
	}
	a.logLine = fmt.Sprintf("connected, joining %q as %s", a.cfg.Room, a.cfg.Username)

	join := func() tea.Msg {
		_ = a.session.Send(protocol.EventTypeJoin, protocol.JoinRequest{
			Room:     a.cfg.Room,
			Username: a.cfg.Username,
		})
		return nil
	}
	return a, tea.Batch(join, a.waitForEnvelope())
}

func (a *App) handleEnvelope(env protocol.Envelope) (tea.Model, tea.Cmd) {
	switch env.Type {
	case protocol.EventTypeChatHistory:
		var history protocol.ChatHistory
		if err := env.DecodePayload(&history); err == nil {
			a.joined = true
			a.messages = a.messages[:0]
			for _, msg := range history.Messages {
				a.appendMessage(msg.Timestamp, msg.Username, msg.Message)
			}
			a.logLine = fmt.Sprintf("joined %q (%d recent messages)", history.Room, len(history.Messages))
		}
	case protocol.EventTypeNewMessage:
		var msg protocol.NewMessage
		if err := env.DecodePayload(&msg); err == nil {
			delete(a.typing, msg.Username)
			a.appendMessage(msg.Timestamp, msg.Username, msg.Message)
		}
	case protocol.EventTypeTypingStatus:
		var status protocol.TypingStatus
		if err := env.DecodePayload(&status); err == nil {
			if status.IsTyping {
				a.typing[status.Username] = true
			} else {
				delete(a.typing, status.Username)
			}
		}
	}
	a.refreshViewport()
	return a, a.waitForEnvelope()
}

func (a *App) appendMessage(ts time.Time, username, body string) {
	line := fmt.Sprintf("%s %s: %s", ts.Local().Format("15:04"), username, body)
	a.messages = append(a.messages, line)
	a.refreshViewport()
}
