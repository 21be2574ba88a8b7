package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Controller is the slice of the room session the TUI drives. All media and
// chat actions go through it; the TUI never touches transports directly.
type Controller interface {
	SendChat(text string)
	ToggleAudio() bool
	ToggleVideo() bool
	StartScreenShare() error
	StopScreenShare() error
	MediaState() (audio, video, sharing bool)
	Leave()
}

// ChatLine is one rendered transcript entry.
type ChatLine struct {
	From      string
	Text      string
	Timestamp string
}

type updateType int

const (
	updateChat updateType = iota
	updateHistory
	updateParticipants
	updateStreamAttached
	updateStreamDetached
	updateMediaState
	updateNotice
	updateTerminal
)

// roomUpdate is a message sent from session callbacks to update the UI.
type roomUpdate struct {
	kind updateType

	line    ChatLine
	history []ChatLine

	participants int
	peer         string
	streamKind   string

	audio   bool
	video   bool
	sharing bool

	notice string
	err    error
}

// RoomUI owns the Bubble Tea program for one room session and bridges the
// session's event callbacks into UI messages.
type RoomUI struct {
	program    *tea.Program
	model      *roomModel
	updateChan chan roomUpdate
}

// NewRoomUI creates the room interface for the given identity.
func NewRoomUI(roomID, selfID string, ctrl Controller) *RoomUI {
	updateChan := make(chan roomUpdate, 100)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 500
	input.Focus()

	vp := viewport.New(76, 14)

	model := &roomModel{
		roomID:       roomID,
		selfID:       selfID,
		ctrl:         ctrl,
		spinner:      s,
		input:        input,
		viewport:     vp,
		participants: 1,
		audio:        true,
		video:        true,
		updateChan:   updateChan,
	}

	return &RoomUI{
		model:      model,
		updateChan: updateChan,
	}
}

// Run blocks until the user quits or the session fails.
func (ui *RoomUI) Run() error {
	ui.program = tea.NewProgram(ui.model, tea.WithAltScreen())
	_, err := ui.program.Run()
	return err
}

// AppendChat adds one live transcript line.
func (ui *RoomUI) AppendChat(from, text, timestamp string) {
	ui.push(roomUpdate{kind: updateChat, line: ChatLine{From: from, Text: text, Timestamp: timestamp}})
}

// ReplaceTranscript swaps the whole transcript, used for history replay.
func (ui *RoomUI) ReplaceTranscript(lines []ChatLine) {
	ui.push(roomUpdate{kind: updateHistory, history: lines})
}

// SetParticipants updates the room headcount.
func (ui *RoomUI) SetParticipants(count int) {
	ui.push(roomUpdate{kind: updateParticipants, participants: count})
}

// StreamAttached notes incoming media from a peer.
func (ui *RoomUI) StreamAttached(peer, kind string) {
	ui.push(roomUpdate{kind: updateStreamAttached, peer: peer, streamKind: kind})
}

// StreamDetached notes a peer's media going away.
func (ui *RoomUI) StreamDetached(peer string) {
	ui.push(roomUpdate{kind: updateStreamDetached, peer: peer})
}

// SetMediaState updates the local mute, camera and share indicators.
func (ui *RoomUI) SetMediaState(audio, video, sharing bool) {
	ui.push(roomUpdate{kind: updateMediaState, audio: audio, video: video, sharing: sharing})
}

// Notice shows a transient status line.
func (ui *RoomUI) Notice(text string) {
	ui.push(roomUpdate{kind: updateNotice, notice: text})
}

// Fail ends the UI with a terminal error.
func (ui *RoomUI) Fail(err error) {
	ui.push(roomUpdate{kind: updateTerminal, err: err})
}

func (ui *RoomUI) push(update roomUpdate) {
	select {
	case ui.updateChan <- update:
	default:
	}
}

// roomModel is the Bubble Tea model for the room view.
type roomModel struct {
	roomID string
	selfID string
	ctrl   Controller

	spinner  spinner.Model
	input    textinput.Model
	viewport viewport.Model

	lines        []string
	participants int
	audio        bool
	video        bool
	sharing      bool
	notice       string
	remoteMedia  map[string]string

	// controlMode routes single-key media commands; otherwise keys type
	// into the chat input.
	controlMode bool

	width    int
	height   int
	quitting bool
	err      error

	updateChan chan roomUpdate
}

func (m *roomModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		textinput.Blink,
		m.listenForUpdates(),
	)
}

func (m *roomModel) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		return <-m.updateChan
	}
}

func (m *roomModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 6
		m.viewport.Height = max(6, msg.Height-9)
		m.input.Width = msg.Width - 10
		m.refreshViewport()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case roomUpdate:
		m.handleUpdate(msg)
		if msg.kind == updateTerminal {
			m.quitting = true
			return m, tea.Quit
		}
		cmds = append(cmds, m.listenForUpdates())
	}

	return m, tea.Batch(cmds...)
}

// handleKey consumes keys with UI-level meaning; everything else falls
// through to the chat input.
func (m *roomModel) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		m.ctrl.Leave()
		return tea.Quit, true

	case "tab":
		m.controlMode = !m.controlMode
		if m.controlMode {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return nil, true

	case "esc":
		if m.controlMode {
			m.quitting = true
			m.ctrl.Leave()
			return tea.Quit, true
		}
		m.controlMode = true
		m.input.Blur()
		return nil, true

	case "enter":
		if m.controlMode {
			return nil, true
		}
		text := strings.TrimSpace(m.input.Value())
		if text != "" {
			m.ctrl.SendChat(text)
			m.input.SetValue("")
		}
		return nil, true
	}

	if !m.controlMode {
		return nil, false
	}

	switch msg.String() {
	case "m":
		m.ctrl.ToggleAudio()
	case "v":
		m.ctrl.ToggleVideo()
	case "s":
		_, _, sharing := m.ctrl.MediaState()
		var err error
		if sharing {
			err = m.ctrl.StopScreenShare()
		} else {
			err = m.ctrl.StartScreenShare()
		}
		if err != nil {
			m.notice = err.Error()
		}
	case "q":
		m.quitting = true
		m.ctrl.Leave()
		return tea.Quit, true
	}
	return nil, true
}

func (m *roomModel) handleUpdate(update roomUpdate) {
	switch update.kind {
	case updateChat:
		m.lines = append(m.lines, m.renderLine(update.line))
		m.refreshViewport()

	case updateHistory:
		m.lines = m.lines[:0]
		for _, line := range update.history {
			m.lines = append(m.lines, m.renderLine(line))
		}
		m.refreshViewport()

	case updateParticipants:
		m.participants = update.participants

	case updateStreamAttached:
		if m.remoteMedia == nil {
			m.remoteMedia = make(map[string]string)
		}
		m.remoteMedia[update.peer] = update.streamKind
		m.notice = fmt.Sprintf("%s is sending %s", update.peer, update.streamKind)

	case updateStreamDetached:
		delete(m.remoteMedia, update.peer)
		m.notice = fmt.Sprintf("%s stopped sending media", update.peer)

	case updateMediaState:
		m.audio = update.audio
		m.video = update.video
		m.sharing = update.sharing

	case updateNotice:
		m.notice = update.notice

	case updateTerminal:
		m.err = update.err
	}
}

func (m *roomModel) renderLine(line ChatLine) string {
	nameStyle := ChatPeerStyle
	if line.From == m.selfID {
		nameStyle = ChatSelfStyle
	}
	return fmt.Sprintf("%s %s %s",
		ChatTimeStyle.Render(line.Timestamp),
		nameStyle.Render(line.From+":"),
		line.Text,
	)
}

func (m *roomModel) refreshViewport() {
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *roomModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	header := HeaderStyle.Render(fmt.Sprintf("%s Gatherly - Room %s", IconRoom, m.roomID))
	b.WriteString(header + "\n")

	b.WriteString(m.viewStatus() + "\n\n")
	b.WriteString(m.viewport.View() + "\n\n")
	b.WriteString(m.input.View() + "\n")

	if m.notice != "" {
		b.WriteString(NoticeStyle.Render(m.notice) + "\n")
	}

	b.WriteString(m.viewFooter())

	return ContainerStyle.Render(b.String())
}

func (m *roomModel) viewStatus() string {
	mic := IconMic
	if !m.audio {
		mic = IconMuted
	}
	cam := fmt.Sprintf("%s on", IconCamera)
	if !m.video {
		cam = fmt.Sprintf("%s off", IconCamera)
	}

	parts := []string{
		fmt.Sprintf("%s %d in room", IconPeer, m.participants),
		mic,
		cam,
	}
	if m.sharing {
		parts = append(parts, SuccessStyle.Render(IconScreen+" sharing"))
	}
	if n := len(m.remoteMedia); n > 0 {
		parts = append(parts, MutedStyle.Render(fmt.Sprintf("%d incoming stream(s)", n)))
	}

	return strings.Join(parts, "  ")
}

func (m *roomModel) viewFooter() string {
	if m.controlMode {
		return FooterStyle.Render("controls: m mic / v camera / s share / q leave / tab back to chat")
	}
	return FooterStyle.Render("enter send / tab controls / ctrl+c leave")
}
