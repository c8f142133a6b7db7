package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dictafield/notify"
	"dictafield/recorder"
)

// TUI message types
type StateMsg struct{ State recorder.State }
type AudioLevelMsg struct{ Level float64 }
type WarningMsg struct{ On bool }
type NotificationMsg struct{ N notify.Notification }
type TranscriptionMsg struct{ Text string }
type FieldValueMsg struct{ Value string }
type DeviceMsg struct{ Name string }
type InfoMsg struct {
	Server, Target, Device, Hotkey string
}
type tickMsg time.Time

const feedSize = 6

type tuiActions struct {
	toggle       func()
	copyLast     func()
	selectDevice func()
}

type feedEntry struct {
	at time.Time
	n  notify.Notification
}

type tuiModel struct {
	actions tuiActions

	state      recorder.State
	startedAt  time.Time
	now        time.Time
	audioLevel float64
	peakLevel  float64
	noVoice    bool

	info       InfoMsg
	lastText   string
	count      int
	fieldValue string
	feed       []feedEntry

	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	recStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKey     = lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	meterStyles = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("226")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	typeStyles = map[notify.Type]lipgloss.Style{
		notify.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		notify.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		notify.Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		notify.Danger:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func NewTUIProgram(actions tuiActions, info InfoMsg) *tea.Program {
	return tea.NewProgram(tuiModel{actions: actions, info: info, now: time.Now()}, tea.WithAltScreen())
}

func tuiSend(msg tea.Msg) {
	tuiMu.Lock()
	p := tuiProgram
	tuiMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

// tuiSink forwards pipeline events to the running program.
type tuiSink struct{}

func (tuiSink) Add(n notify.Notification) { tuiSend(NotificationMsg{N: n}) }
func (tuiSink) SetRecording(on bool) {
	if on {
		tuiSend(StateMsg{State: recorder.StateRecording})
	} else {
		tuiSend(StateMsg{State: recorder.StateIdle})
	}
}
func (tuiSink) SetWarning(on bool) { tuiSend(WarningMsg{On: on}) }

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "r":
			call(m.actions.toggle)
		case "c":
			call(m.actions.copyLast)
		case "d":
			if m.state == recorder.StateIdle {
				call(m.actions.selectDevice)
			}
		}

	case tickMsg:
		m.now = time.Time(msg)
		return m, tuiTick()

	case StateMsg:
		if msg.State == recorder.StateRecording && m.state != recorder.StateRecording {
			m.startedAt = time.Now()
			m.now = m.startedAt
			m.peakLevel = 0
		}
		if msg.State != recorder.StateRecording {
			m.audioLevel = 0
			m.noVoice = false
		}
		m.state = msg.State

	case AudioLevelMsg:
		if m.state == recorder.StateRecording {
			m.audioLevel = m.audioLevel*0.6 + msg.Level*0.4
			m.peakLevel = max(m.peakLevel, msg.Level)
		}

	case WarningMsg:
		m.noVoice = msg.On

	case NotificationMsg:
		m.feed = append(m.feed, feedEntry{at: time.Now(), n: msg.N})
		if len(m.feed) > feedSize {
			m.feed = m.feed[len(m.feed)-feedSize:]
		}

	case TranscriptionMsg:
		m.count++
		m.lastText = msg.Text

	case FieldValueMsg:
		m.fieldValue = msg.Value

	case DeviceMsg:
		m.info.Device = msg.Name

	case InfoMsg:
		m.info = msg
	}
	return m, nil
}

// renderMeter draws level (0..1 RMS, scaled for speech) as a bar of width
// cells going green, yellow, red.
func renderMeter(level float64, width int) string {
	filled := min(int(level*4*float64(width)+0.5), width)
	var b strings.Builder
	for i := range width {
		if i >= filled {
			b.WriteString(dimStyle.Render("·"))
			continue
		}
		zone := min(i*3/width, 2)
		b.WriteString(meterStyles[zone].Render("█"))
	}
	return b.String()
}

func (m tuiModel) statusLine() string {
	switch m.state {
	case recorder.StateRecording:
		s := recStyle.Render(fmt.Sprintf("● REC %.1fs", m.now.Sub(m.startedAt).Seconds()))
		if m.noVoice {
			s += warnStyle.Render("  ⚠ no voice detected")
		}
		return s
	case recorder.StateRequesting:
		return warnStyle.Render("◌ opening microphone…")
	default:
		return dimStyle.Render("○ STANDBY")
	}
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	width := max(m.width-2, 20)

	var left []string
	left = append(left, m.statusLine(), renderMeter(m.audioLevel, 30), "")
	for _, kv := range [][2]string{
		{"server", m.info.Server},
		{"target", m.info.Target},
		{"mic", m.info.Device},
	} {
		if kv[1] != "" {
			left = append(left, labelStyle.Render(fmt.Sprintf("%-7s", kv[0]))+dimStyle.Render(kv[1]))
		}
	}
	left = append(left, "")
	for _, e := range m.feed {
		style, ok := typeStyles[e.n.Type]
		if !ok {
			style = dimStyle
		}
		left = append(left, dimStyle.Render(e.at.Format("15:04:05")+" ")+style.Render(e.n.Message))
	}
	left = append(left, "")

	hk := m.info.Hotkey
	if hk == "" {
		hk = "space"
	}
	left = append(left,
		helpKey.Render(hk)+helpStyle.Render(" / ")+helpKey.Render("space")+helpStyle.Render(" record  ")+
			helpKey.Render("c")+helpStyle.Render(" copy  ")+
			helpKey.Render("d")+helpStyle.Render(" mic  ")+
			helpKey.Render("q")+helpStyle.Render(" quit"),
		helpStyle.Render("dictafield "+version),
	)

	var right strings.Builder
	if m.lastText != "" {
		right.WriteString(labelStyle.Render(fmt.Sprintf("Last transcription (#%d)", m.count)) + "\n\n")
		for _, line := range wrapText(m.lastText, width/2-2) {
			right.WriteString(textStyle.Render(line) + "\n")
		}
	} else {
		right.WriteString(dimStyle.Render("No transcriptions yet") + "\n")
	}
	if m.fieldValue != "" {
		right.WriteString("\n" + labelStyle.Render("Field value") + "\n\n")
		for _, line := range strings.Split(m.fieldValue, "\n") {
			for _, w := range wrapText(line, width/2-2) {
				right.WriteString(dimStyle.Render(w) + "\n")
			}
		}
	}

	leftPanel := lipgloss.NewStyle().Width(width / 2).Height(m.height).Render(strings.Join(left, "\n"))
	rightPanel := lipgloss.NewStyle().Width(width - width/2).Height(m.height).PaddingLeft(1).Render(right.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftPanel, rightPanel)
}

// wrapText breaks text at spaces so no line exceeds width runes.
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{""}
	}
	width = max(width, 1)

	var lines []string
	r := []rune(text)
	for len(r) > width {
		split := width
		for i := width; i > 0; i-- {
			if r[i] == ' ' {
				split = i
				break
			}
		}
		lines = append(lines, string(r[:split]))
		r = []rune(strings.TrimLeft(string(r[split:]), " "))
	}
	if len(r) > 0 {
		lines = append(lines, string(r))
	}
	return lines
}
