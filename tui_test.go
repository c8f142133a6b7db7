package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"dictafield/notify"
	"dictafield/recorder"
)

func update(m tuiModel, msgs ...tea.Msg) tuiModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(tuiModel)
	}
	return m
}

func TestWrapText(t *testing.T) {
	for _, tt := range []struct {
		text  string
		width int
		want  []string
	}{
		{"", 10, []string{""}},
		{"short", 10, []string{"short"}},
		{"call the customer back", 10, []string{"call the", "customer", "back"}},
		{"abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
		{"héllo wörld", 5, []string{"héllo", "wörld"}},
	} {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestKeysTriggerActions(t *testing.T) {
	var toggles, copies, selects int
	m := tuiModel{actions: tuiActions{
		toggle:       func() { toggles++ },
		copyLast:     func() { copies++ },
		selectDevice: func() { selects++ },
	}}

	m = update(m,
		tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")},
	)
	if toggles != 2 || copies != 1 || selects != 1 {
		t.Errorf("toggles=%d copies=%d selects=%d", toggles, copies, selects)
	}

	m = update(m, StateMsg{State: recorder.StateRecording}, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if selects != 1 {
		t.Error("device picker opened while recording")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Error("q did not quit")
	}
}

func TestStateAndLevel(t *testing.T) {
	m := update(tuiModel{}, AudioLevelMsg{Level: 0.5})
	if m.audioLevel != 0 {
		t.Error("level accepted while idle")
	}

	m = update(m, StateMsg{State: recorder.StateRecording}, AudioLevelMsg{Level: 0.5}, WarningMsg{On: true})
	if m.audioLevel == 0 || m.peakLevel != 0.5 || !m.noVoice {
		t.Errorf("level=%v peak=%v noVoice=%v", m.audioLevel, m.peakLevel, m.noVoice)
	}

	m = update(m, StateMsg{State: recorder.StateIdle})
	if m.audioLevel != 0 || m.noVoice {
		t.Error("recording state not cleared on stop")
	}
}

func TestFeedKeepsLatest(t *testing.T) {
	m := tuiModel{}
	for i := range feedSize + 3 {
		m = update(m, NotificationMsg{N: notify.Notification{Message: string(rune('a' + i))}})
	}
	if len(m.feed) != feedSize {
		t.Fatalf("feed len = %d", len(m.feed))
	}
	if m.feed[0].n.Message != "d" {
		t.Errorf("oldest kept = %q, want d", m.feed[0].n.Message)
	}
}

func TestView(t *testing.T) {
	m := update(tuiModel{},
		tea.WindowSizeMsg{Width: 120, Height: 30},
		InfoMsg{Server: "https://odoo.example.com", Target: "crm.lead#7.description", Device: "USB Mic", Hotkey: "ctrl+shift+space"},
		NotificationMsg{N: notify.Notification{Type: notify.Success, Message: "Text added successfully!"}},
		TranscriptionMsg{Text: "call the customer back"},
		FieldValueMsg{Value: "First contact\ncall the customer back"},
		DeviceMsg{Name: "Jabra"},
	)
	out := m.View()
	for _, want := range []string{"STANDBY", "crm.lead#7.description", "Jabra", "Text added successfully!", "Last transcription (#1)", "First contact"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = update(m, StateMsg{State: recorder.StateRequesting})
	if !strings.Contains(m.View(), "opening microphone") {
		t.Error("requesting state not shown")
	}
	if (tuiModel{}).View() != "Loading..." {
		t.Error("zero-size view should be placeholder")
	}
}
