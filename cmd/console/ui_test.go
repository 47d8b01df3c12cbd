package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/story"
)

func newTestUI(t *testing.T, rolls ...int) (ConsoleUI, *string) {
	t.Helper()
	s, err := story.LoadFile("../../data/stories/haragoth.json")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	e, err := engine.New(s, engine.WithRoller(dice.NewSequence(rolls...)))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	sess, err := e.NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	var copied string
	m := NewConsoleUI(&ConsoleConfig{Story: "haragoth"}, sess)
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	m = send(t, m, m.Init()())
	m = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, &copied
}

// send feeds msg to the model and runs any intent or copy command it returns.
func send(t *testing.T, m ConsoleUI, msg tea.Msg) ConsoleUI {
	t.Helper()
	model, cmd := m.Update(msg)
	next, ok := model.(ConsoleUI)
	if !ok {
		t.Fatalf("Update returned %T", model)
	}
	if cmd == nil {
		return next
	}
	switch out := cmd().(type) {
	case snapshotMsg, copiedMsg:
		return send(t, next, out)
	}
	return next
}

func press(t *testing.T, m ConsoleUI, key string) ConsoleUI {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
}

func TestConsoleUI_Start(t *testing.T) {
	m, _ := newTestUI(t)

	if m.busy {
		t.Error("Expected the initial snapshot to clear busy")
	}
	if m.snap == nil || m.snap.Passage.ID != "prologue" {
		t.Fatalf("Expected prologue snapshot, got %+v", m.snap)
	}

	view := m.View()
	for _, want := range []string{AppTitle, "LA TRAHISON ET LE CORBEAU", "[1] Résister et partir", "[2] Écouter le corbeau"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestConsoleUI_PlayIntoCombat(t *testing.T) {
	m, _ := newTestUI(t, 5, 2)

	m = press(t, m, "1")
	if m.snap.Passage.ID != "lisiere" {
		t.Fatalf("Expected lisiere, got %s", m.snap.Passage.ID)
	}
	m = press(t, m, "1")
	if m.snap.Combat == nil || m.snap.Combat.EnemyName != "Bandit" {
		t.Fatalf("Expected a fight with the bandit, got %+v", m.snap.Combat)
	}
	if !strings.Contains(m.View(), "[a] Attack") {
		t.Error("Expected the attack prompt during combat")
	}

	m = press(t, m, "a")
	if m.snap.Combat.EnemyHP != 5 {
		t.Errorf("Expected bandit at 5 hp, got %d", m.snap.Combat.EnemyHP)
	}
	last := m.transcript[len(m.transcript)-1]
	if last.kind != entryRound || !strings.Contains(last.text, "Bandit is hit for 3") {
		t.Errorf("Expected the round in the transcript, got %+v", last)
	}
}

func TestConsoleUI_Victory(t *testing.T) {
	m, _ := newTestUI(t, 6, 1, 6, 1, 6, 1)

	m = press(t, m, "1")
	m = press(t, m, "1")
	for range 3 {
		m = press(t, m, "a")
	}

	if m.snap.Passage.ID != "apres_bandit" {
		t.Fatalf("Expected apres_bandit after victory, got %s", m.snap.Passage.ID)
	}
	if m.snap.Combat == nil || m.snap.Combat.Result != "victory" {
		t.Errorf("Expected the finished fight in the snapshot, got %+v", m.snap.Combat)
	}

	transcript := m.plainTranscript()
	if !strings.Contains(transcript, "Victory: Bandit is defeated.") {
		t.Errorf("Expected victory line, got:\n%s", transcript)
	}
	if !strings.HasSuffix(transcript, "BUTIN DU BANDIT\n\nTu fouilles son cadavre. Peut-être trouveras-tu de quoi survivre...") {
		t.Errorf("Expected transcript to end on the loot passage, got:\n%s", transcript)
	}
	if !strings.Contains(m.View(), "[1] Avancer vers la forêt") {
		t.Error("Expected choices to return after the fight")
	}
}

func TestConsoleUI_RejectedIntents(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
		wantMsg string
	}{
		{name: "attack outside combat", key: "a", wantErr: engine.ErrNoActiveCombat, wantMsg: "There is nothing to fight here."},
		{name: "choice out of range", key: "9", wantErr: engine.ErrInvalidChoice, wantMsg: "That choice is not available."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestUI(t)
			before := len(m.transcript)

			m = press(t, m, tt.key)

			if !errors.Is(m.err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, m.err)
			}
			if m.snap.Passage.ID != "prologue" || m.snap.Turn != 0 {
				t.Errorf("Expected state unchanged, got %s turn %d", m.snap.Passage.ID, m.snap.Turn)
			}
			if len(m.transcript) != before {
				t.Errorf("Expected transcript unchanged, got %d entries", len(m.transcript))
			}
			if !strings.Contains(m.View(), tt.wantMsg) {
				t.Errorf("Expected view to show %q", tt.wantMsg)
			}
		})
	}
}

func TestConsoleUI_Copy(t *testing.T) {
	m, copied := newTestUI(t, 5, 2)

	m = press(t, m, "l")
	if m.status != "No combat log to copy" {
		t.Errorf("Expected no-log status, got %q", m.status)
	}

	m = press(t, m, "1")
	m = press(t, m, "c")
	if !strings.HasPrefix(*copied, "LA TRAHISON ET LE CORBEAU") || !strings.Contains(*copied, "> Résister et partir") {
		t.Errorf("Unexpected transcript copy:\n%s", *copied)
	}
	if m.status != "Copied transcript to clipboard" {
		t.Errorf("Expected copy status, got %q", m.status)
	}

	m = press(t, m, "1")
	m = press(t, m, "a")
	m = press(t, m, "l")
	if *copied != m.snap.Combat.Log[0] {
		t.Errorf("Expected combat log %q, got %q", m.snap.Combat.Log[0], *copied)
	}

	m.copyText = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "c")
	if m.err == nil || !strings.Contains(m.err.Error(), "no clipboard") {
		t.Errorf("Expected copy error, got %v", m.err)
	}
}

func TestConsoleUI_QuitModal(t *testing.T) {
	m, _ := newTestUI(t)

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if !m.showQuitModal {
		t.Fatal("Expected Esc to open the quit modal")
	}
	if !strings.Contains(m.View(), "Quit Game?") {
		t.Error("Expected the modal to render")
	}

	m = press(t, m, "n")
	if m.showQuitModal {
		t.Fatal("Expected N to close the modal")
	}

	m = press(t, m, "q")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if cmd == nil {
		t.Fatal("Expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected Y to quit")
	}
}

func TestHPBar(t *testing.T) {
	tests := []struct {
		name       string
		cur, max   int
		wantFilled int
		wantLabel  string
	}{
		{"full", 20, 20, 10, " 20/20"},
		{"half", 10, 20, 5, " 10/20"},
		{"empty", 0, 8, 0, " 0/8"},
		{"below zero", -3, 8, 0, " 0/8"},
		{"over max", 25, 20, 10, " 20/20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar := hpBar(tt.cur, tt.max, 10)
			if got := strings.Count(bar, "█"); got != tt.wantFilled {
				t.Errorf("Expected %d filled cells, got %d", tt.wantFilled, got)
			}
			if got := strings.Count(bar, "░"); got != 10-tt.wantFilled {
				t.Errorf("Expected %d empty cells, got %d", 10-tt.wantFilled, got)
			}
			if !strings.HasSuffix(bar, tt.wantLabel) {
				t.Errorf("Expected label %q, got %q", tt.wantLabel, bar)
			}
		})
	}
}

func TestUpper(t *testing.T) {
	if got := upper("L’ermite des runes"); got != "L’ERMITE DES RUNES" {
		t.Errorf("Expected L’ERMITE DES RUNES, got %s", got)
	}
	if got := upper("Écouter"); got != "ÉCOUTER" {
		t.Errorf("Expected ÉCOUTER, got %s", got)
	}
}
