package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/passage-engine/pkg/actor"
	"github.com/jwebster45206/passage-engine/pkg/engine"
	"github.com/jwebster45206/passage-engine/pkg/state"
	"github.com/jwebster45206/passage-engine/pkg/vars"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const AppTitle = "PASSAGE ENGINE"

// game is what the console plays. *engine.Session runs in-process, remoteSession
// goes through the API.
type game interface {
	Snapshot() (engine.Snapshot, error)
	SelectChoice(index int) (engine.Snapshot, error)
	Attack() (engine.Snapshot, error)
}

type intent int

const (
	intentStart intent = iota
	intentChoice
	intentAttack
)

type entryKind int

const (
	entryPassage entryKind = iota
	entryChoice
	entryRound
	entryResult
)

// entry is one block of the transcript. Entries are styled at render time so they
// rewrap when the window is resized.
type entry struct {
	kind  entryKind
	title string
	text  string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	game          game
	snap          *engine.Snapshot
	transcript    []entry
	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	busy          bool
	err           error
	status        string

	showQuitModal bool

	copyText func(string) error
}

type snapshotMsg struct {
	snap   engine.Snapshot
	intent intent
	choice string // Text of the selected choice
	err    error
}

type copiedMsg struct {
	what string
	err  error
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	passageTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("212")). // purple
				Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	combatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hpHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	hpMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	hpLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

func NewConsoleUI(cfg *ConsoleConfig, g game) ConsoleUI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		game:          g,
		storyViewport: storyVp,
		metaViewport:  metaVp,
		busy:          true,
		copyText:      clipboard.WriteAll,
	}
}

// upper renders passage titles and enemy names with French casing rules.
func upper(s string) string {
	return cases.Upper(language.French).String(s)
}

func (m ConsoleUI) Init() tea.Cmd {
	g := m.game
	return func() tea.Msg {
		snap, err := g.Snapshot()
		return snapshotMsg{snap: snap, intent: intentStart, err: err}
	}
}

func (m ConsoleUI) selectChoice(index int, text string) tea.Cmd {
	g := m.game
	return func() tea.Msg {
		snap, err := g.SelectChoice(index)
		return snapshotMsg{snap: snap, intent: intentChoice, choice: text, err: err}
	}
}

func (m ConsoleUI) attack() tea.Cmd {
	g := m.game
	return func() tea.Msg {
		snap, err := g.Attack()
		return snapshotMsg{snap: snap, intent: intentAttack, err: err}
	}
}

func (m ConsoleUI) copyCmd(what, text string) tea.Cmd {
	copyText := m.copyText
	return func() tea.Msg {
		return copiedMsg{what: what, err: copyText(text)}
	}
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case snapshotMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = ""
		m.record(msg)
		m.layout()
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("copy failed: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("Copied %s to clipboard", msg.what)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		}
		if cmd, handled := m.handleKey(msg.String()); handled {
			return m, cmd
		}
	}

	// Scrolling keys
	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m *ConsoleUI) handleKey(key string) (tea.Cmd, bool) {
	switch key {
	case "q":
		m.showQuitModal = true
		return nil, true
	case "a":
		if m.busy || m.snap == nil {
			return nil, true
		}
		m.busy = true
		return m.attack(), true
	case "c":
		return m.copyCmd("transcript", m.plainTranscript()), true
	case "l":
		if m.snap == nil || m.snap.Combat == nil || len(m.snap.Combat.Log) == 0 {
			m.err = nil
			m.status = "No combat log to copy"
			return nil, true
		}
		return m.copyCmd("combat log", strings.Join(m.snap.Combat.Log, "\n")), true
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		if m.busy || m.snap == nil {
			return nil, true
		}
		index := int(key[0] - '1')
		var text string
		if index < len(m.snap.VisibleChoices) {
			text = m.snap.VisibleChoices[index].Text
		}
		m.busy = true
		return m.selectChoice(index, text), true
	}
	return nil, false
}

// record appends what changed between the current snapshot and next to the transcript.
func (m *ConsoleUI) record(msg snapshotMsg) {
	prev, next := m.snap, msg.snap

	switch msg.intent {
	case intentChoice:
		m.transcript = append(m.transcript, entry{kind: entryChoice, text: msg.choice})
	case intentAttack:
		m.transcript = append(m.transcript, roundEntries(prev, next)...)
	}

	if prev == nil || msg.intent == intentChoice || prev.Passage.ID != next.Passage.ID {
		m.transcript = append(m.transcript, entry{kind: entryPassage, title: next.Passage.Title, text: next.Passage.Body})
	}
	m.snap = &next
}

// roundEntries describes the attack that turned prev into next. When a victory leads
// straight into another fight, next only carries the new encounter, so the finished
// one is summarized from prev.
func roundEntries(prev *engine.Snapshot, next engine.Snapshot) []entry {
	c := next.Combat
	if c == nil {
		return nil
	}

	sameFight := prev != nil && prev.Combat != nil &&
		prev.Combat.EnemyName == c.EnemyName && len(c.Log) == len(prev.Combat.Log)+1
	if !c.Finished && !sameFight {
		if prev != nil && prev.Combat != nil {
			return []entry{{kind: entryResult, text: fmt.Sprintf("The fight with %s is over.", prev.Combat.EnemyName)}}
		}
		return nil
	}

	var out []entry
	if len(c.Log) > 0 {
		out = append(out, entry{kind: entryRound, text: c.Log[len(c.Log)-1]})
	}
	if c.Finished {
		out = append(out, entry{kind: entryResult, text: resultText(c)})
	}
	return out
}

func resultText(c *engine.CombatView) string {
	if c.Result == string(state.CombatVictory) {
		return fmt.Sprintf("Victory: %s is defeated.", c.EnemyName)
	}
	return fmt.Sprintf("Defeat: you fall before %s.", c.EnemyName)
}

func (e entry) plain() string {
	switch e.kind {
	case entryPassage:
		return upper(e.title) + "\n\n" + e.text
	case entryChoice:
		return "> " + e.text
	default:
		return e.text
	}
}

func (e entry) render(width int) string {
	switch e.kind {
	case entryPassage:
		return passageTitleStyle.Render(upper(e.title)) + "\n\n" + wordwrap.String(e.text, width)
	case entryChoice:
		return choiceStyle.Render("> ") + wordwrap.String(e.text, width-2)
	case entryRound:
		return combatStyle.Render(wordwrap.String(e.text, width))
	default:
		return resultStyle.Render(wordwrap.String(e.text, width))
	}
}

func (m ConsoleUI) plainTranscript() string {
	parts := make([]string, 0, len(m.transcript))
	for _, e := range m.transcript {
		parts = append(parts, e.plain())
	}
	return strings.Join(parts, "\n\n")
}

// layout sizes both panels and refreshes their content for the current window.
func (m *ConsoleUI) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	actions := m.renderActions(storyWidth - 6)
	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = max(m.height-8-lipgloss.Height(actions), 3)
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.ready = true

	m.writeStoryContent()
	m.metaViewport.SetContent(writeMetadata(m.snap, m.metaViewport.Width))
}

func (m *ConsoleUI) writeStoryContent() {
	width := m.storyViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render(AppTitle) + "\n\n")
	if m.config != nil && m.config.Story != "" {
		content.WriteString(promptStyle.Render("Story: "+m.config.Story) + "\n\n")
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(width-6, 1))) + "\n\n")

	for _, e := range m.transcript {
		content.WriteString(e.render(width) + "\n\n")
	}

	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

// renderActions shows the active fight or the visible choices.
func (m ConsoleUI) renderActions(width int) string {
	if m.snap == nil {
		return loadingStyle.Render("Loading...")
	}

	var b strings.Builder
	if c := m.snap.Combat; c != nil && !c.Finished {
		barWidth := min(max(width-30, 5), 20)
		fmt.Fprintf(&b, "%-16s %s\n", upper(c.EnemyName), hpBar(c.EnemyHP, c.EnemyMaxHP, barWidth))
		fmt.Fprintf(&b, "%-16s %s\n", "HERO", hpBar(c.HeroHP, c.HeroMaxHP, barWidth))
		if len(c.Log) > 0 {
			b.WriteString(combatStyle.Render(wordwrap.String(c.Log[len(c.Log)-1], width)) + "\n")
		}
		b.WriteString(promptStyle.Render("[a] Attack"))
		return b.String()
	}

	if len(m.snap.VisibleChoices) == 0 {
		return promptStyle.Render("The story ends here.")
	}
	for i, c := range m.snap.VisibleChoices {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(choiceStyle.Render(fmt.Sprintf("[%d] ", c.Index+1)) + wordwrap.String(c.Text, width-4))
	}
	return b.String()
}

func (m ConsoleUI) renderStatus() string {
	switch {
	case m.busy:
		return loadingStyle.Render("...")
	case m.err != nil:
		return errorStyle.Render(describeErr(m.err))
	case m.status != "":
		return promptStyle.Render(m.status)
	}
	return ""
}

func describeErr(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidChoice):
		return "That choice is not available."
	case errors.Is(err, engine.ErrNoActiveCombat):
		return "There is nothing to fight here."
	}
	return "Error: " + err.Error()
}

// hpBar draws current/max hit points as a bar of the given width.
func hpBar(cur, maxHP, width int) string {
	if maxHP <= 0 {
		maxHP = 1
	}
	cur = vars.Clamp(cur, 0, maxHP)
	filled := cur * width / maxHP

	style := hpHighStyle
	switch {
	case cur*4 <= maxHP:
		style = hpLowStyle
	case cur*2 <= maxHP:
		style = hpMidStyle
	}
	return style.Render(strings.Repeat("█", filled)) +
		separatorStyle.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %d/%d", cur, maxHP)
}

func writeMetadata(snap *engine.Snapshot, width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("HERO") + "\n\n")
	if snap == nil {
		return content.String()
	}

	hero := actor.HeroOf(snap.Vars)
	content.WriteString("HP:\n")
	content.WriteString(hpBar(hero.HP(), hero.MaxHP(), min(max(width-8, 5), 20)) + "\n\n")
	content.WriteString(fmt.Sprintf("Strength: %d\n\n", hero.Strength()))

	content.WriteString("Session:\n")
	content.WriteString(snap.ID.String()[:8] + "...\n\n")
	content.WriteString(fmt.Sprintf("Turn: %d\n", snap.Turn))
	content.WriteString(fmt.Sprintf("Visited: %d\n\n", len(snap.History)))

	content.WriteString("Variables:\n")
	for _, name := range slices.Sorted(maps.Keys(snap.Vars)) {
		if name == vars.HP || name == vars.Strength {
			continue
		}
		content.WriteString(fmt.Sprintf("• %s: %s\n", name, snap.Vars[name]))
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• a: Attack\n")
	content.WriteString("• c: Copy transcript\n")
	content.WriteString("• l: Copy combat log\n")
	content.WriteString("• q/Esc: Quit\n")

	return content.String()
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case snapshotMsg, copiedMsg:
		// Intents in flight still land while the modal is open
		m.showQuitModal = false
		model, cmd := m.Update(msg)
		next := model.(ConsoleUI)
		next.showQuitModal = true
		return next, cmd

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyEsc:
			m.showQuitModal = false
			return m, nil
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N or Esc to continue, Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		if m.err != nil {
			return "\n  " + errorStyle.Render(describeErr(m.err))
		}
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			m.renderActions(storyWidth-6),
			m.renderStatus(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}
