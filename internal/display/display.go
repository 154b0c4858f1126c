// Package display provides the kitchenctl follow view using Bubble Tea.
//
// The [UI] type keeps a status bar for the followed session and an input
// prompt at the bottom of the terminal. All other output is printed above
// the rendered area via Program.Println / Printf, so concurrent writes
// never garble the display.
package display

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/kitchenops/internal/domain"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	delayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	actionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	waitingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is muted slate for the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	stepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	urgentOutputStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#fca5a5"))

	userInputEchoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#a1a1aa"))
)

const prompt = "cook> "

// PhaseLabel is what the cook sees for each phase.
func PhaseLabel(p domain.Phase) string {
	switch p {
	case domain.PhaseDelay:
		return "Get ready"
	case domain.PhaseAction:
		return "Do it now"
	default:
		return "Done"
	}
}

// ── UI ───────────────────────────────────────────────────────────

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call
// [UI.SetState], [UI.Println] and read from [UI.InputChan] at any time
// after [UI.WaitReady] returns.
type UI struct {
	recipe  *domain.Recipe
	program *tea.Program
	inputCh chan string
	readyCh chan struct{}
	quitCh  chan struct{}
	done    atomic.Bool
}

// NewUI creates the follow view for a recipe. Call Run() to start.
func NewUI(recipe *domain.Recipe) *UI {
	return &UI{
		recipe:  recipe,
		inputCh: make(chan string, 16),
		readyCh: make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
}

// stateMsg carries a relayed session state into the event loop.
type stateMsg domain.SessionState

// SetState shows a new session state. Thread-safe.
func (u *UI) SetState(s domain.SessionState) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(stateMsg(s))
	}
}

// Println prints a line above the prompt. Thread-safe.
// If the program hasn't started yet, falls back to fmt.Println.
func (u *UI) Println(a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Println(a...)
	} else {
		fmt.Println(a...)
	}
}

// Printf prints formatted text above the prompt. Thread-safe.
func (u *UI) Printf(format string, a ...any) {
	if u.program != nil && !u.done.Load() {
		u.program.Printf(format, a...)
	} else {
		fmt.Printf(format, a...)
	}
}

// InputChan returns completed user-input lines.
func (u *UI) InputChan() <-chan string { return u.inputCh }

// PrintStep prints a step header like "Step 2/8".
func (u *UI) PrintStep(text string) {
	u.Println(stepStyle.Render("  " + text))
}

// PrintInstruction prints the step's main instruction text.
func (u *UI) PrintInstruction(text string) {
	u.Println(primaryStyle.Render("  " + text))
}

// PrintHint prints a secondary/dimmed line.
func (u *UI) PrintHint(text string) {
	u.Println(secondaryStyle.Render("  " + text))
}

// PrintUrgent prints an urgent/error line.
func (u *UI) PrintUrgent(text string) {
	u.Println(urgentOutputStyle.Render("  " + text))
}

// PrintVoice prints a voice-recognised input line.
func (u *UI) PrintVoice(text string) {
	u.Println(secondaryStyle.Render("[voice] ") + primaryStyle.Render(text))
}

// PrintUserInput echoes the user's typed command into the scrollback.
func (u *UI) PrintUserInput(text string) {
	u.Println(promptStyle.Render("cook") + secondaryStyle.Render("> ") + userInputEchoStyle.Render(text))
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

// QuitChan is closed when Run returns.
func (u *UI) QuitChan() <-chan struct{} { return u.quitCh }

// Run starts the Bubble Tea event loop. Blocks until quit.
func (u *UI) Run() error {
	m := newModel(u.recipe, u.inputCh, u.readyCh, u.PrintUserInput)
	u.program = tea.NewProgram(m)
	_, err := u.program.Run()
	u.done.Store(true)
	close(u.quitCh)
	return err
}

// ── Bubble Tea model ─────────────────────────────────────────────

type model struct {
	name    string
	steps   []domain.Step
	state   domain.SessionState
	synced  bool // false until the first state arrives
	input   textinput.Model
	inputCh chan<- string
	readyCh chan struct{}
	echoFn  func(string)
	width   int
}

func newModel(recipe *domain.Recipe, inputCh chan<- string, readyCh chan struct{}, echoFn func(string)) model {
	ti := textinput.New()
	// Plain-text prompt: styled prompts add ANSI bytes that break the
	// textinput width math.
	ti.Prompt = prompt
	ti.PromptStyle = promptStyle
	ti.TextStyle = userInputEchoStyle
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	return model{
		name:    recipe.Name,
		steps:   recipe.Steps,
		input:   ti,
		inputCh: inputCh,
		readyCh: readyCh,
		echoFn:  echoFn,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		signalReady(m.readyCh),
		tea.SetWindowTitle(m.name),
	)
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if ch != nil {
			close(ch)
		}
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			v := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.inputCh <- v
			// Echo from a Cmd so it runs outside Update.
			echoFn := m.echoFn
			return m, func() tea.Msg {
				if echoFn != nil {
					echoFn(v)
				}
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if msg.Width > len(prompt) {
			m.input.Width = msg.Width - len(prompt)
		}
		return m, nil

	case stateMsg:
		m.state = domain.SessionState(msg)
		m.synced = true
		return m, tea.SetWindowTitle(m.title())
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) title() string {
	if !m.synced {
		return m.name
	}
	if m.state.Phase == domain.PhaseDone {
		return m.name + ": Done"
	}
	return fmt.Sprintf("%s: %s %s", m.name, PhaseLabel(m.state.Phase), fmtSeconds(m.state.Remaining))
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.renderBar())
	b.WriteByte('\n')
	if line := m.stepLine(); line != "" {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m model) renderBar() string {
	parts := []string{labelStyle.Render(m.name)}

	switch {
	case !m.synced:
		parts = append(parts, waitingStyle.Render("waiting for the kitchen..."))
	case m.state.Phase == domain.PhaseDone:
		parts = append(parts, doneStyle.Render(PhaseLabel(domain.PhaseDone)))
	default:
		style := delayStyle
		if m.state.Phase == domain.PhaseAction {
			style = actionStyle
		}
		parts = append(parts,
			labelStyle.Render(fmt.Sprintf("step %d/%d", m.state.StepIndex+1, len(m.steps))),
			style.Render(PhaseLabel(m.state.Phase)+" "+fmtSeconds(m.state.Remaining)),
		)
	}

	content := " " + strings.Join(parts, sepStyle.Render("  │  ")) + " "

	w := m.width
	if w <= 0 {
		w = 80
	}
	return barBg.Width(w).Render(content)
}

func (m model) stepLine() string {
	if !m.synced || m.state.Phase == domain.PhaseDone {
		return ""
	}
	i := m.state.StepIndex
	if i < 0 || i >= len(m.steps) {
		return ""
	}
	return primaryStyle.Render("  " + m.steps[i].Instruction)
}

// ── Helpers ──────────────────────────────────────────────────────

func fmtSeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	if sec < 60 {
		return fmt.Sprintf("%ds", sec)
	}
	return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
}
