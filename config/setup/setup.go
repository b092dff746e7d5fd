// Package setup is the interactive first-run wizard that produces a YAML
// config file for the bot.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"botfoundation/config"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// ErrAborted is returned when the user leaves the wizard with esc or ctrl+c
var ErrAborted = errors.New("setup aborted")

const errPrefixLength = "Length of answers should be 1 character!"

// Choice is the answer to the wizard's first question
type Choice int

const (
	ChoiceInteractive Choice = iota
	ChoiceExistingFile
	ChoiceExit
)

var choiceLabels = []string{
	"Interactive config setup",
	"Use an existing config file",
	"Exit",
}

type step int

const (
	stepChoice step = iota
	stepToken
	stepPrefix
	stepOwners
	stepSync
	stepPath
	stepDone
)

var questions = map[step]string{
	stepToken:  "Bot token",
	stepPrefix: "Command prefix (1 character, enter for !)",
	stepOwners: "Owner user ids, comma separated (optional)",
	stepSync:   "Sync slash commands globally? (y/n)",
	stepPath:   "Path to the config file",
}

// Result is what the wizard collected. Answers is set for ChoiceInteractive
// and Path for ChoiceExistingFile.
type Result struct {
	Choice  Choice
	Answers config.SetupAnswers
	Path    string
}

// Model is the bubbletea model driving the wizard
type Model struct {
	intro      string
	step       step
	cursor     int
	input      textinput.Model
	answers    config.SetupAnswers
	path       string
	choice     Choice
	problem    string
	aborted    bool
	fileExists func(path string) bool
}

func NewModel(intro string) *Model {
	return &Model{
		intro:      intro,
		input:      textinput.New(),
		fileExists: isRegularFile,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}

		switch {
		case m.step == stepChoice:
			return m.updateChoice(key)
		case m.step == stepDone:
			return m, nil
		case key.Type == tea.KeyEnter:
			return m.submit()
		}
		m.problem = ""
	}

	if m.step == stepChoice || m.step == stepDone {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateChoice(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(choiceLabels)-1 {
			m.cursor++
		}
	case "enter":
		m.choice = Choice(m.cursor)
		switch m.choice {
		case ChoiceInteractive:
			return m, m.enter(stepToken)
		case ChoiceExistingFile:
			return m, m.enter(stepPath)
		default:
			m.step = stepDone
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Model) enter(next step) tea.Cmd {
	m.step = next
	m.problem = ""
	m.input.Reset()
	m.input.EchoMode = textinput.EchoNormal
	m.input.Placeholder = ""
	switch next {
	case stepToken:
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '•'
	case stepPrefix:
		m.input.Placeholder = "!"
	case stepSync:
		m.input.Placeholder = "n"
	}
	return m.input.Focus()
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	var problem string
	var next step
	switch m.step {
	case stepToken:
		if value == "" {
			problem = "The token cannot be empty"
			break
		}
		m.answers.Token = value
		next = stepPrefix
	case stepPrefix:
		if value == "" {
			value = "!"
		}
		if utf8.RuneCountInString(value) != 1 {
			problem = errPrefixLength
			break
		}
		m.answers.Prefix = value
		next = stepOwners
	case stepOwners:
		owners, err := parseOwners(value)
		if err != nil {
			problem = err.Error()
			break
		}
		m.answers.OwnerIDs = owners
		next = stepSync
	case stepSync:
		sync, err := parseYesNo(value)
		if err != nil {
			problem = err.Error()
			break
		}
		m.answers.SyncCommandsGlobally = sync
		next = stepDone
	case stepPath:
		if value == "" || !m.fileExists(value) {
			problem = fmt.Sprintf("No config file found at %q", value)
			break
		}
		m.path = value
		next = stepDone
	}

	if problem != "" {
		m.problem = problem
		m.input.Reset()
		return m, nil
	}
	if next == stepDone {
		m.step = stepDone
		m.input.Blur()
		return m, tea.Quit
	}
	return m, m.enter(next)
}

func (m *Model) View() string {
	if m.step == stepDone {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.intro))
	b.WriteString("\n\n")

	if m.step == stepChoice {
		for i, label := range choiceLabels {
			if i == m.cursor {
				b.WriteString(cursorStyle.Render("> " + label))
			} else {
				b.WriteString("  " + label)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("up/down to move, enter to select, esc to quit"))
		return b.String()
	}

	b.WriteString(questions[m.step])
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.problem != "" {
		b.WriteString(errorStyle.Render(m.problem))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("enter to confirm, esc to quit"))
	return b.String()
}

// Result returns the collected answers once the wizard has finished
func (m *Model) Result() (Result, error) {
	if m.aborted {
		return Result{}, ErrAborted
	}
	if m.step != stepDone {
		return Result{}, fmt.Errorf("setup did not finish")
	}
	return Result{Choice: m.choice, Answers: m.answers, Path: m.path}, nil
}

// Run shows the wizard on the given terminal streams until the user finishes
// or aborts it
func Run(ctx context.Context, intro string, in io.Reader, out io.Writer) (Result, error) {
	program := tea.NewProgram(NewModel(intro), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return Result{}, fmt.Errorf("setup wizard failed: %w", err)
	}
	return final.(*Model).Result()
}

func parseOwners(value string) ([]string, error) {
	if value == "" {
		return nil, nil
	}

	var owners []string
	for _, part := range strings.Split(value, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if strings.IndexFunc(id, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
			return nil, fmt.Errorf("owner ids must be numeric, got %q", id)
		}
		owners = append(owners, id)
	}
	return owners, nil
}

func parseYesNo(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "y", "yes":
		return true, nil
	case "", "n", "no":
		return false, nil
	}
	return false, errors.New("answer y or n")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
