package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type taskDoneMsg struct{ err error }

// spinnerModel shows a spinner next to label until task returns.
type spinnerModel struct {
	spinner spinner.Model
	label   string
	task    func() error
	cancel  context.CancelFunc

	done        bool
	interrupted bool
	err         error
}

func newSpinnerModel(label string, task func() error, cancel context.CancelFunc) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))
	return spinnerModel{spinner: s, label: label, task: task, cancel: cancel}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		return taskDoneMsg{err: m.task()}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "esc" {
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	return m.spinner.View() + " " + HeaderCommandStyle.UnsetPaddingLeft().Render(m.label) + "\n"
}

// RunWithSpinner runs task while showing a spinner on out. When out is not
// a terminal the task runs without any output. Pressing ctrl+c cancels the
// task's context and returns context.Canceled.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, task func(ctx context.Context) error) error {
	f, ok := out.(*os.File)
	if !ok || !IsTerminal(f) {
		return task(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newSpinnerModel(label, func() error { return task(ctx) }, cancel)
	final, err := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	fm := final.(spinnerModel)
	if fm.interrupted {
		return context.Canceled
	}
	return fm.err
}
