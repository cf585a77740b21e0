package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/warpmeet/internal/utils"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const refreshInterval = 500 * time.Millisecond

// tickMsg asks the model to pull a fresh view.
type tickMsg time.Time

// Dashboard is the live meeting view. It polls view for state and calls
// onQuit when the user leaves with q or ctrl+c.
type Dashboard struct {
	program *tea.Program
	wg      sync.WaitGroup
}

type dashboardModel struct {
	view    func() MeetingView
	onQuit  func()
	spinner spinner.Model
	current MeetingView
	started time.Time
	leaving bool
}

func NewDashboard(view func() MeetingView, onQuit func()) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	model := &dashboardModel{
		view:    view,
		onQuit:  onQuit,
		spinner: s,
		current: view(),
		started: time.Now(),
	}
	return &Dashboard{program: tea.NewProgram(model)}
}

// Start runs the program in a goroutine. Inline mode keeps earlier terminal
// output visible.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if _, err := d.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Stop ends the program and waits for the terminal to be restored.
func (d *Dashboard) Stop() {
	d.program.Quit()
	d.wg.Wait()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func (m *dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if !m.leaving {
				m.leaving = true
				if m.onQuit != nil {
					m.onQuit()
				}
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.current = m.view()
		return m, tick()
	}
	return m, nil
}

func (m *dashboardModel) View() string {
	if m.leaving {
		return MutedStyle.Render("Leaving the room...") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(MeetingHeader(m.current))
	b.WriteString("\n\n")
	b.WriteString(SlotTable(m.current.Slots))
	b.WriteString("\n")

	if m.current.Members <= 1 {
		b.WriteString(fmt.Sprintf("%s %s Waiting for others to join...\n", m.spinner.View(), IconWaiting))
	}

	b.WriteString(MutedStyle.Render(fmt.Sprintf("In the room for %s. Press q to leave.", utils.FormatTimeDuration(time.Since(m.started)))))
	return b.String()
}
