package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

const (
	maxBarWidth = 60
	// plainStep is the percentage granularity of non-interactive progress lines.
	plainStep = 10
)

type progressMsg struct {
	text     string
	fraction float64
}

type finishMsg struct{}

// progressModel is the bubbletea model behind the interactive progress view.
type progressModel struct {
	bar      progress.Model
	text     string
	fraction float64
}

func newProgressModel() progressModel {
	return progressModel{
		bar:      progress.New(progress.WithGradient(string(colorPrimary), string(colorHighlight)), progress.WithWidth(40)),
		fraction: -1,
	}
}

func (m progressModel) Init() tea.Cmd { return nil }

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.text = msg.text
		m.fraction = msg.fraction
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, maxBarWidth)
	case finishMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.text == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(progressTextStyle.Render(m.text))
	if m.fraction >= 0 {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(m.fraction))
	}
	b.WriteString("\n")
	return b.String()
}

// Progress shows progress updates. On a terminal it renders a live progress bar; otherwise
// it prints one line per message and per completed step.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	program  *tea.Program
	done     chan struct{}
	closed   bool
	lastText string
	lastStep int
}

// NewProgress returns a Progress writing to out. A live view is used only when out is a terminal.
func NewProgress(out io.Writer) *Progress {
	p := &Progress{out: out, lastStep: -1}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		p.program = tea.NewProgram(newProgressModel(),
			tea.WithOutput(out),
			tea.WithInput(nil),
			tea.WithoutSignalHandler(),
		)
		p.done = make(chan struct{})
		go func() {
			defer close(p.done)
			_, _ = p.program.Run()
		}()
	}
	return p
}

// SetProgress reports text with a fraction in [0,1], or a negative fraction when unknown.
func (p *Progress) SetProgress(text string, fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.program != nil {
		p.program.Send(progressMsg{text: text, fraction: fraction})
		return
	}
	p.writePlainLocked(text, fraction)
}

func (p *Progress) writePlainLocked(text string, fraction float64) {
	if text != p.lastText {
		p.lastText = text
		p.lastStep = -1
		if fraction <= 0 {
			_, _ = fmt.Fprintln(p.out, text)
			if fraction == 0 {
				p.lastStep = 0
			}
			return
		}
	}
	if fraction < 0 {
		return
	}
	step := int(fraction*100) / plainStep * plainStep
	if step <= p.lastStep {
		return
	}
	p.lastStep = step
	_, _ = fmt.Fprintf(p.out, "%s %d%%\n", text, step)
}

// Write prints b above the live view, or directly when there is none.
func (p *Progress) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.program != nil && !p.closed {
		p.program.Println(strings.TrimRight(string(b), "\n"))
		return len(b), nil
	}
	return p.out.Write(b)
}

// Close stops the live view, leaving its last frame on screen.
func (p *Progress) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	program, done := p.program, p.done
	p.mu.Unlock()

	if program != nil {
		program.Send(finishMsg{})
		<-done
	}
}
