package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/livefir/livebind/internal/datasource"
	"github.com/livefir/livebind/transition"
)

type frameMsg time.Time

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// playModel plays a transition in the terminal, showing the rendered templates of every
// frame under a progress bar
type playModel struct {
	page     *page
	tr       *transition.Transition
	title    string
	interval time.Duration
	start    time.Time
	bar      progress.Model
	html     string
	err      error
	quitting bool
}

func newPlayModel(p *page, tr *transition.Transition, title string, interval time.Duration) playModel {
	m := playModel{
		page:     p,
		tr:       tr,
		title:    title,
		interval: interval,
		bar:      progress.New(progress.WithDefaultGradient()),
	}
	m.html, m.err = p.serialize(true, false)
	return m
}

func (m playModel) Init() tea.Cmd {
	return tick(m.interval)
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.tr.Interrupt()
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.bar.Width = max(10, msg.Width-4)

	case frameMsg:
		now := time.Time(msg)
		if m.start.IsZero() {
			m.start = now
		}
		elapsed := now.Sub(m.start)
		if d := m.tr.Duration(); d > 0 {
			m.tr.Seek(float64(elapsed) / float64(d))
		} else {
			m.tr.End()
		}
		m.html, m.err = m.page.serialize(true, false)
		if m.err != nil || m.tr.Done() {
			m.quitting = true
			return m, tea.Quit
		}
		return m, tick(m.interval)
	}
	return m, nil
}

func (m playModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.tr.Progress()))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(failStyle.Render(m.err.Error()))
	} else {
		b.WriteString(previewStyle.Render(m.html))
	}
	b.WriteString("\n")
	if !m.quitting {
		b.WriteString(mutedStyle.Render("q to quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// Play renders -from, then plays the transition to -data in the terminal. With -frames
// it prints that many evenly spaced frames instead of running interactively.
func Play(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	var tf templateFlags
	var df dataFlags
	tf.register(fs)
	df.register(fs)
	from := fs.String("from", "", "JSON or YAML data rendered before the transition")
	duration := fs.Duration("duration", time.Second, "transition duration")
	easeName := fs.String("ease", "cubic", "transition easing: linear, quad or cubic")
	fps := fs.Int("fps", 30, "frames per second")
	frames := fs.Int("frames", 0, "print this many frames and exit")
	if err := parseFlags(fs, args, stderr); err != nil {
		return err
	}
	ease, err := easeFlag(*easeName)
	if err != nil {
		return err
	}
	if *fps <= 0 {
		return fmt.Errorf("%w: -fps must be positive", ErrUsage)
	}

	p, err := tf.load(log.New(stderr, "", 0))
	if err != nil {
		return err
	}
	ctx := context.Background()
	if *from != "" {
		before, err := datasource.File{Path: *from}.Load(ctx)
		if err != nil {
			return err
		}
		if _, err := p.engine.Render(p.templates, before); err != nil {
			return err
		}
	}
	data, err := df.load(ctx)
	if err != nil {
		return err
	}

	tr := p.engine.Transition(*duration, transition.WithEase(ease), transition.WithName("play"))
	if _, err := p.engine.RenderTransition(tr, p.templates, data); err != nil {
		return err
	}

	if *frames > 0 {
		return printFrames(p, tr, *frames, stdout)
	}

	title := fmt.Sprintf("%s  %s %s", tf.path, *duration, *easeName)
	model := newPlayModel(p, tr, title, time.Second/time.Duration(*fps))
	final, err := tea.NewProgram(model, tea.WithOutput(stdout)).Run()
	if err != nil {
		return fmt.Errorf("failed to play transition: %w", err)
	}
	return final.(playModel).err
}

func printFrames(p *page, tr *transition.Transition, frames int, out io.Writer) error {
	for i := range frames {
		at := 1.0
		if frames > 1 {
			at = float64(i) / float64(frames-1)
		}
		tr.Seek(at)
		html, err := p.serialize(true, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\n%s\n", mutedStyle.Render(fmt.Sprintf("-- %.2f", at)), html)
	}
	return nil
}
