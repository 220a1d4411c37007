package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"assetlens/analysis"
	"assetlens/asset"
)

// AnalyzeFunc runs one analysis, reporting progress through the callback
type AnalyzeFunc func(ctx context.Context, progress func(analysis.ProgressUpdate)) (*asset.AnalysisResult, error)

// progressMsg carries an analysis.ProgressUpdate into the program
type progressMsg analysis.ProgressUpdate

// resultMsg is sent once the analysis returns
type resultMsg struct {
	result *asset.AnalysisResult
	err    error
}

// ProgressModel is the Bubble Tea model shown while an analysis runs
type ProgressModel struct {
	spinner  spinner.Model
	progress progress.Model

	provider string
	images   []string

	stage     analysis.Stage
	strategy  string
	completed int
	total     int
	recent    []string

	result *asset.AnalysisResult
	err    error

	startTime time.Time
	elapsed   time.Duration
	width     int
	done      bool
	cancelled bool

	cancel context.CancelFunc
}

// NewProgressModel creates the progress view for the given images
func NewProgressModel(provider string, images []string, cancel context.CancelFunc) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerFrames,
		FPS:    time.Second / 8,
	}
	s.Style = lipgloss.NewStyle().Foreground(ColorBrand)

	p := progress.New(progress.WithDefaultGradient(), progress.WithWidth(50))

	return ProgressModel{
		spinner:   s,
		progress:  p,
		provider:  provider,
		images:    images,
		stage:     analysis.StagePreparing,
		startTime: time.Now(),
		cancel:    cancel,
	}
}

// Init starts the spinner
func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(max(msg.Width-20, 20), 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if !m.done {
				m.cancelled = true
				if m.cancel != nil {
					m.cancel()
				}
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		u := analysis.ProgressUpdate(msg)
		m.stage = u.Stage
		m.strategy = u.Strategy
		m.completed = u.Completed
		m.total = u.Total
		if u.Image != "" {
			m.recent = append(m.recent, u.Image)
			if len(m.recent) > 5 {
				m.recent = m.recent[len(m.recent)-5:]
			}
		}
		return m, m.progress.SetPercent(u.Fraction())

	case resultMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.elapsed = time.Since(m.startTime)
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m ProgressModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(Header())
	b.WriteString("\n")

	title := TitleStyle.Render("Analyzing screenshots")
	badge := BadgeStyle.Render(m.provider)
	if m.strategy != "" {
		badge += " " + MutedStyle.Render(m.strategy)
	}

	status := BodyStyle.Render(m.stage.String())
	if m.stage == analysis.StageCalling && m.total > 1 {
		status += MutedStyle.Render(fmt.Sprintf("  (%d/%d calls)", m.completed, m.total))
	}

	var recent strings.Builder
	for _, name := range m.recent {
		recent.WriteString(SuccessStyle.Render("  ✓ ") + MutedStyle.Render(name) + "\n")
	}

	elapsed := MutedStyle.Render(fmt.Sprintf("%d images  ·  elapsed %s", len(m.images), formatDuration(time.Since(m.startTime))))

	b.WriteString(BoxStyle.Render(
		title + "\n" + badge + "\n\n" +
			m.spinner.View() + " " + status + "\n\n" +
			m.progress.View() + "\n" +
			recent.String() +
			elapsed,
	))
	b.WriteString("\n")
	b.WriteString(KeyHelp(map[string]string{"q": "Cancel"}))
	return b.String()
}

// Result returns the analysis outcome once the program has exited
func (m ProgressModel) Result() (*asset.AnalysisResult, error) {
	if m.cancelled && !m.done {
		return nil, context.Canceled
	}
	return m.result, m.err
}

// Elapsed is the wall time of the analysis
func (m ProgressModel) Elapsed() time.Duration { return m.elapsed }

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// RunAnalysisUI runs analyze behind the progress view and returns its result
func RunAnalysisUI(ctx context.Context, provider string, images []string, analyze AnalyzeFunc) (*asset.AnalysisResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewProgressModel(provider, images, cancel))

	go func() {
		result, err := analyze(ctx, func(u analysis.ProgressUpdate) {
			p.Send(progressMsg(u))
		})
		p.Send(resultMsg{result: result, err: err})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(ProgressModel).Result()
}
