package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"

	"assertscan/pkg/progress"
)

// maxVisibleTasks caps how many per-package lines the display shows.
const maxVisibleTasks = 12

// newTracker picks a progress frontend. Interactive terminals get the
// live display; everything else (pipes, CI) gets periodic log lines.
// The returned stop function must be called after the run to release
// the terminal.
func newTracker(logger *log.Logger, plain bool) (progress.Tracker, func()) {
	if !plain && (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) {
		t := newUITracker()
		return t, t.wait
	}
	t := &logTracker{logger: logger}
	return t, func() {}
}

// =============================================================================
// Terminal UI Tracker
// =============================================================================

type startMsg struct{ total int }
type stepMsg struct{}
type addMsg struct {
	id    progress.TaskID
	name  string
	total int
}
type advanceMsg struct {
	id progress.TaskID
	n  int
}
type removeMsg struct{ id progress.TaskID }
type finishMsg struct{}

// uiTracker renders an overall progress bar plus one line per package
// currently being scanned. All events flow through the bubbletea message
// queue, so concurrent producers never race on the model.
type uiTracker struct {
	prog   *tea.Program
	nextID atomic.Int64
	done   chan struct{}
}

func newUITracker() *uiTracker {
	t := &uiTracker{done: make(chan struct{})}
	t.prog = tea.NewProgram(newTrackerModel(), tea.WithOutput(os.Stderr))
	go func() {
		defer close(t.done)
		_, _ = t.prog.Run()
	}()
	return t
}

func (t *uiTracker) Start(total int) { t.prog.Send(startMsg{total: total}) }
func (t *uiTracker) Step()           { t.prog.Send(stepMsg{}) }

func (t *uiTracker) Add(name string, total int) progress.TaskID {
	id := progress.TaskID(t.nextID.Add(1))
	t.prog.Send(addMsg{id: id, name: name, total: total})
	return id
}

func (t *uiTracker) Advance(id progress.TaskID, n int) { t.prog.Send(advanceMsg{id: id, n: n}) }
func (t *uiTracker) Remove(id progress.TaskID)         { t.prog.Send(removeMsg{id: id}) }
func (t *uiTracker) Finish()                           { t.prog.Send(finishMsg{}) }

// wait blocks until the display has shut down.
func (t *uiTracker) wait() {
	t.prog.Send(finishMsg{})
	<-t.done
}

type scanTask struct {
	id    progress.TaskID
	name  string
	done  int
	total int
}

type trackerModel struct {
	bar   bprogress.Model
	total int
	done  int
	tasks map[progress.TaskID]*scanTask
}

func newTrackerModel() trackerModel {
	bar := bprogress.New(bprogress.WithDefaultGradient())
	bar.Width = 40
	return trackerModel{
		bar:   bar,
		tasks: make(map[progress.TaskID]*scanTask),
	}
}

func (m trackerModel) Init() tea.Cmd {
	return nil
}

func (m trackerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		m.total = msg.total
	case stepMsg:
		m.done++
	case addMsg:
		m.tasks[msg.id] = &scanTask{id: msg.id, name: msg.name, total: msg.total}
	case advanceMsg:
		if t, ok := m.tasks[msg.id]; ok {
			t.done += msg.n
		}
	case removeMsg:
		delete(m.tasks, msg.id)
	case finishMsg:
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - 24
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m trackerModel) View() string {
	var b strings.Builder

	pct := 0.0
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.bar.ViewAs(pct))
	b.WriteString(StyleValue.Render(fmt.Sprintf(" %d/%d packages", m.done, m.total)))
	b.WriteString("\n")

	for _, t := range m.visibleTasks() {
		line := fmt.Sprintf("  %s %d/%d files", t.name, t.done, t.total)
		b.WriteString(StyleDim.Render(line))
		b.WriteString("\n")
	}
	if hidden := len(m.tasks) - maxVisibleTasks; hidden > 0 {
		b.WriteString(StyleDim.Render(fmt.Sprintf("  … and %d more", hidden)))
		b.WriteString("\n")
	}
	return b.String()
}

// visibleTasks returns up to maxVisibleTasks tasks in a stable order.
func (m trackerModel) visibleTasks() []*scanTask {
	tasks := make([]*scanTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].id < tasks[j].id })
	if len(tasks) > maxVisibleTasks {
		tasks = tasks[:maxVisibleTasks]
	}
	return tasks
}

// =============================================================================
// Log Tracker
// =============================================================================

// logTracker reports overall progress as log lines, roughly one per
// tenth of the run. Per-package file counters are dropped; they only
// make sense on a live display.
type logTracker struct {
	logger *log.Logger

	mu      sync.Mutex
	total   int
	done    int
	lastPct int
}

func (t *logTracker) Start(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.done = 0
	t.lastPct = 0
}

func (t *logTracker) Step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	if t.total == 0 {
		return
	}
	pct := t.done * 100 / t.total
	if pct/10 > t.lastPct/10 || t.done == t.total {
		t.lastPct = pct
		t.logger.Info("progress", "done", t.done, "total", t.total, "pct", pct)
	}
}

func (t *logTracker) Add(string, int) progress.TaskID { return 0 }
func (t *logTracker) Advance(progress.TaskID, int)    {}
func (t *logTracker) Remove(progress.TaskID)          {}
func (t *logTracker) Finish()                         {}
