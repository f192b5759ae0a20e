package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/wowr/internal/config"
	"github.com/five82/wowr/internal/prefs"
	"github.com/five82/wowr/internal/state"
)

// Options configures the dashboard.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Config    config.Config
	DryRun    bool
	PollTick  time.Duration
	PrefsPath string // empty uses ~/.config/wowr/prefs.toml
}

// Model is the root dashboard state for Bubble Tea.
type Model struct {
	ctx       context.Context
	store     *state.Store
	cfg       config.Config
	dryRun    bool
	prefsPath string
	pollTick  time.Duration

	theme     Theme
	keys      keyMap
	help      help.Model
	width     int
	height    int
	ready     bool
	showHelp  bool
	follow    bool
	showDebug bool

	snapshot    state.Snapshot
	lastUpdated time.Time
	activity    viewport.Model
}

// New creates a dashboard model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = time.Second
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	p := prefs.Load(prefsPath)

	return Model{
		ctx:       ctx,
		store:     opts.Store,
		cfg:       opts.Config,
		dryRun:    opts.DryRun,
		prefsPath: prefsPath,
		pollTick:  pollTick,
		theme:     GetTheme(p.Theme),
		keys:      DefaultKeyMap(),
		help:      help.New(),
		follow:    p.Follow,
		showDebug: p.ShowDebug,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeActivity()
		m.ready = true
		m.refreshActivity()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.pollTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.refreshActivity()
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshActivity()
	case key.Matches(msg, m.keys.ToggleFollow):
		m.follow = !m.follow
		m.savePrefs()
		if m.follow {
			m.activity.GotoBottom()
		}
	case key.Matches(msg, m.keys.ToggleDebug):
		m.showDebug = !m.showDebug
		m.savePrefs()
		m.refreshActivity()
	case key.Matches(msg, m.keys.Up):
		m.follow = false
		m.activity.LineUp(1)
	case key.Matches(msg, m.keys.Down):
		m.activity.LineDown(1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.follow = false
		m.activity.HalfViewUp()
	case key.Matches(msg, m.keys.HalfPageDown):
		m.activity.HalfViewDown()
	case key.Matches(msg, m.keys.Top):
		m.follow = false
		m.activity.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.activity.GotoBottom()
	}
	return m, nil
}

func (m Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Follow: m.follow, ShowDebug: m.showDebug})
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if err != nil && m.ctx.Err() != nil {
		return nil
	}
	return err
}
