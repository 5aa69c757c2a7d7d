package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ingest/internal/app"
	"ingest/internal/domain"
	"ingest/internal/presentation"
	"ingest/internal/state"
)

// Scanner runs one detection cycle on demand.
type Scanner interface {
	Scan(ctx context.Context) int
}

// Settings is the part of the configuration the UI may change.
type Settings interface {
	Destination() string
	SetDestination(dest string) error
}

type PreviewReader interface {
	CaptureTime(ctx context.Context, path string) (time.Time, error)
	Camera(path string) (string, error)
}

type DeviceHelper interface {
	UnmountedDevices(ctx context.Context) ([]string, error)
	Mount(ctx context.Context, device string) (string, error)
	CardReaderPresent(ctx context.Context) bool
}

// History looks up the last successful copy of a source.
type History interface {
	LastFor(src string) (domain.CopyRecord, bool, error)
}

// Config wires the model to the shared state. Scanner, Settings, Preview,
// Devices and History are optional.
type Config struct {
	Context    context.Context
	Progress   *state.Progress
	Log        *state.Log
	Queue      *state.Queue
	Dispatcher *app.Dispatcher
	Scanner    Scanner
	Settings   Settings
	Preview    PreviewReader
	Devices    DeviceHelper
	History    History
	LogLines   int
}

type (
	tickMsg    time.Time
	previewMsg struct {
		path   string
		taken  time.Time
		camera string
		err    error
	}
	scanDoneMsg struct {
		found int
	}
	devicesMsg struct {
		devices []string
		reader  bool
		err     error
	}
	savedMsg struct {
		dest string
		err  error
	}
)

// Model renders the shared progress, log and pending queue. It polls the
// shared state on every tick and never holds a lock between frames.
type Model struct {
	config   Config
	spinner  spinner.Model
	totalBar progress.Model
	fileBar  progress.Model
	input    textinput.Model
	editing  bool

	info     domain.ProgressInfo
	logs     []string
	pending  []domain.CopyRequest
	selected int
	devices  []string
	reader   bool
	notice   string
	// lastCopied caches the history line per pending request.
	lastCopied map[string]string

	previewPath   string
	previewTaken  time.Time
	previewCamera string
	previewErr    error

	Quitting bool
	width    int
}

func NewModel(cfg Config) Model {
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.LogLines <= 0 {
		cfg.LogLines = 8
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	newBar := func() progress.Model {
		return progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		)
	}

	input := textinput.New()
	input.Placeholder = "/path/to/destination"
	input.CharLimit = 4096
	input.Width = 50
	if cfg.Settings != nil {
		input.SetValue(cfg.Settings.Destination())
	}

	m := Model{
		config:   cfg,
		spinner:  s,
		totalBar: newBar(),
		fileBar:  newBar(),
		input:    input,
		width:    80,

		lastCopied: make(map[string]string),
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.totalBar.Width = min(msg.Width-10, 60)
		m.fileBar.Width = m.totalBar.Width
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateKeys(msg)

	case tickMsg:
		m.refresh()
		cmds := []tea.Cmd{tickCmd()}
		if cmd := m.syncPreview(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case previewMsg:
		if msg.path == m.previewPath {
			m.previewTaken = msg.taken
			m.previewCamera = msg.camera
			m.previewErr = msg.err
		}
		return m, nil

	case scanDoneMsg:
		m.notice = fmt.Sprintf("Refresh found %d new drive(s)", msg.found)
		m.refresh()
		return m, nil

	case devicesMsg:
		m.devices = msg.devices
		m.reader = msg.reader
		switch {
		case msg.err != nil:
			m.notice = fmt.Sprintf("Listing devices failed: %v", msg.err)
		case len(msg.devices) == 0 && !msg.reader:
			m.notice = "No SD card reader detected"
		case len(msg.devices) == 0:
			m.notice = "No unmounted devices"
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("Saving destination failed: %v", msg.err)
		} else {
			m.notice = "Destination saved: " + msg.dest
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := m.config.Context

	switch msg.String() {
	case "ctrl+c", "q":
		m.Quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.pending)-1 {
			m.selected++
		}
	case "enter":
		// The watcher only appends, so indexes from the last snapshot stay valid.
		if len(m.pending) > 0 && m.config.Dispatcher != nil {
			if req, ok := m.config.Dispatcher.Accept(ctx, m.selected); ok {
				m.notice = "Started " + req.Src
			}
			m.refresh()
		}
	case "x", "delete", "backspace":
		if len(m.pending) > 0 && m.config.Dispatcher != nil {
			m.config.Dispatcher.Cancel(m.selected)
			m.refresh()
		}
	case "e":
		if m.config.Settings != nil {
			m.editing = true
			return m, m.input.Focus()
		}
	case "r":
		if m.config.Scanner != nil {
			scanner := m.config.Scanner
			return m, func() tea.Msg {
				return scanDoneMsg{found: scanner.Scan(ctx)}
			}
		}
	case "m":
		if m.config.Devices != nil {
			return m, listDevicesCmd(ctx, m.config.Devices)
		}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(msg.String()[0] - '1')
		if m.config.Devices != nil && i < len(m.devices) {
			return m, mountCmd(ctx, m.config.Devices, m.config.Log, m.devices[i])
		}
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.input.Blur()
		m.input.SetValue(m.config.Settings.Destination())
		return m, nil
	case "enter":
		m.editing = false
		m.input.Blur()
		dest := strings.TrimSpace(m.input.Value())
		if dest == "" {
			m.notice = "Destination unchanged"
			return m, nil
		}
		settings := m.config.Settings
		return m, func() tea.Msg {
			return savedMsg{dest: dest, err: settings.SetDestination(dest)}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) refresh() {
	if m.config.Progress != nil {
		m.info = m.config.Progress.Snapshot()
	}
	if m.config.Log != nil {
		m.logs = m.config.Log.Tail(m.config.LogLines)
	}
	if m.config.Queue != nil {
		m.pending = m.config.Queue.Snapshot()
	}
	if m.selected >= len(m.pending) {
		m.selected = 0
	}
	m.lookupHistory()
}

// lookupHistory resolves the last copy of every newly pending source once.
func (m *Model) lookupHistory() {
	if m.config.History == nil {
		return
	}
	for _, req := range m.pending {
		key := historyKey(req)
		if _, ok := m.lastCopied[key]; ok {
			continue
		}
		line := ""
		if rec, ok, err := m.config.History.LastFor(req.Src); err == nil && ok {
			line = "last copied " + rec.FinishedAt.Format("2006-01-02 15:04") + " to " + rec.Dest
		}
		m.lastCopied[key] = line
	}
}

func historyKey(req domain.CopyRequest) string {
	return req.ID + "\x00" + req.Src
}

// syncPreview starts loading capture metadata when the preview candidate changes.
func (m *Model) syncPreview() tea.Cmd {
	if m.info.PreviewPath == m.previewPath {
		return nil
	}
	m.previewPath = m.info.PreviewPath
	m.previewTaken = time.Time{}
	m.previewCamera = ""
	m.previewErr = nil
	if !m.info.HasPreview() || m.config.Preview == nil {
		return nil
	}

	ctx, reader, path := m.config.Context, m.config.Preview, m.previewPath
	return func() tea.Msg {
		taken, err := reader.CaptureTime(ctx, path)
		camera, _ := reader.Camera(path)
		return previewMsg{path: path, taken: taken, camera: camera, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func listDevicesCmd(ctx context.Context, devices DeviceHelper) tea.Cmd {
	return func() tea.Msg {
		list, err := devices.UnmountedDevices(ctx)
		return devicesMsg{devices: list, reader: devices.CardReaderPresent(ctx), err: err}
	}
}

// mountCmd reports the outcome to the shared log and then lists devices again.
func mountCmd(ctx context.Context, devices DeviceHelper, log *state.Log, device string) tea.Cmd {
	return func() tea.Msg {
		out, err := devices.Mount(ctx, device)
		if log != nil {
			if err != nil {
				log.Appendf("Failed to mount %s: %v", device, err)
			} else {
				log.Appendf("Mounted %s: %s", device, out)
			}
		}
		list, listErr := devices.UnmountedDevices(ctx)
		return devicesMsg{devices: list, reader: devices.CardReaderPresent(ctx), err: listErr}
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderProgress())
	if len(m.pending) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderPending())
	}
	if len(m.devices) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderDevices())
	}
	b.WriteString("\n")
	b.WriteString(m.renderLog())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render(iconDrive + " Ingest")
	subtitle := subtitleStyle.Render("Copies new cards and drives as they appear")

	var dest string
	switch {
	case m.editing:
		dest = inputBoxStyle.Render(m.input.View())
	case m.config.Settings != nil && m.config.Settings.Destination() != "":
		dest = dimStyle.Render(fmt.Sprintf("%s Destination: %s", iconFolder, shortenPath(m.config.Settings.Destination())))
	default:
		dest = warningStyle.Render(fmt.Sprintf("%s Destination: not set (press e)", iconFolder))
	}

	lines := []string{title, subtitle, "", dest}
	if m.notice != "" {
		lines = append(lines, dimStyle.Render(m.notice))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderProgress() string {
	var b strings.Builder

	msg := m.info.Message
	switch {
	case strings.HasPrefix(msg, "Error"):
		b.WriteString(errorStyle.Render(msg))
	case msg == app.MessageCompleted:
		b.WriteString(successStyle.Render(msg))
	case m.config.Dispatcher != nil && m.config.Dispatcher.Running() > 0:
		b.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), messageStyle.Render(msg)))
	default:
		b.WriteString(messageStyle.Render(msg))
	}
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  %s %s\n", m.totalBar.ViewAs(m.info.TotalProgress()),
		dimStyle.Render(fmt.Sprintf("%3.0f%%", m.info.TotalProgress()*100))))
	b.WriteString(fmt.Sprintf("  %s %s\n", m.fileBar.ViewAs(m.info.FileProgress()),
		dimStyle.Render(fmt.Sprintf("%3.0f%%", m.info.FileProgress()*100))))
	b.WriteString(fmt.Sprintf("  Speed: %s\n", presentation.FormatSpeed(m.info.Speed)))

	if m.info.CurrentFile != "" {
		b.WriteString(fmt.Sprintf("  %s %s\n", iconArrow, fileNameStyle.Render(m.info.CurrentFile)))
	}
	if m.previewPath != "" {
		b.WriteString(fmt.Sprintf("  %s Preview: %s%s\n", iconPreview, filepath.Base(m.previewPath), m.previewCaption()))
	}
	return b.String()
}

func (m Model) previewCaption() string {
	var parts []string
	if m.previewErr == nil && !m.previewTaken.IsZero() {
		parts = append(parts, "taken "+m.previewTaken.Format("2006-01-02 15:04"))
	}
	if m.previewCamera != "" {
		parts = append(parts, m.previewCamera)
	}
	if len(parts) == 0 {
		return ""
	}
	return dimStyle.Render(" (" + strings.Join(parts, ", ") + ")")
}

func (m Model) renderPending() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Select Drive"))
	b.WriteString("\n")
	for i, req := range m.pending {
		line := fmt.Sprintf("%s %s %s (%d files)", req.Src, iconArrow, req.Dest, req.FileCount)
		if last := m.lastCopied[historyKey(req)]; last != "" {
			line += dimStyle.Render(", " + last)
		}
		if i == m.selected {
			b.WriteString(selectedStyle.Render(iconCursor + " " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDevices() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Unmounted Devices"))
	b.WriteString("\n")
	if m.reader {
		b.WriteString(dimStyle.Render("  SD card reader detected"))
		b.WriteString("\n")
	}
	for i, dev := range m.devices {
		if i >= 9 {
			break
		}
		b.WriteString(fmt.Sprintf("  %d  Mount %s\n", i+1, dev))
	}
	return b.String()
}

func (m Model) renderLog() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Log"))
	b.WriteString("\n")
	if len(m.logs) == 0 {
		b.WriteString(dimStyle.Render("  Nothing yet"))
		b.WriteString("\n")
	}
	for _, line := range m.logs {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func (m Model) renderHelp() string {
	if m.editing {
		return helpStyle.Render("Enter to save • Esc to cancel")
	}
	parts := []string{}
	if len(m.pending) > 0 {
		parts = append(parts, "↑/↓ select", "Enter go", "x cancel")
	}
	parts = append(parts, "e destination", "r refresh", "m devices", "q quit")
	return helpStyle.Render(strings.Join(parts, " • "))
}

// shortenPath replaces the home directory prefix with ~ for display
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
