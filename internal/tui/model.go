// Package tui is the terminal front-end of the media folder browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

// ViewMode represents the current view mode
type ViewMode int

const (
	ViewBrowser ViewMode = iota
	ViewHelp
	ViewUpload
	ViewNewFolder
)

// LocalItem represents a local file or directory
type LocalItem struct {
	Name  string
	IsDir bool
	Size  int64
}

// entry is one row of the browser list: a folder or a media file.
type entry struct {
	folder string
	media  *mediaapi.Media
}

// Model represents the application state
type Model struct {
	ctx     context.Context
	browser *browser.Browser
	keys    keyMap

	snap      browser.Snapshot
	cursor    int
	viewMode  ViewMode
	loading   bool
	uploading bool

	localItems []LocalItem
	localPath  string

	spinner spinner.Model
	input   textinput.Model

	pick   bool
	picked *mediaapi.Media

	err           error
	statusMessage string
	width         int
	height        int
}

// Messages for async operations
type loadedMsg struct {
	err error
}

type uploadedMsg struct {
	media *mediaapi.Media
	err   error
}

type localFilesLoadedMsg struct {
	items []LocalItem
	path  string
	err   error
}

type statusMsg struct {
	message string
	isError bool
}

// NewModel creates a model over b. With pick set, selecting a file or
// finishing an upload ends the program; Picked then returns the media.
func NewModel(ctx context.Context, b *browser.Browser, pick bool) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	in := textinput.New()
	in.Placeholder = "folder name"
	in.CharLimit = 128

	return Model{
		ctx:       ctx,
		browser:   b,
		keys:      defaultKeyMap(),
		snap:      b.Snapshot(),
		viewMode:  ViewBrowser,
		loading:   true,
		localPath: ".",
		spinner:   sp,
		input:     in,
		pick:      pick,
	}
}

// Picked returns the media chosen in pick mode, if any.
func (m Model) Picked() *mediaapi.Media {
	return m.picked
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load(m.browser.Load))
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.Paste && m.viewMode != ViewNewFolder {
			return m.drop(string(msg.Runes))
		}
		switch m.viewMode {
		case ViewBrowser:
			return m.updateBrowser(msg)
		case ViewHelp:
			return m.updateHelp(msg)
		case ViewUpload:
			return m.updateUpload(msg)
		case ViewNewFolder:
			return m.updateNewFolder(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		m.loading = false
		m.refresh()
		// A superseded load changed nothing; its successor reports instead.
		if msg.err != nil && !errors.Is(msg.err, browser.ErrStaleLoad) {
			m.statusMessage = ""
		}
		return m, nil

	case uploadedMsg:
		m.uploading = false
		m.refresh()
		if msg.err != nil {
			m.statusMessage = ""
			return m, nil
		}
		m.cursor = len(m.snap.Folders)
		if m.pick {
			m.picked = msg.media
			return m, tea.Quit
		}
		return m, nil

	case localFilesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.localItems = msg.items
			m.localPath = msg.path
			m.cursor = 0
			m.viewMode = ViewUpload
			m.err = nil
		}
		return m, nil

	case statusMsg:
		if msg.isError {
			m.err = errors.New(msg.message)
			m.statusMessage = ""
		} else {
			m.err = nil
			m.statusMessage = msg.message
		}
		return m, nil
	}

	return m, nil
}

// refresh copies the browser state into the model and keeps the cursor in
// range.
func (m *Model) refresh() {
	m.snap = m.browser.Snapshot()
	if n := len(m.entries()); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
}

func (m Model) entries() []entry {
	out := make([]entry, 0, len(m.snap.Folders)+len(m.snap.Files))
	for _, f := range m.snap.Folders {
		out = append(out, entry{folder: f})
	}
	for i := range m.snap.Files {
		out = append(out, entry{media: &m.snap.Files[i]})
	}
	return out
}

func (m Model) selected() (entry, bool) {
	entries := m.entries()
	if m.cursor < 0 || m.cursor >= len(entries) {
		return entry{}, false
	}
	return entries[m.cursor], true
}

// updateBrowser handles browser view updates
func (m Model) updateBrowser(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries())-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		e, ok := m.selected()
		if !ok {
			return m, nil
		}
		if e.media == nil {
			return m.navigate(func(ctx context.Context) error {
				return m.browser.NavigateTo(ctx, e.folder)
			})
		}
		m.browser.Select(*e.media)
		m.statusMessage = fmt.Sprintf("Selected '%s'", e.media.Label)
		if m.pick {
			picked := *e.media
			m.picked = &picked
			return m, tea.Quit
		}

	case key.Matches(msg, m.keys.Back):
		if m.snap.Path == "" {
			return m, nil
		}
		return m.navigate(m.browser.NavigateUp)

	case key.Matches(msg, m.keys.Crumb):
		idx := int(msg.Runes[0] - '0')
		if idx >= len(m.snap.Breadcrumbs) || m.snap.Breadcrumbs[idx].Path == m.snap.Path {
			return m, nil
		}
		crumb := m.snap.Breadcrumbs[idx]
		return m.navigate(func(ctx context.Context) error {
			return m.browser.JumpTo(ctx, crumb)
		})

	case key.Matches(msg, m.keys.Refresh):
		return m.navigate(m.browser.Load)

	case key.Matches(msg, m.keys.Upload):
		return m, m.loadLocalFiles(m.localPath)

	case key.Matches(msg, m.keys.NewFolder):
		m.viewMode = ViewNewFolder
		m.input.SetValue("")
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Copy):
		if e, ok := m.selected(); ok && e.media != nil {
			return m, copyToClipboard(e.media.URL)
		}

	case key.Matches(msg, m.keys.Help):
		m.viewMode = ViewHelp
	}

	return m, nil
}

func (m Model) navigate(fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.loading = true
	m.cursor = 0
	m.err = nil
	m.statusMessage = ""
	return m, m.load(fn)
}

// updateHelp handles help view updates
func (m Model) updateHelp(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Help):
		m.viewMode = ViewBrowser
	}
	return m, nil
}

// updateUpload handles the local file picker
func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.viewMode = ViewBrowser
		m.cursor = 0
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.localItems)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if len(m.localItems) == 0 {
			return m, nil
		}
		selected := m.localItems[m.cursor]
		if selected.IsDir {
			if selected.Name == ".." {
				return m, m.loadLocalFiles(parentDir(m.localPath))
			}
			return m, m.loadLocalFiles(filepath.Join(m.localPath, selected.Name))
		}
		if m.browser.Busy(browser.SourcePicker) {
			m.err = browser.ErrUploadInProgress
			return m, nil
		}
		fullPath := filepath.Join(m.localPath, selected.Name)
		m.viewMode = ViewBrowser
		m.cursor = 0
		m.uploading = true
		m.err = nil
		return m, m.uploadFile(fullPath)
	case key.Matches(msg, m.keys.Back):
		return m, m.loadLocalFiles(parentDir(m.localPath))
	}
	return m, nil
}

// updateNewFolder handles the folder name prompt
func (m Model) updateNewFolder(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.viewMode = ViewBrowser
		return m, nil
	case tea.KeyEnter:
		if err := m.browser.CreateFolder(m.input.Value()); err != nil {
			m.err = err
			return m, nil
		}
		m.input.Blur()
		m.viewMode = ViewBrowser
		m.cursor = 0
		m.err = nil
		m.refresh()
		m.statusMessage = fmt.Sprintf("Created folder '/%s'; upload a file to keep it", m.snap.Path)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// drop uploads the first image among pasted paths.
func (m Model) drop(text string) (tea.Model, tea.Cmd) {
	paths := parsePastedPaths(text)
	if len(paths) == 0 {
		return m, nil
	}
	m.viewMode = ViewBrowser
	m.uploading = true
	m.err = nil
	m.statusMessage = ""
	return m, m.dropFiles(paths)
}

func parentDir(path string) string {
	parent := filepath.Dir(path)
	if parent == "." && path == "." {
		// Go to parent of current working directory
		return ".."
	}
	if parent == "" {
		return "."
	}
	return parent
}
