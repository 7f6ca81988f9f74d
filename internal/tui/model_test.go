package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

type stubAPI struct {
	mu      sync.Mutex
	folders map[string][]string
	files   map[string][]mediaapi.Media
	uploads []string
	calls   int
	// gate, when set, holds uploads of that file name until closed.
	gate map[string]chan struct{}
}

func (s *stubAPI) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.folders[prefix], nil
}

func (s *stubAPI) ListFiles(ctx context.Context, path string) ([]mediaapi.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.files[path], nil
}

func (s *stubAPI) Upload(ctx context.Context, path string, f mediaapi.File) (*mediaapi.Media, error) {
	s.mu.Lock()
	gate := s.gate[f.Name]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	id := f.Name
	if path != "" {
		id = path + "/" + f.Name
	}
	s.uploads = append(s.uploads, id)
	return &mediaapi.Media{ID: id, URL: "https://cdn.example.com/" + id, Label: f.Name}, nil
}

func newStub() *stubAPI {
	return &stubAPI{
		folders: map[string][]string{
			"":      {"boats", "options"},
			"boats": {"boats/sails"},
		},
		files: map[string][]mediaapi.Media{
			"boats": {{ID: "boats/hull.png", URL: "https://cdn.example.com/boats/hull.png", Label: "hull.png"}},
		},
	}
}

// run executes cmd and feeds its message back, as the bubbletea runtime would.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func loaded(t *testing.T, api *stubAPI, opts browser.Options, pick bool) Model {
	t.Helper()
	b := browser.New(api, opts)
	m := NewModel(context.Background(), b, pick)
	return run(t, m, m.load(b.Load))
}

func TestInitialLoadShowsRootFolders(t *testing.T) {
	r := require.New(t)

	m := loaded(t, newStub(), browser.Options{}, false)
	r.False(m.loading)
	r.Equal([]string{"boats", "options"}, m.snap.Folders)
	r.Empty(m.snap.Files)
	r.Contains(m.View(), "boats/")
}

func TestEnterFolderAndBack(t *testing.T) {
	r := require.New(t)

	m := loaded(t, newStub(), browser.Options{}, false)

	m, cmd := press(m, "enter")
	r.True(m.loading)
	m = run(t, m, cmd)
	r.Equal("boats", m.snap.Path)
	r.Len(m.entries(), 2)
	r.Contains(m.View(), "hull.png")

	m, cmd = press(m, "backspace")
	m = run(t, m, cmd)
	r.Equal("", m.snap.Path)

	// Already at the root: nothing to do.
	_, cmd = press(m, "backspace")
	r.Nil(cmd)
}

func TestBreadcrumbJump(t *testing.T) {
	r := require.New(t)

	m := loaded(t, newStub(), browser.Options{InitialPath: "boats/sails"}, false)
	r.Len(m.snap.Breadcrumbs, 3)

	m, cmd := press(m, "1")
	m = run(t, m, cmd)
	r.Equal("boats", m.snap.Path)

	_, cmd = press(m, "7")
	r.Nil(cmd)
}

func TestNewFolderMakesNoRequests(t *testing.T) {
	r := require.New(t)

	api := newStub()
	m := loaded(t, api, browser.Options{InitialPath: "boats"}, false)
	before := api.calls

	m, _ = press(m, "n")
	r.Equal(ViewNewFolder, m.viewMode)
	m, _ = press(m, "bow")
	m, cmd := press(m, "enter")
	r.Nil(cmd)

	r.Equal(ViewBrowser, m.viewMode)
	r.Equal("boats/bow", m.snap.Path)
	r.Empty(m.entries())
	r.Equal(before, api.calls)
}

func TestPickModeSelectsFile(t *testing.T) {
	r := require.New(t)

	var selected []string
	m := loaded(t, newStub(), browser.Options{
		InitialPath: "boats",
		OnSelect:    func(m mediaapi.Media) { selected = append(selected, m.ID) },
	}, true)

	m, _ = press(m, "down")
	m, cmd := press(m, "enter")
	r.NotNil(cmd)
	r.Equal(tea.QuitMsg{}, cmd())
	r.Equal("boats/hull.png", m.Picked().ID)
	r.Equal([]string{"boats/hull.png"}, selected)
}

func TestPasteDropsFirstImage(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	doc := filepath.Join(dir, "notes.txt")
	img := filepath.Join(dir, "my bow.png")
	r.NoError(os.WriteFile(doc, []byte("text"), 0o600))
	r.NoError(os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	api := newStub()
	m := loaded(t, api, browser.Options{InitialPath: "boats"}, false)

	paste := doc + " '" + img + "'"
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(paste), Paste: true})
	m = updated.(Model)
	r.True(m.uploading)
	m = run(t, m, cmd)

	r.Equal([]string{"boats/my bow.png"}, api.uploads)
	r.Equal("boats/my bow.png", m.snap.Files[0].ID)
	r.Contains(m.View(), "Uploaded")
}

func TestPasteWithoutImageShowsMessage(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	doc := filepath.Join(dir, "notes.txt")
	r.NoError(os.WriteFile(doc, []byte("text"), 0o600))

	api := newStub()
	m := loaded(t, api, browser.Options{InitialPath: "boats"}, false)

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(doc), Paste: true})
	m = run(t, updated.(Model), cmd)
	r.Empty(api.uploads)
	r.NotEmpty(m.snap.Message)
	r.True(strings.Contains(m.View(), "image"))
}

func TestLocalPickerUpload(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	r.NoError(os.WriteFile(filepath.Join(dir, "deck.jpg"), []byte("jpg"), 0o600))
	r.NoError(os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	api := newStub()
	m := loaded(t, api, browser.Options{InitialPath: "boats"}, false)
	m = run(t, m, m.loadLocalFiles(dir))
	r.Equal(ViewUpload, m.viewMode)
	r.Equal([]string{"..", "sub", "deck.jpg"}, []string{m.localItems[0].Name, m.localItems[1].Name, m.localItems[2].Name})

	m, _ = press(m, "down")
	m, _ = press(m, "down")
	m, cmd := press(m, "enter")
	r.Equal(ViewBrowser, m.viewMode)
	m = run(t, m, cmd)
	r.Equal([]string{"boats/deck.jpg"}, api.uploads)
	r.False(m.uploading)
}

func TestPickerUploadRunsAlongsideDrop(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	img := filepath.Join(dir, "bow.png")
	r.NoError(os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	r.NoError(os.WriteFile(filepath.Join(dir, "deck.jpg"), []byte("jpg"), 0o600))

	api := newStub()
	gate := make(chan struct{})
	api.gate = map[string]chan struct{}{"bow.png": gate}
	m := loaded(t, api, browser.Options{InitialPath: "boats"}, false)

	updated, dropCmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(img), Paste: true})
	m = updated.(Model)
	dropped := make(chan tea.Msg, 1)
	go func() { dropped <- dropCmd() }()
	r.Eventually(func() bool { return m.browser.Busy(browser.SourceDrop) }, time.Second, time.Millisecond)

	m = run(t, m, m.loadLocalFiles(dir))
	r.Equal("deck.jpg", m.localItems[2].Name)
	m, _ = press(m, "down")
	m, _ = press(m, "down")
	m, pickCmd := press(m, "enter")
	r.NoError(m.err)
	m = run(t, m, pickCmd)
	r.Equal([]string{"boats/deck.jpg"}, api.uploads)

	close(gate)
	updated, _ = m.Update(<-dropped)
	m = updated.(Model)
	r.ElementsMatch([]string{"boats/deck.jpg", "boats/bow.png"}, api.uploads)
}
