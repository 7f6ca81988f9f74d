// Package browser implements the media folder browser: a current-path cursor
// over prefix-keyed object storage, the folder and file listings for that
// path, navigation, and uploads.
//
// A Browser is safe for concurrent use. Each load captures a generation
// number; navigating or reloading cancels the previous load and bumps the
// generation, and a load that finishes after that is discarded so a slow
// response can never overwrite the listing of a newer path.
package browser

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
	"github.com/slmtnm/s4admin/internal/mediapath"
	"github.com/slmtnm/s4admin/internal/metrics"
)

// API is the subset of the admin media API the browser needs.
type API interface {
	ListFolders(ctx context.Context, prefix string) ([]string, error)
	ListFiles(ctx context.Context, path string) ([]mediaapi.Media, error)
	Upload(ctx context.Context, path string, f mediaapi.File) (*mediaapi.Media, error)
}

// State is the state of the current directory view.
type State int

const (
	StateLoading State = iota
	StateLoaded
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	}
	return "unknown"
}

var (
	// ErrStaleLoad is returned by a load superseded by a newer navigation.
	ErrStaleLoad = errors.New("load superseded by a newer navigation")
	// ErrUploadInProgress is returned when the same source starts a second
	// upload before the first one finished.
	ErrUploadInProgress = errors.New("an upload is already in progress")
	// ErrNoImage is returned when a drop contains no image file.
	ErrNoImage = errors.New("no image file in drop")
	// ErrInvalidFolderName is returned for empty or relative folder names and
	// for names spanning more than one segment.
	ErrInvalidFolderName = errors.New("invalid folder name")
)

// Options configures a Browser.
type Options struct {
	// InitialPath is the folder shown first. Defaults to the root.
	InitialPath string
	// OnSelect is called with every uploaded media and every media the user
	// picks from the listing.
	OnSelect func(mediaapi.Media)
}

// Snapshot is a consistent copy of the browser state for rendering.
type Snapshot struct {
	Path        string
	Breadcrumbs []mediapath.Crumb
	Folders     []string
	Files       []mediaapi.Media
	State       State
	Message     string // last error surfaced to the user
	Notice      string // last success notice
	Uploading   bool
}

// Browser is the folder browser.
type Browser struct {
	api      API
	onSelect func(mediaapi.Media)

	mu      sync.Mutex
	path    string
	folders []string
	files   []mediaapi.Media
	state   State
	message string
	notice  string
	gen     uint64
	cancel  context.CancelFunc
	busy    map[Source]bool

	// uploaded holds media that landed while a load was in flight. That
	// load may have been listed before the upload, so it merges them back.
	uploaded []pendingMedia
}

type pendingMedia struct {
	path  string
	media mediaapi.Media
}

// New creates a browser positioned at opts.InitialPath. Nothing is fetched
// until Load is called.
func New(api API, opts Options) *Browser {
	return &Browser{
		api:      api,
		onSelect: opts.OnSelect,
		path:     mediapath.Normalize(opts.InitialPath),
		folders:  []string{},
		files:    []mediaapi.Media{},
		state:    StateLoading,
		busy:     make(map[Source]bool),
	}
}

// Path returns the current path.
func (b *Browser) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Snapshot returns a copy of the current state.
func (b *Browser) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	uploading := false
	for _, busy := range b.busy {
		uploading = uploading || busy
	}
	return Snapshot{
		Path:        b.path,
		Breadcrumbs: mediapath.Breadcrumbs(b.path),
		Folders:     append([]string(nil), b.folders...),
		Files:       append([]mediaapi.Media(nil), b.files...),
		State:       b.state,
		Message:     b.message,
		Notice:      b.notice,
		Uploading:   uploading,
	}
}

// begin supersedes any in-flight load. Callers hold b.mu.
func (b *Browser) begin() uint64 {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
	return b.gen
}

// Load fetches the listings of the current path. The folder list is always
// fetched; the file list only below the root, since the root shows folders
// only. A failed listing is replaced by an empty one and its message is
// surfaced; the returned error joins both listing failures.
func (b *Browser) Load(ctx context.Context) error {
	b.mu.Lock()
	gen := b.begin()
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	path := b.path
	b.state = StateLoading
	b.message = ""
	b.mu.Unlock()
	defer cancel()

	log := logging.L().With(zap.String("path", path))

	folders := []string{}
	var folderErr error
	if all, err := b.api.ListFolders(ctx, path); err != nil {
		folderErr = err
		log.Warn("folder listing failed", zap.Error(err))
	} else {
		folders = mediapath.DirectChildren(all, path)
	}

	files := []mediaapi.Media{}
	var fileErr error
	if !mediapath.IsRoot(path) {
		if listed, err := b.api.ListFiles(ctx, path); err != nil {
			fileErr = err
			log.Warn("file listing failed", zap.Error(err))
		} else if listed != nil {
			files = listed
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		metrics.RecordStaleLoad()
		log.Debug("discarding stale listing")
		return ErrStaleLoad
	}
	b.cancel = nil
	b.folders = folders
	b.files = b.mergeUploaded(path, files)

	err := errors.Join(folderErr, fileErr)
	if err != nil {
		b.state = StateError
		b.message = listingMessage(folderErr, fileErr)
		return err
	}
	b.state = StateLoaded
	log.Debug("listing loaded", zap.Int("folders", len(folders)), zap.Int("files", len(files)))
	return nil
}

// mergeUploaded prepends media uploaded to path during the load that are
// missing from files, and clears the pending list. Callers hold b.mu.
func (b *Browser) mergeUploaded(path string, files []mediaapi.Media) []mediaapi.Media {
	pending := b.uploaded
	b.uploaded = nil
	for _, p := range pending {
		if p.path != path || containsMedia(files, p.media) {
			continue
		}
		files = append([]mediaapi.Media{p.media}, files...)
	}
	return files
}

func containsMedia(files []mediaapi.Media, m mediaapi.Media) bool {
	for _, f := range files {
		if (m.ID != "" && f.ID == m.ID) || (m.URL != "" && f.URL == m.URL) {
			return true
		}
	}
	return false
}

// NavigateTo moves to path and reloads.
func (b *Browser) NavigateTo(ctx context.Context, path string) error {
	b.mu.Lock()
	b.path = mediapath.Normalize(path)
	b.notice = ""
	b.mu.Unlock()
	return b.Load(ctx)
}

// NavigateUp moves to the parent folder and reloads. At the root it does
// nothing.
func (b *Browser) NavigateUp(ctx context.Context) error {
	b.mu.Lock()
	if mediapath.IsRoot(b.path) {
		b.mu.Unlock()
		return nil
	}
	b.path = mediapath.Up(b.path)
	b.notice = ""
	b.mu.Unlock()
	return b.Load(ctx)
}

// JumpTo navigates to a breadcrumb.
func (b *Browser) JumpTo(ctx context.Context, crumb mediapath.Crumb) error {
	return b.NavigateTo(ctx, crumb.Path)
}

// CreateFolder enters a new child folder named name without any request.
// Storage has no folder objects; the folder exists once a file is uploaded
// under it, so until then it is shown empty.
func (b *Browser) CreateFolder(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.Contains(name, mediapath.Separator) {
		return ErrInvalidFolderName
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.begin()
	b.path = mediapath.Join(b.path, name)
	b.folders = []string{}
	b.files = []mediaapi.Media{}
	b.state = StateLoaded
	b.message = ""
	b.notice = ""
	logging.Debug("folder created locally", logging.String("path", b.path))
	return nil
}

// Select hands m to the selection callback.
func (b *Browser) Select(m mediaapi.Media) {
	if b.onSelect != nil {
		b.onSelect(m)
	}
}

// Close cancels any in-flight load.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.begin()
}
