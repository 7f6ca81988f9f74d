package dropfolder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4admin/internal/browser"
	"github.com/slmtnm/s4admin/internal/mediaapi"
)

type recordingAPI struct {
	mu      sync.Mutex
	uploads []string
}

func (a *recordingAPI) ListFolders(ctx context.Context, prefix string) ([]string, error) {
	return nil, nil
}

func (a *recordingAPI) ListFiles(ctx context.Context, path string) ([]mediaapi.Media, error) {
	return nil, nil
}

func (a *recordingAPI) Upload(ctx context.Context, path string, f mediaapi.File) (*mediaapi.Media, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := path + "/" + f.Name
	a.uploads = append(a.uploads, id)
	return &mediaapi.Media{ID: id, URL: "https://cdn.example.com/" + id}, nil
}

func TestWatcherUploadsDroppedImages(t *testing.T) {
	r := require.New(t)

	dir := t.TempDir()
	api := &recordingAPI{}

	results := make(chan Result, 4)
	w := &Watcher{
		Dir:      dir,
		Browser:  browser.New(api, browser.Options{InitialPath: "boats"}),
		Settle:   50 * time.Millisecond,
		OnResult: func(res Result) { results <- res },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	r.NoError(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o600))
	r.NoError(os.WriteFile(filepath.Join(dir, "hull.png"), []byte("\x89PNG\r\n\x1a\n"), 0o600))
	r.NoError(os.WriteFile(filepath.Join(dir, ".hidden.png"), []byte("png"), 0o600))

	got := map[string]Result{}
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case res := <-results:
			got[filepath.Base(res.Path)] = res
		case <-timeout:
			t.Fatalf("timed out waiting for drops, got %v", got)
		}
	}

	cancel()
	r.NoError(<-done)

	r.NoError(got["hull.png"].Err)
	r.Equal("boats/hull.png", got["hull.png"].Media.ID)
	r.ErrorIs(got["notes.txt"].Err, browser.ErrNoImage)
	r.NotEmpty(got["notes.txt"].Message)

	api.mu.Lock()
	defer api.mu.Unlock()
	r.Equal([]string{"boats/hull.png"}, api.uploads)
}
