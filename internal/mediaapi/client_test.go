package mediaapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slmtnm/s4admin/internal/auth"
	"github.com/slmtnm/s4admin/internal/retry"
)

func testClient(handler http.Handler, tokens auth.TokenSource) (*Client, *httptest.Server) {
	ts := httptest.NewServer(handler)
	c := New(Config{
		BaseURL: ts.URL + "/api/",
		Tokens:  tokens,
		RetryConfig: retry.Config{
			MaxAttempts: 3,
			InitialWait: time.Millisecond,
			MaxWait:     time.Millisecond,
		},
	})
	return c, ts
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestListFolders(t *testing.T) {
	r := require.New(t)

	var gotPath, gotPrefix, gotAuth string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotPrefix = req.URL.Query().Get("prefix")
		gotAuth = req.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, FoldersResponse{Folders: []string{"boats", "boats/sails"}})
	}), auth.Static("secret-token"))
	defer ts.Close()

	folders, err := c.ListFolders(context.Background(), "boats/")
	r.NoError(err)
	r.Equal([]string{"boats", "boats/sails"}, folders)
	r.Equal("/api/admin/media/folders", gotPath)
	r.Equal("boats", gotPrefix)
	r.Equal("Bearer secret-token", gotAuth)
}

func TestRequestsWithoutTokenAreUnauthenticated(t *testing.T) {
	r := require.New(t)

	var sawAuth atomic.Bool
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "" {
			sawAuth.Store(true)
		}
		writeJSON(w, http.StatusOK, FoldersResponse{})
	}), nil)
	defer ts.Close()

	_, err := c.ListFolders(context.Background(), "")
	r.NoError(err)
	r.False(sawAuth.Load())
}

func TestConcurrentFolderListingsShareOneRequest(t *testing.T) {
	r := require.New(t)

	var hits atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if hits.Add(1) == 1 {
			close(started)
		}
		<-release
		writeJSON(w, http.StatusOK, FoldersResponse{Folders: []string{"boats/sails"}})
	}), nil)
	defer ts.Close()
	defer close(release)

	type result struct {
		folders []string
		err     error
	}
	live := make(chan result, 1)
	go func() {
		folders, err := c.ListFolders(context.Background(), "boats")
		live <- result{folders, err}
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := c.ListFolders(ctx, "boats")
		cancelled <- err
	}()
	cancel()

	// The cancelled caller returns while the shared request is still blocked.
	err := <-cancelled
	var te *TransportError
	r.ErrorAs(err, &te)
	r.ErrorIs(err, context.Canceled)

	release <- struct{}{}
	res := <-live
	r.NoError(res.err)
	r.Equal([]string{"boats/sails"}, res.folders)
	r.Equal(int32(1), hits.Load())
}

func TestListFilesEncodesSegments(t *testing.T) {
	r := require.New(t)

	var gotRawPath string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotRawPath = req.URL.EscapedPath()
		writeJSON(w, http.StatusOK, FilesResponse{Files: []FileEntry{
			{Key: "boats/hero shots/bow.jpg", URL: "https://cdn.example.com/boats/hero%20shots/bow.jpg"},
		}})
	}), nil)
	defer ts.Close()

	files, err := c.ListFiles(context.Background(), "boats/hero shots")
	r.NoError(err)
	r.Equal("/api/admin/media/folder/boats/hero%20shots", gotRawPath)
	r.Len(files, 1)
	r.Equal("boats/hero shots/bow.jpg", files[0].ID)
	r.Equal("bow.jpg", files[0].Label)
	r.Equal("bow.jpg", files[0].FileName)
}

func TestListingRetriesServerErrors(t *testing.T) {
	r := require.New(t)

	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, FilesResponse{})
	}), nil)
	defer ts.Close()

	_, err := c.ListFiles(context.Background(), "a")
	r.NoError(err)
	r.EqualValues(3, attempts.Load())
}

func TestListingDoesNotRetryClientErrors(t *testing.T) {
	r := require.New(t)

	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: "admin role required"})
	}), nil)
	defer ts.Close()

	_, err := c.ListFiles(context.Background(), "a")
	r.Error(err)
	r.EqualValues(1, attempts.Load())
	r.Equal(CategoryStatus, CategoryOf(err))

	var se *StatusError
	r.ErrorAs(err, &se)
	r.Equal(http.StatusForbidden, se.StatusCode)
	r.Equal("admin role required", se.Message)
}

func TestUploadMultipart(t *testing.T) {
	r := require.New(t)

	var gotPath, gotName, gotType, gotBody string
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.EscapedPath()
		file, header, err := req.FormFile(FormField)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody = string(data)
		writeJSON(w, http.StatusCreated, Media{ID: "a b/c/logo.png", URL: "https://cdn/logo.png", Label: "logo.png"})
	}), nil)
	defer ts.Close()

	media, err := c.Upload(context.Background(), "a b/c", FileFromBytes("logo.png", []byte("PNGDATA")))
	r.NoError(err)
	r.Equal("/api/admin/media/upload/a%20b/c", gotPath)
	r.Equal("logo.png", gotName)
	r.Equal("image/png", gotType)
	r.Equal("PNGDATA", gotBody)
	r.Equal("a b/c/logo.png", media.ID)
}

func TestUploadRootEndpoint(t *testing.T) {
	r := require.New(t)

	c, ts := testClient(http.NotFoundHandler(), nil)
	defer ts.Close()

	r.Equal(ts.URL+"/api/admin/media/upload", c.UploadURL(""))
	r.Equal(ts.URL+"/api/admin/media/upload/x/y", c.UploadURL("/x/y/"))
}

func TestUploadIsNotRetried(t *testing.T) {
	r := require.New(t)

	var attempts atomic.Int32
	c, ts := testClient(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		attempts.Add(1)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "database error: insert media"})
	}), nil)
	defer ts.Close()

	_, err := c.Upload(context.Background(), "a", FileFromBytes("x.png", []byte("x")))
	r.Error(err)
	r.True(IsServerError(err))
	r.EqualValues(1, attempts.Load())
}

func TestTransportErrorCategory(t *testing.T) {
	r := require.New(t)

	c, ts := testClient(http.NotFoundHandler(), nil)
	ts.Close()

	_, err := c.ListFolders(context.Background(), "")
	r.Error(err)
	r.Equal(CategoryTransport, CategoryOf(err))
}

func TestDetectContentType(t *testing.T) {
	r := require.New(t)

	r.Equal("image/jpeg", DetectContentType("bow.JPG", nil))
	r.Equal("image/png", DetectContentType("noext", []byte("\x89PNG\r\n\x1a\n0000")))
	r.Equal("application/octet-stream", DetectContentType("noext", nil))
	r.True(FileFromBytes("a.webp", []byte("x")).IsImage())
	r.False(FileFromBytes("a.pdf", []byte("%PDF-1.4")).IsImage())
}
