package mediaapi

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// File is an upload source. Open is called once per attempt, so a file can
// be sent again to the fallback endpoint.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// IsImage reports whether the file's media type is image/*.
func (f File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.ContentType), "image/")
}

// FileFromBytes wraps in-memory content.
func FileFromBytes(name string, data []byte) File {
	return File{
		Name:        filepath.Base(name),
		ContentType: DetectContentType(name, data),
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileFromPath describes a local file. The content type comes from the
// extension, falling back to sniffing the first bytes.
func FileFromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("'%s' is a directory", path)
	}

	head := make([]byte, 512)
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	n, _ := io.ReadFull(fh, head)
	fh.Close()

	return File{
		Name:        filepath.Base(path),
		ContentType: DetectContentType(path, head[:n]),
		Size:        info.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// DetectContentType guesses a media type from the name's extension, then
// from the content.
func DetectContentType(name string, head []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			return mt
		}
		return ct
	}
	if len(head) == 0 {
		return "application/octet-stream"
	}
	ct := http.DetectContentType(head)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}
