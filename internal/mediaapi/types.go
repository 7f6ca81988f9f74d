package mediaapi

import (
	"time"

	"github.com/slmtnm/s4admin/internal/mediapath"
)

// Media describes one uploaded object. ID is its storage key.
type Media struct {
	ID          string     `json:"id"`
	URL         string     `json:"url"`
	Label       string     `json:"label"`
	FileName    string     `json:"fileName,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
}

// FoldersResponse is the body of GET /admin/media/folders.
type FoldersResponse struct {
	Folders []string `json:"folders"`
}

// FileEntry is one element of a folder listing. The field names follow the
// storage backend's casing.
type FileEntry struct {
	Key string `json:"Key"`
	URL string `json:"Url"`
}

// FilesResponse is the body of GET /admin/media/folder/{path}.
type FilesResponse struct {
	Files []FileEntry `json:"files"`
}

// ErrorResponse is the JSON error body returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Media converts a listing entry to a descriptor. Listings carry only the
// key and URL, so the label and file name are derived from the key.
func (f FileEntry) Media() Media {
	name := mediapath.Base(f.Key)
	return Media{
		ID:       f.Key,
		URL:      f.URL,
		Label:    name,
		FileName: name,
	}
}
