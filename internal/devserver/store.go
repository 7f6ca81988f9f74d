// Package devserver implements a development version of the admin media
// API. Objects live in an S3 bucket or in memory; every upload is recorded
// in a SQLite catalog, and a catalog failure is reported as a 500 "database
// error" the same way the production API does.
package devserver

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slmtnm/s4admin/internal/mediapath"
)

// Object is a stored media object.
type Object struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store holds media objects under slash-separated keys.
type Store interface {
	// Folders returns every folder path below prefix ("" for all), derived
	// from the keys of stored objects.
	Folders(ctx context.Context, prefix string) ([]string, error)
	// Objects returns the objects directly inside folder.
	Objects(ctx context.Context, folder string) ([]Object, error)
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// URL returns the public URL of key.
	URL(key string) string
	Check(ctx context.Context) error
}

// foldersOf derives the folder set from object keys, keeping those under
// prefix.
func foldersOf(keys []string, prefix string) []string {
	prefix = mediapath.Normalize(prefix)
	seen := make(map[string]struct{})
	var folders []string
	for _, key := range keys {
		for _, folder := range mediapath.Ancestors(key) {
			if prefix != "" && folder != prefix && !strings.HasPrefix(folder, prefix+mediapath.Separator) {
				continue
			}
			if _, ok := seen[folder]; ok {
				continue
			}
			seen[folder] = struct{}{}
			folders = append(folders, folder)
		}
	}
	sort.Strings(folders)
	return folders
}

// MemoryStore keeps objects in memory. It serves tests and `serve` without
// storage credentials.
type MemoryStore struct {
	mu        sync.RWMutex
	objects   map[string]memObject
	publicURL string
}

type memObject struct {
	Object
	data []byte
}

// NewMemoryStore returns an empty store whose URLs are rooted at publicURL.
func NewMemoryStore(publicURL string) *MemoryStore {
	return &MemoryStore{
		objects:   make(map[string]memObject),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (m *MemoryStore) Folders(ctx context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		keys = append(keys, key)
	}
	m.mu.RUnlock()
	return foldersOf(keys, prefix), nil
}

func (m *MemoryStore) Objects(ctx context.Context, folder string) ([]Object, error) {
	folder = mediapath.Normalize(folder)
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Object
	for key, obj := range m.objects {
		if mediapath.Up(key) == folder {
			out = append(out, obj.Object)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object data: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{
		Object: Object{
			Key:          key,
			Size:         int64(len(data)),
			ContentType:  contentType,
			LastModified: time.Now().UTC(),
		},
		data: data,
	}
	return nil
}

// Get returns the content stored under key.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, ok
}

func (m *MemoryStore) URL(key string) string {
	return m.publicURL + "/" + key
}

func (m *MemoryStore) Check(ctx context.Context) error { return nil }
