package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/slmtnm/s4admin/internal/auth"
	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
	"github.com/slmtnm/s4admin/internal/mediapath"
	"github.com/slmtnm/s4admin/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxUploadSize bounds the multipart body of one upload.
const DefaultMaxUploadSize = 32 << 20

// Options configures a Server.
type Options struct {
	// JWTSecret enables HS256 bearer authentication on /admin routes.
	JWTSecret     []byte
	MaxUploadSize int64
}

// Server serves the admin media API.
type Server struct {
	store   Store
	catalog *Catalog
	opts    Options
	router  *mux.Router
	srv     *http.Server
}

// New wires the routes over store and catalog.
func New(store Store, catalog *Catalog, opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = DefaultMaxUploadSize
	}
	s := &Server{store: store, catalog: catalog, opts: opts}

	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin/media").Subrouter()
	admin.Use(s.requireToken)
	admin.HandleFunc("/folders", s.handleFolders).Methods(http.MethodGet)
	admin.HandleFunc("/folder/{path:.+}", s.handleFiles).Methods(http.MethodGet)
	admin.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	admin.HandleFunc("/upload/{path:.+}", s.handleUpload).Methods(http.MethodPost)

	r.Use(instrument)
	s.router = r
	return s
}

// Handler returns the HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return logging.Middleware(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("media API listening", logging.String("addr", addr))
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.RecordHTTPRequest(r.Method, route, rec.status)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.opts.JWTSecret) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		subject, err := auth.Verify(s.opts.JWTSecret, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		logging.WithContext(r.Context()).Debug("authenticated", logging.String("subject", subject))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"storage": "ok", "database": "ok"}
	code := http.StatusOK
	if err := s.store.Check(r.Context()); err != nil {
		status["storage"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := s.catalog.Ping(r.Context()); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := s.store.Folders(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("storage error: %v", err))
		return
	}
	if folders == nil {
		folders = []string{}
	}
	writeJSON(w, http.StatusOK, mediaapi.FoldersResponse{Folders: folders})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	folder := mediapath.Normalize(mux.Vars(r)["path"])
	objects, err := s.store.Objects(r.Context(), folder)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Sprintf("storage error: %v", err))
		return
	}

	files := make([]mediaapi.FileEntry, 0, len(objects))
	for _, obj := range objects {
		files = append(files, mediaapi.FileEntry{Key: obj.Key, URL: s.store.URL(obj.Key)})
	}
	writeJSON(w, http.StatusOK, mediaapi.FilesResponse{Files: files})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	folder := mediapath.Normalize(mux.Vars(r)["path"])
	log := logging.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	part, header, err := r.FormFile(mediaapi.FormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("missing form field %q", mediaapi.FormField))
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	name := filepath.Base(header.Filename)
	if name == "." || name == "/" || name == "" {
		writeError(w, http.StatusBadRequest, "missing file name")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mediaapi.DetectContentType(name, data)
	}

	key := mediapath.Join(folder, name)
	if err := s.store.Put(r.Context(), key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		log.Error("upload failed", logging.String("key", key), logging.Err(err))
		writeError(w, http.StatusBadGateway, fmt.Sprintf("storage error: %v", err))
		return
	}

	now := time.Now().UTC()
	media := mediaapi.Media{
		ID:          key,
		URL:         s.store.URL(key),
		Label:       strings.TrimSuffix(name, filepath.Ext(name)),
		FileName:    name,
		ContentType: contentType,
		UploadedAt:  &now,
	}
	if err := s.catalog.Record(r.Context(), media, int64(len(data))); err != nil {
		log.Error("failed to record media", logging.String("key", key), logging.Err(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}

	metrics.RecordUploadedBytes(int64(len(data)))
	log.Info("media uploaded", logging.String("key", key), logging.Int("size", len(data)))
	writeJSON(w, http.StatusCreated, media)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", logging.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, mediaapi.ErrorResponse{Error: msg})
}
