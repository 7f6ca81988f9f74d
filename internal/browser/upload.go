package browser

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/slmtnm/s4admin/internal/logging"
	"github.com/slmtnm/s4admin/internal/mediaapi"
	"github.com/slmtnm/s4admin/internal/mediapath"
	"github.com/slmtnm/s4admin/internal/metrics"
)

// Source identifies the control an upload came from. Each source allows one
// upload at a time; different sources do not block each other.
type Source int

const (
	SourcePicker Source = iota
	SourceDrop
)

func (s Source) String() string {
	if s == SourceDrop {
		return "drop"
	}
	return "picker"
}

// Busy reports whether src has an upload in flight.
func (b *Browser) Busy(src Source) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.busy[src]
}

// Upload sends f to the current folder. A non-root upload that fails with a
// server error is retried once against the root upload endpoint. The
// uploaded media is prepended to the file list if the user is still on the
// same folder, and passed to the selection callback.
func (b *Browser) Upload(ctx context.Context, src Source, f mediaapi.File) (*mediaapi.Media, error) {
	b.mu.Lock()
	if b.busy[src] {
		b.mu.Unlock()
		return nil, ErrUploadInProgress
	}
	b.busy[src] = true
	path := b.path
	b.notice = ""
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.busy[src] = false
		b.mu.Unlock()
	}()

	log := logging.L().With(
		zap.String("path", path),
		zap.String("file", f.Name),
		zap.Stringer("source", src),
	)

	media, err := b.api.Upload(ctx, path, f)
	if err != nil && !mediapath.IsRoot(path) && mediaapi.IsServerError(err) {
		log.Warn("path upload failed, retrying at root", zap.Error(err))
		metrics.RecordUploadFallback()
		media, err = b.api.Upload(ctx, "", f)
	}

	b.mu.Lock()
	if err != nil {
		b.message = UploadMessage(err)
		b.mu.Unlock()
		log.Error("upload failed", zap.Error(err), zap.Stringer("category", mediaapi.CategoryOf(err)))
		return nil, err
	}
	if b.path == path {
		b.files = append([]mediaapi.Media{*media}, b.files...)
		if b.cancel != nil {
			b.uploaded = append(b.uploaded, pendingMedia{path: path, media: *media})
		}
	}
	b.message = ""
	b.notice = fmt.Sprintf("Uploaded '%s'", displayName(*media, f))
	b.mu.Unlock()

	log.Info("upload complete", zap.String("id", media.ID))
	b.Select(*media)
	return media, nil
}

// Drop uploads the first image among files. Drops without an image are
// rejected locally.
func (b *Browser) Drop(ctx context.Context, files []mediaapi.File) (*mediaapi.Media, error) {
	for _, f := range files {
		if f.IsImage() {
			return b.Upload(ctx, SourceDrop, f)
		}
	}

	b.mu.Lock()
	b.message = dropRejectedMessage
	b.notice = ""
	b.mu.Unlock()
	return nil, ErrNoImage
}

func displayName(m mediaapi.Media, f mediaapi.File) string {
	switch {
	case m.Label != "":
		return m.Label
	case m.FileName != "":
		return m.FileName
	}
	return f.Name
}
