package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cliptide/internal/auth"
	"cliptide/internal/media"
	"cliptide/internal/observability/logging"
	"cliptide/internal/storage"
)

const maxUploadBytes = 256 << 20

type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Media    media.Uploader
	Logger   *slog.Logger
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager, uploader media.Uploader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:    store,
		Sessions: sessions,
		Media:    uploader,
		Logger:   logging.WithComponent(logger, "api"),
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		writeData(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"}, "datastore unavailable")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "healthy")
}

// pathSegments splits the path remainder after the given prefix into its
// non-empty segments.
func pathSegments(r *http.Request, prefix string) []string {
	remainder := strings.TrimPrefix(r.URL.Path, prefix)
	remainder = strings.Trim(remainder, "/")
	if remainder == "" {
		return nil
	}
	return strings.Split(remainder, "/")
}

func parsePagination(r *http.Request) (page, limit int) {
	query := r.URL.Query()
	if raw := query.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	return page, limit
}

// saveUpload copies a multipart file to a scratch path and hands it to the
// media store. The scratch file is removed before returning, on success and
// on every failure path.
func (h *Handler) saveUpload(ctx context.Context, kind string, file multipart.File, header *multipart.FileHeader) (media.Asset, error) {
	if h.Media == nil || !h.Media.Enabled() {
		return media.Asset{}, fmt.Errorf("media storage is not configured")
	}

	tmp, err := os.CreateTemp("", "cliptide-upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return media.Asset{}, fmt.Errorf("create scratch file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		return media.Asset{}, fmt.Errorf("buffer upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return media.Asset{}, fmt.Errorf("flush upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	asset, err := h.Media.Upload(ctx, kind, tmpPath, contentType)
	if err != nil {
		return media.Asset{}, err
	}
	return asset, nil
}

// formFileAsset extracts the named file from an already-parsed multipart form
// and stores it. A missing field returns a zero asset and no error so callers
// can treat optional uploads uniformly.
func (h *Handler) formFileAsset(r *http.Request, field, kind string) (media.Asset, bool, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return media.Asset{}, false, nil
	}
	if err != nil {
		return media.Asset{}, false, err
	}
	defer file.Close()

	asset, err := h.saveUpload(r.Context(), kind, file, header)
	if err != nil {
		return media.Asset{}, true, err
	}
	return asset, true, nil
}
