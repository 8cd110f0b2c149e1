package api

import (
	"net/http"
	"strings"

	"cliptide/internal/storage"
)

// Videos dispatches the /api/videos subtree: the collection, single videos,
// the publish toggle, and per-video comments.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/videos")
	switch len(segments) {
	case 0:
		h.videosCollection(w, r)
	case 1:
		h.videoByID(w, r, segments[0])
	case 2:
		switch segments[1] {
		case "publish":
			h.toggleVideoPublish(w, r, segments[0])
		case "comments":
			h.videoComments(w, r, segments[0])
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) videosCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		page, limit := parsePagination(r)
		videos := h.Store.ListVideos(storage.ListVideosFilter{
			Query:    query.Get("query"),
			OwnerID:  query.Get("userId"),
			SortBy:   query.Get("sortBy"),
			SortType: query.Get("sortType"),
			Page:     page,
			Limit:    limit,
		})
		writeData(w, http.StatusOK, videos, "videos")
	case http.MethodPost:
		h.publishVideo(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *Handler) publishVideo(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form required")
		return
	}
	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	videoAsset, present, err := h.formFileAsset(r, "videoFile", "videos")
	if err != nil || !present {
		writeError(w, http.StatusBadRequest, "video upload is required")
		return
	}
	thumbnail, _, err := h.formFileAsset(r, "thumbnail", "thumbnails")
	if err != nil {
		writeError(w, http.StatusBadRequest, "thumbnail upload failed")
		return
	}

	video, err := h.Store.CreateVideo(storage.CreateVideoParams{
		OwnerID:         user.ID,
		Title:           title,
		Description:     r.FormValue("description"),
		VideoURL:        videoAsset.URL,
		ThumbnailURL:    thumbnail.URL,
		DurationSeconds: videoAsset.DurationSeconds,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, video, "video published")
}

func (h *Handler) videoByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		video, err := h.Store.IncrementVideoViews(id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, video, "video")
	case http.MethodPatch:
		user, ok := h.authenticate(w, r)
		if !ok {
			return
		}
		video, exists := h.Store.GetVideo(id)
		if !exists {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		if !assertOwner(w, video.OwnerID, user.ID) {
			return
		}

		var req struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Thumbnail   *string `json:"thumbnail"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := h.Store.UpdateVideo(id, storage.VideoUpdate{
			Title:        req.Title,
			Description:  req.Description,
			ThumbnailURL: req.Thumbnail,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "video updated")
	case http.MethodDelete:
		user, ok := h.authenticate(w, r)
		if !ok {
			return
		}
		video, exists := h.Store.GetVideo(id)
		if !exists {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		if !assertOwner(w, video.OwnerID, user.ID) {
			return
		}
		if err := h.Store.DeleteVideo(id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "video deleted")
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE")
	}
}

func (h *Handler) toggleVideoPublish(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	video, exists := h.Store.GetVideo(id)
	if !exists {
		writeError(w, http.StatusNotFound, "video not found")
		return
	}
	if !assertOwner(w, video.OwnerID, user.ID) {
		return
	}

	updated, err := h.Store.ToggleVideoPublished(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, updated, "publish status toggled")
}

func (h *Handler) videoComments(w http.ResponseWriter, r *http.Request, videoID string) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		page, limit := parsePagination(r)
		comments, err := h.Store.ListVideoComments(videoID, page, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, comments, "comments")
	case http.MethodPost:
		var req struct {
			Content string `json:"content"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		comment, err := h.Store.CreateComment(videoID, user.ID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, comment, "comment added")
	default:
		methodNotAllowed(w, "GET, POST")
	}
}
