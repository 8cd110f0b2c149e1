package api

import (
	"net/http"
	"strings"

	"cliptide/internal/models"
	"cliptide/internal/storage"
)

// Playlists dispatches the /api/playlists subtree. Every operation here is
// scoped to the caller: playlists are private collections.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/playlists")

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch len(segments) {
	case 0:
		h.playlistsCollection(w, r, user)
	case 1:
		h.playlistByID(w, r, user, segments[0])
	case 3:
		if segments[1] != "videos" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		h.playlistVideo(w, r, user, segments[0], segments[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) playlistsCollection(w http.ResponseWriter, r *http.Request, user models.User) {
	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, h.Store.ListPlaylists(user.ID), "playlists")
	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		playlist, err := h.Store.CreatePlaylist(user.ID, req.Name, req.Description)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, playlist, "playlist created")
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *Handler) playlistByID(w http.ResponseWriter, r *http.Request, user models.User, id string) {
	playlist, exists := h.Store.GetPlaylist(id)
	if !exists {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if !assertOwner(w, playlist.OwnerID, user.ID) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, playlist, "playlist")
	case http.MethodPatch:
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		updated, err := h.Store.UpdatePlaylist(id, storage.PlaylistUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "playlist updated")
	case http.MethodDelete:
		if err := h.Store.DeletePlaylist(id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "playlist deleted")
	default:
		methodNotAllowed(w, "GET, PATCH, DELETE")
	}
}

func (h *Handler) playlistVideo(w http.ResponseWriter, r *http.Request, user models.User, playlistID, videoID string) {
	playlist, exists := h.Store.GetPlaylist(playlistID)
	if !exists {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if !assertOwner(w, playlist.OwnerID, user.ID) {
		return
	}

	switch r.Method {
	case http.MethodPut:
		updated, err := h.Store.AddPlaylistVideo(playlistID, videoID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "video added to playlist")
	case http.MethodDelete:
		updated, err := h.Store.RemovePlaylistVideo(playlistID, videoID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "video removed from playlist")
	default:
		methodNotAllowed(w, "PUT, DELETE")
	}
}
