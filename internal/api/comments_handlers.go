package api

import (
	"net/http"
	"strings"
)

// Comments dispatches /api/comments/{id}: editing and deleting a single
// comment. Listing and creation live under the owning video.
func (h *Handler) Comments(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/comments")
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id := segments[0]

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	comment, exists := h.Store.GetComment(id)
	if !exists {
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		if !assertOwner(w, comment.OwnerID, user.ID) {
			return
		}
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
		updated, err := h.Store.UpdateComment(id, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "comment updated")
	case http.MethodDelete:
		if !assertOwner(w, comment.OwnerID, user.ID) {
			return
		}
		if err := h.Store.DeleteComment(id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "comment deleted")
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}
