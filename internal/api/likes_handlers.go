package api

import "net/http"

// Likes dispatches the /api/likes subtree: the three toggle endpoints and the
// caller's liked-video listing. Toggles carry no ownership check beyond their
// (target, caller) key; a toggle only ever touches the caller's own relation.
func (h *Handler) Likes(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/likes")

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	if len(segments) == 1 && segments[0] == "videos" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		writeData(w, http.StatusOK, h.Store.ListLikedVideos(user.ID), "liked videos")
		return
	}

	if len(segments) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	targetID := segments[1]
	var liked bool
	var err error
	switch segments[0] {
	case "videos":
		liked, err = h.Store.ToggleVideoLike(targetID, user.ID)
	case "comments":
		liked, err = h.Store.ToggleCommentLike(targetID, user.ID)
	case "tweets":
		liked, err = h.Store.ToggleTweetLike(targetID, user.ID)
	default:
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	message := "like removed"
	if liked {
		message = "like added"
	}
	writeData(w, http.StatusOK, map[string]bool{"liked": liked}, message)
}
