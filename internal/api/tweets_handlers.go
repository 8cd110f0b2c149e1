package api

import (
	"net/http"
	"strings"
)

// Tweets dispatches the /api/tweets subtree.
func (h *Handler) Tweets(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/tweets")
	switch len(segments) {
	case 0:
		h.tweetsCollection(w, r)
	case 1:
		h.tweetByID(w, r, segments[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) tweetsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tweets := h.Store.ListTweets(r.URL.Query().Get("userId"))
		writeData(w, http.StatusOK, tweets, "tweets")
	case http.MethodPost:
		user, ok := h.authenticate(w, r)
		if !ok {
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
		tweet, err := h.Store.CreateTweet(user.ID, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, tweet, "tweet posted")
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (h *Handler) tweetByID(w http.ResponseWriter, r *http.Request, id string) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	tweet, exists := h.Store.GetTweet(id)
	if !exists {
		writeError(w, http.StatusNotFound, "tweet not found")
		return
	}

	switch r.Method {
	case http.MethodPatch:
		if !assertOwner(w, tweet.OwnerID, user.ID) {
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
		updated, err := h.Store.UpdateTweet(id, req.Content)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, updated, "tweet updated")
	case http.MethodDelete:
		if !assertOwner(w, tweet.OwnerID, user.ID) {
			return
		}
		if err := h.Store.DeleteTweet(id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "tweet deleted")
	default:
		methodNotAllowed(w, "PATCH, DELETE")
	}
}
