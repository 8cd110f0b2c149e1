package api

import (
	"net/http"

	"cliptide/internal/storage"
)

// Channels dispatches the /api/channels subtree. A channel is an identity, so
// the channel id in these routes is a user id.
func (h *Handler) Channels(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/channels")
	if len(segments) != 2 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	channelID := segments[0]

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch segments[1] {
	case "subscription":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, "PUT")
			return
		}
		if channelID == user.ID {
			writeError(w, http.StatusBadRequest, "cannot subscribe to your own channel")
			return
		}
		subscribed, err := h.Store.ToggleSubscription(channelID, user.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		message := "unsubscribed"
		if subscribed {
			message = "subscribed"
		}
		writeData(w, http.StatusOK, map[string]bool{"subscribed": subscribed}, message)
	case "subscribers":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		// Only the channel owner may enumerate their subscribers.
		if !assertOwner(w, channelID, user.ID) {
			return
		}
		subscribers, err := h.Store.ListChannelSubscribers(channelID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, subscribers, "subscribers")
	case "stats":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		stats, err := h.Store.ChannelStats(channelID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, stats, "channel stats")
	case "videos":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		page, limit := parsePagination(r)
		videos := h.Store.ListVideos(storage.ListVideosFilter{
			OwnerID:            channelID,
			IncludeUnpublished: channelID == user.ID,
			Page:               page,
			Limit:              limit,
		})
		writeData(w, http.StatusOK, videos, "channel videos")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// Users dispatches /api/users/{id}/subscriptions: the channels an identity
// subscribes to.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r, "/api/users")
	if len(segments) != 2 || segments[1] != "subscriptions" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}
	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	channels, err := h.Store.ListSubscribedChannels(segments[0])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, channels, "subscribed channels")
}
