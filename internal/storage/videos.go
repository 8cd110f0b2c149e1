package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

const (
	defaultListPage  = 1
	defaultListLimit = 10
	maxListLimit     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultListPage
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return page, limit
}

func paginate[T any](items []T, page, limit int) []T {
	page, limit = normalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end:end]
}

func (s *Storage) CreateVideo(params CreateVideoParams) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return models.Video{}, errors.New("title is required")
	}
	if params.VideoURL == "" {
		return models.Video{}, errors.New("video URL is required")
	}
	if _, ok := s.data.Users[params.OwnerID]; !ok {
		return models.Video{}, fmt.Errorf("owner %s: %w", params.OwnerID, ErrNotFound)
	}
	if params.DurationSeconds < 0 {
		params.DurationSeconds = 0
	}

	id, err := generateID()
	if err != nil {
		return models.Video{}, err
	}

	now := time.Now().UTC()
	video := models.Video{
		ID:              id,
		OwnerID:         params.OwnerID,
		Title:           title,
		Description:     strings.TrimSpace(params.Description),
		VideoURL:        params.VideoURL,
		ThumbnailURL:    params.ThumbnailURL,
		DurationSeconds: params.DurationSeconds,
		Published:       true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	s.data.Videos[id] = video
	if err := s.persist(); err != nil {
		delete(s.data.Videos, id)
		return models.Video{}, err
	}

	return video, nil
}

func (s *Storage) GetVideo(id string) (models.Video, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	video, ok := s.data.Videos[id]
	return video, ok
}

// ListVideos filters, orders, and paginates the video catalogue. Unpublished
// videos are excluded unless the filter asks for them, which listing paths
// only do for a channel owner looking at their own uploads.
func (s *Storage) ListVideos(filter ListVideosFilter) []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := strings.ToLower(strings.TrimSpace(filter.Query))
	videos := make([]models.Video, 0, len(s.data.Videos))
	for _, video := range s.data.Videos {
		if !video.Published && !filter.IncludeUnpublished {
			continue
		}
		if filter.OwnerID != "" && video.OwnerID != filter.OwnerID {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(video.Title), query) &&
			!strings.Contains(strings.ToLower(video.Description), query) {
			continue
		}
		videos = append(videos, video)
	}

	sortVideos(videos, filter.SortBy, filter.SortType)
	return paginate(videos, filter.Page, filter.Limit)
}

func sortVideos(videos []models.Video, sortBy, sortType string) {
	ascending := strings.EqualFold(sortType, "asc")
	less := func(i, j int) bool {
		return videos[i].CreatedAt.Before(videos[j].CreatedAt)
	}
	switch sortBy {
	case "views":
		less = func(i, j int) bool { return videos[i].Views < videos[j].Views }
	case "duration":
		less = func(i, j int) bool { return videos[i].DurationSeconds < videos[j].DurationSeconds }
	case "title":
		less = func(i, j int) bool { return videos[i].Title < videos[j].Title }
	}
	sort.SliceStable(videos, func(i, j int) bool {
		if ascending {
			return less(i, j)
		}
		return less(j, i)
	})
}

func (s *Storage) UpdateVideo(id string, update VideoUpdate) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return models.Video{}, errors.New("title cannot be empty")
		}
		video.Title = title
	}
	if update.Description != nil {
		video.Description = strings.TrimSpace(*update.Description)
	}
	if update.ThumbnailURL != nil {
		video.ThumbnailURL = strings.TrimSpace(*update.ThumbnailURL)
	}

	video.UpdatedAt = time.Now().UTC()
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// DeleteVideo removes the video together with its comments, any likes on the
// video or those comments, and every playlist reference to it.
func (s *Storage) DeleteVideo(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Videos[id]; !ok {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Videos, id)

	removedComments := make(map[string]struct{})
	for commentID, comment := range updatedData.Comments {
		if comment.VideoID == id {
			removedComments[commentID] = struct{}{}
			delete(updatedData.Comments, commentID)
		}
	}

	for likeID, like := range updatedData.Likes {
		if like.VideoID == id {
			delete(updatedData.Likes, likeID)
			continue
		}
		if like.CommentID != "" {
			if _, gone := removedComments[like.CommentID]; gone {
				delete(updatedData.Likes, likeID)
			}
		}
	}

	now := time.Now().UTC()
	for playlistID, playlist := range updatedData.Playlists {
		filtered := playlist.VideoIDs[:0:0]
		for _, videoID := range playlist.VideoIDs {
			if videoID == id {
				continue
			}
			filtered = append(filtered, videoID)
		}
		if len(filtered) != len(playlist.VideoIDs) {
			playlist.VideoIDs = filtered
			playlist.UpdatedAt = now
			updatedData.Playlists[playlistID] = playlist
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// IncrementVideoViews bumps the view counter. Unpublished videos still count
// views for their owner's previews.
func (s *Storage) IncrementVideoViews(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	video.Views++
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}

// ToggleVideoPublished flips the publish flag and returns the updated video.
func (s *Storage) ToggleVideoPublished(id string) (models.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	video, ok := updatedData.Videos[id]
	if !ok {
		return models.Video{}, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}

	video.Published = !video.Published
	video.UpdatedAt = time.Now().UTC()
	updatedData.Videos[id] = video
	if err := s.persistDataset(updatedData); err != nil {
		return models.Video{}, err
	}

	s.data = updatedData

	return video, nil
}
