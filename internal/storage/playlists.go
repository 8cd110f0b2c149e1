package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

func (s *Storage) CreatePlaylist(ownerID, name, description string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return models.Playlist{}, errors.New("name is required")
	}
	description = strings.TrimSpace(description)
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Playlist{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	for _, playlist := range s.data.Playlists {
		if playlist.OwnerID == ownerID && playlist.Name == name && playlist.Description == description {
			return models.Playlist{}, fmt.Errorf("playlist %q: %w", name, ErrDuplicate)
		}
	}

	id, err := generateID()
	if err != nil {
		return models.Playlist{}, err
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.data.Playlists[id] = playlist
	if err := s.persist(); err != nil {
		delete(s.data.Playlists, id)
		return models.Playlist{}, err
	}

	return playlist, nil
}

func (s *Storage) GetPlaylist(id string) (models.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	playlist, ok := s.data.Playlists[id]
	if ok && playlist.VideoIDs != nil {
		playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
	}
	return playlist, ok
}

// ListPlaylists returns the owner's playlists, newest first.
func (s *Storage) ListPlaylists(ownerID string) []models.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	playlists := make([]models.Playlist, 0)
	for _, playlist := range s.data.Playlists {
		if playlist.OwnerID != ownerID {
			continue
		}
		if playlist.VideoIDs != nil {
			playlist.VideoIDs = append([]string(nil), playlist.VideoIDs...)
		}
		playlists = append(playlists, playlist)
	}
	sort.Slice(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
	return playlists
}

func (s *Storage) UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[id]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Playlist{}, errors.New("name cannot be empty")
		}
		playlist.Name = name
	}
	if update.Description != nil {
		playlist.Description = strings.TrimSpace(*update.Description)
	}

	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[id] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

func (s *Storage) DeletePlaylist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Playlists[id]; !ok {
		return fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Playlists, id)
	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}

// AddPlaylistVideo appends the video to the playlist. Adding a video that is
// already present leaves the playlist unchanged.
func (s *Storage) AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := updatedData.Videos[videoID]; !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			return playlist, nil
		}
	}

	playlist.VideoIDs = append(playlist.VideoIDs, videoID)
	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}

// RemovePlaylistVideo drops the video reference from the playlist. Removing a
// video that is not present leaves the playlist unchanged.
func (s *Storage) RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	playlist, ok := updatedData.Playlists[playlistID]
	if !ok {
		return models.Playlist{}, fmt.Errorf("playlist %s: %w", playlistID, ErrNotFound)
	}
	if _, ok := updatedData.Videos[videoID]; !ok {
		return models.Playlist{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	filtered := playlist.VideoIDs[:0:0]
	for _, existing := range playlist.VideoIDs {
		if existing == videoID {
			continue
		}
		filtered = append(filtered, existing)
	}
	if len(filtered) == len(playlist.VideoIDs) {
		return playlist, nil
	}

	playlist.VideoIDs = filtered
	playlist.UpdatedAt = time.Now().UTC()
	updatedData.Playlists[playlistID] = playlist
	if err := s.persistDataset(updatedData); err != nil {
		return models.Playlist{}, err
	}

	s.data = updatedData

	return playlist, nil
}
