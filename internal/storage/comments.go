package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

func (s *Storage) CreateComment(videoID, ownerID, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}
	if _, ok := s.data.Videos[videoID]; !ok {
		return models.Comment{}, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Comment{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Comment{}, err
	}

	now := time.Now().UTC()
	comment := models.Comment{
		ID:        id,
		VideoID:   videoID,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Comments[id] = comment
	if err := s.persist(); err != nil {
		delete(s.data.Comments, id)
		return models.Comment{}, err
	}

	return comment, nil
}

func (s *Storage) GetComment(id string) (models.Comment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	comment, ok := s.data.Comments[id]
	return comment, ok
}

// ListVideoComments returns a page of the video's comments, newest first.
func (s *Storage) ListVideoComments(videoID string, page, limit int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Videos[videoID]; !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
	}

	comments := make([]models.Comment, 0)
	for _, comment := range s.data.Comments {
		if comment.VideoID == videoID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].ID < comments[j].ID
		}
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return paginate(comments, page, limit), nil
}

func (s *Storage) UpdateComment(id, content string) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Comment{}, errors.New("content is required")
	}

	updatedData := cloneDataset(s.data)

	comment, ok := updatedData.Comments[id]
	if !ok {
		return models.Comment{}, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	comment.Content = content
	comment.UpdatedAt = time.Now().UTC()
	updatedData.Comments[id] = comment
	if err := s.persistDataset(updatedData); err != nil {
		return models.Comment{}, err
	}

	s.data = updatedData

	return comment, nil
}

// DeleteComment removes the comment and any likes recorded against it.
func (s *Storage) DeleteComment(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Comments, id)
	for likeID, like := range updatedData.Likes {
		if like.CommentID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}
