package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cliptide/internal/models"
)

func (s *Storage) CreateTweet(ownerID, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}
	if _, ok := s.data.Users[ownerID]; !ok {
		return models.Tweet{}, fmt.Errorf("user %s: %w", ownerID, ErrNotFound)
	}

	id, err := generateID()
	if err != nil {
		return models.Tweet{}, err
	}

	now := time.Now().UTC()
	tweet := models.Tweet{
		ID:        id,
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.data.Tweets[id] = tweet
	if err := s.persist(); err != nil {
		delete(s.data.Tweets, id)
		return models.Tweet{}, err
	}

	return tweet, nil
}

func (s *Storage) GetTweet(id string) (models.Tweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tweet, ok := s.data.Tweets[id]
	return tweet, ok
}

// ListTweets returns tweets newest first, optionally filtered by owner.
func (s *Storage) ListTweets(ownerID string) []models.Tweet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tweets := make([]models.Tweet, 0, len(s.data.Tweets))
	for _, tweet := range s.data.Tweets {
		if ownerID != "" && tweet.OwnerID != ownerID {
			continue
		}
		tweets = append(tweets, tweet)
	}
	sort.Slice(tweets, func(i, j int) bool {
		if tweets[i].CreatedAt.Equal(tweets[j].CreatedAt) {
			return tweets[i].ID < tweets[j].ID
		}
		return tweets[i].CreatedAt.After(tweets[j].CreatedAt)
	})
	return tweets
}

func (s *Storage) UpdateTweet(id, content string) (models.Tweet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content = strings.TrimSpace(content)
	if content == "" {
		return models.Tweet{}, errors.New("content is required")
	}

	updatedData := cloneDataset(s.data)

	tweet, ok := updatedData.Tweets[id]
	if !ok {
		return models.Tweet{}, fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	tweet.Content = content
	tweet.UpdatedAt = time.Now().UTC()
	updatedData.Tweets[id] = tweet
	if err := s.persistDataset(updatedData); err != nil {
		return models.Tweet{}, err
	}

	s.data = updatedData

	return tweet, nil
}

// DeleteTweet removes the tweet and any likes recorded against it.
func (s *Storage) DeleteTweet(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Tweets[id]; !ok {
		return fmt.Errorf("tweet %s: %w", id, ErrNotFound)
	}

	delete(updatedData.Tweets, id)
	for likeID, like := range updatedData.Likes {
		if like.TweetID == id {
			delete(updatedData.Likes, likeID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData
	return nil
}
