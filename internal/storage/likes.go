package storage

import (
	"fmt"
	"sort"
	"time"

	"cliptide/internal/models"
)

// likeTarget identifies which field of a Like row the toggle operates on.
type likeTarget int

const (
	likeTargetVideo likeTarget = iota
	likeTargetComment
	likeTargetTweet
)

// ToggleVideoLike flips the (video, caller) like relation. It reports true
// when the like now exists and false when it was removed.
func (s *Storage) ToggleVideoLike(videoID, userID string) (bool, error) {
	return s.toggleLike(likeTargetVideo, videoID, userID)
}

// ToggleCommentLike flips the (comment, caller) like relation.
func (s *Storage) ToggleCommentLike(commentID, userID string) (bool, error) {
	return s.toggleLike(likeTargetComment, commentID, userID)
}

// ToggleTweetLike flips the (tweet, caller) like relation.
func (s *Storage) ToggleTweetLike(tweetID, userID string) (bool, error) {
	return s.toggleLike(likeTargetTweet, tweetID, userID)
}

// toggleLike implements the toggle protocol: an existing relation row keyed
// by (target, caller) is deleted, a missing one is created. Repeat calls
// alternate between the two states and never fail.
func (s *Storage) toggleLike(target likeTarget, targetID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return false, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	switch target {
	case likeTargetVideo:
		if _, ok := s.data.Videos[targetID]; !ok {
			return false, fmt.Errorf("video %s: %w", targetID, ErrNotFound)
		}
	case likeTargetComment:
		if _, ok := s.data.Comments[targetID]; !ok {
			return false, fmt.Errorf("comment %s: %w", targetID, ErrNotFound)
		}
	case likeTargetTweet:
		if _, ok := s.data.Tweets[targetID]; !ok {
			return false, fmt.Errorf("tweet %s: %w", targetID, ErrNotFound)
		}
	}

	updatedData := cloneDataset(s.data)

	for likeID, like := range updatedData.Likes {
		if like.LikedByID != userID || !likeMatchesTarget(like, target, targetID) {
			continue
		}
		delete(updatedData.Likes, likeID)
		if err := s.persistDataset(updatedData); err != nil {
			return false, err
		}
		s.data = updatedData
		return false, nil
	}

	id, err := generateID()
	if err != nil {
		return false, err
	}
	like := models.Like{
		ID:        id,
		LikedByID: userID,
		CreatedAt: time.Now().UTC(),
	}
	switch target {
	case likeTargetVideo:
		like.VideoID = targetID
	case likeTargetComment:
		like.CommentID = targetID
	case likeTargetTweet:
		like.TweetID = targetID
	}

	updatedData.Likes[id] = like
	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}
	s.data = updatedData
	return true, nil
}

func likeMatchesTarget(like models.Like, target likeTarget, targetID string) bool {
	switch target {
	case likeTargetVideo:
		return like.VideoID == targetID
	case likeTargetComment:
		return like.CommentID == targetID
	case likeTargetTweet:
		return like.TweetID == targetID
	}
	return false
}

// ListLikedVideos returns the published videos the caller has liked, most
// recently liked first.
func (s *Storage) ListLikedVideos(userID string) []models.Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes := make([]models.Like, 0)
	for _, like := range s.data.Likes {
		if like.LikedByID == userID && like.VideoID != "" {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		if likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].ID < likes[j].ID
		}
		return likes[i].CreatedAt.After(likes[j].CreatedAt)
	})

	videos := make([]models.Video, 0, len(likes))
	for _, like := range likes {
		video, ok := s.data.Videos[like.VideoID]
		if !ok || !video.Published {
			continue
		}
		videos = append(videos, video)
	}
	return videos
}

// CountVideoLikes reports the number of likes on a single video.
func (s *Storage) CountVideoLikes(videoID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, like := range s.data.Likes {
		if like.VideoID == videoID {
			count++
		}
	}
	return count
}
