package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"cliptide/internal/models"
)

// ToggleSubscription flips the (channel, subscriber) relation. Channels are
// identities, so the channel id is the channel owner's user id. It reports
// true when the subscription now exists and false when it was removed.
func (s *Storage) ToggleSubscription(channelID, subscriberID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channelID == subscriberID {
		return false, errors.New("cannot subscribe to your own channel")
	}
	if _, ok := s.data.Users[channelID]; !ok {
		return false, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	if _, ok := s.data.Users[subscriberID]; !ok {
		return false, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}

	updatedData := cloneDataset(s.data)

	for subscriptionID, subscription := range updatedData.Subscriptions {
		if subscription.ChannelID != channelID || subscription.SubscriberID != subscriberID {
			continue
		}
		delete(updatedData.Subscriptions, subscriptionID)
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
	subscription := models.Subscription{
		ID:           id,
		ChannelID:    channelID,
		SubscriberID: subscriberID,
		CreatedAt:    time.Now().UTC(),
	}

	updatedData.Subscriptions[id] = subscription
	if err := s.persistDataset(updatedData); err != nil {
		return false, err
	}
	s.data = updatedData
	return true, nil
}

// IsSubscribed reports whether the subscriber currently follows the channel.
func (s *Storage) IsSubscribed(channelID, subscriberID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, subscription := range s.data.Subscriptions {
		if subscription.ChannelID == channelID && subscription.SubscriberID == subscriberID {
			return true
		}
	}
	return false
}

// ListChannelSubscribers returns the identities subscribed to the channel,
// oldest subscription first.
func (s *Storage) ListChannelSubscribers(channelID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	subscriptions := subscriptionsSorted(s.data.Subscriptions, func(sub models.Subscription) bool {
		return sub.ChannelID == channelID
	})

	subscribers := make([]models.User, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		if user, ok := s.data.Users[subscription.SubscriberID]; ok {
			subscribers = append(subscribers, user.Sanitized())
		}
	}
	return subscribers, nil
}

// ListSubscribedChannels returns the channels the user subscribes to, oldest
// subscription first.
func (s *Storage) ListSubscribedChannels(subscriberID string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[subscriberID]; !ok {
		return nil, fmt.Errorf("user %s: %w", subscriberID, ErrNotFound)
	}

	subscriptions := subscriptionsSorted(s.data.Subscriptions, func(sub models.Subscription) bool {
		return sub.SubscriberID == subscriberID
	})

	channels := make([]models.User, 0, len(subscriptions))
	for _, subscription := range subscriptions {
		if user, ok := s.data.Users[subscription.ChannelID]; ok {
			channels = append(channels, user.Sanitized())
		}
	}
	return channels, nil
}

func subscriptionsSorted(all map[string]models.Subscription, match func(models.Subscription) bool) []models.Subscription {
	subscriptions := make([]models.Subscription, 0)
	for _, subscription := range all {
		if match(subscription) {
			subscriptions = append(subscriptions, subscription)
		}
	}
	sort.Slice(subscriptions, func(i, j int) bool {
		if subscriptions[i].CreatedAt.Equal(subscriptions[j].CreatedAt) {
			return subscriptions[i].ID < subscriptions[j].ID
		}
		return subscriptions[i].CreatedAt.Before(subscriptions[j].CreatedAt)
	})
	return subscriptions
}

// ChannelStats aggregates the dashboard counters for a channel: video count,
// summed views, subscriber count, and likes across the channel's videos.
func (s *Storage) ChannelStats(channelID string) (models.ChannelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Users[channelID]; !ok {
		return models.ChannelStats{}, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	stats := models.ChannelStats{}
	owned := make(map[string]struct{})
	for id, video := range s.data.Videos {
		if video.OwnerID != channelID {
			continue
		}
		owned[id] = struct{}{}
		stats.TotalVideos++
		stats.TotalViews += video.Views
	}
	for _, subscription := range s.data.Subscriptions {
		if subscription.ChannelID == channelID {
			stats.TotalSubscribers++
		}
	}
	for _, like := range s.data.Likes {
		if like.VideoID == "" {
			continue
		}
		if _, ok := owned[like.VideoID]; ok {
			stats.TotalLikes++
		}
	}
	return stats, nil
}
