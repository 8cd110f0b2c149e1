package storage

import (
	"context"

	"cliptide/internal/models"
)

// Repository exposes the datastore operations required by the API handlers
// and the session manager.
type Repository interface {
	Ping(ctx context.Context) error

	CreateUser(params CreateUserParams) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByLogin(usernameOrEmail string) (models.User, bool)
	ListUsers() []models.User
	UpdateUser(id string, update UserUpdate) (models.User, error)
	SetUserPassword(id, password string) (models.User, error)

	SetRefreshToken(ctx context.Context, userID, token string) error
	SwapRefreshToken(ctx context.Context, userID, previous, next string) error
	ClearRefreshToken(ctx context.Context, userID string) error

	CreateVideo(params CreateVideoParams) (models.Video, error)
	GetVideo(id string) (models.Video, bool)
	ListVideos(filter ListVideosFilter) []models.Video
	UpdateVideo(id string, update VideoUpdate) (models.Video, error)
	DeleteVideo(id string) error
	IncrementVideoViews(id string) (models.Video, error)
	ToggleVideoPublished(id string) (models.Video, error)

	CreateComment(videoID, ownerID, content string) (models.Comment, error)
	GetComment(id string) (models.Comment, bool)
	ListVideoComments(videoID string, page, limit int) ([]models.Comment, error)
	UpdateComment(id, content string) (models.Comment, error)
	DeleteComment(id string) error

	CreateTweet(ownerID, content string) (models.Tweet, error)
	GetTweet(id string) (models.Tweet, bool)
	ListTweets(ownerID string) []models.Tweet
	UpdateTweet(id, content string) (models.Tweet, error)
	DeleteTweet(id string) error

	ToggleVideoLike(videoID, userID string) (bool, error)
	ToggleCommentLike(commentID, userID string) (bool, error)
	ToggleTweetLike(tweetID, userID string) (bool, error)
	ListLikedVideos(userID string) []models.Video
	CountVideoLikes(videoID string) int

	CreatePlaylist(ownerID, name, description string) (models.Playlist, error)
	GetPlaylist(id string) (models.Playlist, bool)
	ListPlaylists(ownerID string) []models.Playlist
	UpdatePlaylist(id string, update PlaylistUpdate) (models.Playlist, error)
	DeletePlaylist(id string) error
	AddPlaylistVideo(playlistID, videoID string) (models.Playlist, error)
	RemovePlaylistVideo(playlistID, videoID string) (models.Playlist, error)

	ToggleSubscription(channelID, subscriberID string) (bool, error)
	IsSubscribed(channelID, subscriberID string) bool
	ListChannelSubscribers(channelID string) ([]models.User, error)
	ListSubscribedChannels(subscriberID string) ([]models.User, error)
	ChannelStats(channelID string) (models.ChannelStats, error)
}

var _ Repository = (*Storage)(nil)
