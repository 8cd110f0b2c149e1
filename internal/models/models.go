package models

import "time"

// User is an identity record. PasswordHash and RefreshToken are storage-only
// fields; API responses are built from Sanitized copies.
type User struct {
	ID            string    `json:"_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	FullName      string    `json:"fullName"`
	AvatarURL     string    `json:"avatar"`
	CoverImageURL string    `json:"coverImage,omitempty"`
	PasswordHash  string    `json:"passwordHash,omitempty"`
	RefreshToken  string    `json:"refreshToken,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Sanitized returns a copy safe to serialise to clients: the password hash and
// the stored refresh token are never exposed.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

type Video struct {
	ID              string    `json:"_id"`
	OwnerID         string    `json:"owner"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	VideoURL        string    `json:"videoFile"`
	ThumbnailURL    string    `json:"thumbnail,omitempty"`
	DurationSeconds int       `json:"duration"`
	Views           int64     `json:"views"`
	Published       bool      `json:"isPublished"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        string    `json:"_id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Tweet struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Playlist struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"owner"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	VideoIDs    []string  `json:"videos"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Like is a relation row keyed by (target, liker). Exactly one of VideoID,
// CommentID, and TweetID is set.
type Like struct {
	ID        string    `json:"_id"`
	VideoID   string    `json:"video,omitempty"`
	CommentID string    `json:"comment,omitempty"`
	TweetID   string    `json:"tweet,omitempty"`
	LikedByID string    `json:"likedBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Subscription records a subscriber following a channel. Channels are users;
// ChannelID is the channel owner's user id.
type Subscription struct {
	ID           string    `json:"_id"`
	ChannelID    string    `json:"channel"`
	SubscriberID string    `json:"subscriber"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChannelStats aggregates dashboard counters for a channel.
type ChannelStats struct {
	TotalVideos      int   `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalSubscribers int   `json:"totalSubscribers"`
	TotalLikes       int   `json:"totalLikes"`
}
