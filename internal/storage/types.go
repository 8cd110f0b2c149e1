package storage

// CreateUserParams captures the attributes that can be set when registering an
// identity. AvatarURL and CoverImageURL are media-store URLs produced by the
// upload pipeline before registration completes.
type CreateUserParams struct {
	Username      string
	Email         string
	FullName      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// UserUpdate represents the fields that can be modified on an existing
// identity. Nil pointers leave the field unchanged.
type UserUpdate struct {
	FullName      *string
	Email         *string
	AvatarURL     *string
	CoverImageURL *string
}

// CreateVideoParams captures the attributes needed to publish a new video.
type CreateVideoParams struct {
	OwnerID         string
	Title           string
	Description     string
	VideoURL        string
	ThumbnailURL    string
	DurationSeconds int
}

// VideoUpdate represents the mutable video metadata fields.
type VideoUpdate struct {
	Title        *string
	Description  *string
	ThumbnailURL *string
}

// ListVideosFilter narrows and orders video listings. Query matches title and
// description case-insensitively. SortBy accepts createdAt, views, duration,
// and title; SortType accepts asc and desc. Page starts at 1.
type ListVideosFilter struct {
	Query              string
	OwnerID            string
	IncludeUnpublished bool
	SortBy             string
	SortType           string
	Page               int
	Limit              int
}

// PlaylistUpdate represents the mutable playlist metadata fields.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}
