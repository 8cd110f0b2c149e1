package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"cliptide/internal/auth"
	"cliptide/internal/models"
)

type dataset struct {
	Users         map[string]models.User         `json:"users"`
	Videos        map[string]models.Video        `json:"videos"`
	Comments      map[string]models.Comment      `json:"comments"`
	Tweets        map[string]models.Tweet        `json:"tweets"`
	Playlists     map[string]models.Playlist     `json:"playlists"`
	Likes         map[string]models.Like         `json:"likes"`
	Subscriptions map[string]models.Subscription `json:"subscriptions"`
}

type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
}

func newDataset() dataset {
	return dataset{
		Users:         make(map[string]models.User),
		Videos:        make(map[string]models.Video),
		Comments:      make(map[string]models.Comment),
		Tweets:        make(map[string]models.Tweet),
		Playlists:     make(map[string]models.Playlist),
		Likes:         make(map[string]models.Like),
		Subscriptions: make(map[string]models.Subscription),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Videos == nil {
		s.data.Videos = make(map[string]models.Video)
	}
	if s.data.Comments == nil {
		s.data.Comments = make(map[string]models.Comment)
	}
	if s.data.Tweets == nil {
		s.data.Tweets = make(map[string]models.Tweet)
	}
	if s.data.Playlists == nil {
		s.data.Playlists = make(map[string]models.Playlist)
	}
	if s.data.Likes == nil {
		s.data.Likes = make(map[string]models.Like)
	}
	if s.data.Subscriptions == nil {
		s.data.Subscriptions = make(map[string]models.Subscription)
	}
}

func NewStorage(path string) (*Storage, error) {
	store := &Storage{filePath: path}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := dataset{}

	if src.Users != nil {
		clone.Users = make(map[string]models.User, len(src.Users))
		for id, user := range src.Users {
			clone.Users[id] = user
		}
	}

	if src.Videos != nil {
		clone.Videos = make(map[string]models.Video, len(src.Videos))
		for id, video := range src.Videos {
			clone.Videos[id] = video
		}
	}

	if src.Comments != nil {
		clone.Comments = make(map[string]models.Comment, len(src.Comments))
		for id, comment := range src.Comments {
			clone.Comments[id] = comment
		}
	}

	if src.Tweets != nil {
		clone.Tweets = make(map[string]models.Tweet, len(src.Tweets))
		for id, tweet := range src.Tweets {
			clone.Tweets[id] = tweet
		}
	}

	if src.Playlists != nil {
		clone.Playlists = make(map[string]models.Playlist, len(src.Playlists))
		for id, playlist := range src.Playlists {
			cloned := playlist
			if playlist.VideoIDs != nil {
				cloned.VideoIDs = append([]string(nil), playlist.VideoIDs...)
			}
			clone.Playlists[id] = cloned
		}
	}

	if src.Likes != nil {
		clone.Likes = make(map[string]models.Like, len(src.Likes))
		for id, like := range src.Likes {
			clone.Likes[id] = like
		}
	}

	if src.Subscriptions != nil {
		clone.Subscriptions = make(map[string]models.Subscription, len(src.Subscriptions))
		for id, subscription := range src.Subscriptions {
			clone.Subscriptions[id] = subscription
		}
	}

	return clone
}

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Ping reports datastore health. The JSON store is always reachable once
// loaded.
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// User operations

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := normalizeUsername(params.Username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		return models.User{}, errors.New("fullName is required")
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}

	for _, user := range s.data.Users {
		if user.Username == username {
			return models.User{}, fmt.Errorf("username %s: %w", username, ErrDuplicate)
		}
		if user.Email == email {
			return models.User{}, fmt.Errorf("email %s: %w", email, ErrDuplicate)
		}
	}

	hashed, err := auth.HashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            id,
		Username:      username,
		Email:         email,
		FullName:      fullName,
		AvatarURL:     params.AvatarURL,
		CoverImageURL: params.CoverImageURL,
		PasswordHash:  hashed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.data.Users[id] = user
	if err := s.persist(); err != nil {
		delete(s.data.Users, id)
		return models.User{}, err
	}

	return user, nil
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByLogin looks up an identity by its normalized username or email.
func (s *Storage) FindUserByLogin(usernameOrEmail string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	if needle == "" {
		return models.User{}, false
	}
	for _, user := range s.data.Users {
		if user.Username == needle || user.Email == needle {
			return user, true
		}
	}
	return models.User{}, false
}

func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

// UpdateUser mutates identity metadata while enforcing uniqueness constraints.
func (s *Storage) UpdateUser(id string, update UserUpdate) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" {
			return models.User{}, errors.New("fullName cannot be empty")
		}
		user.FullName = name
	}

	if update.Email != nil {
		email := normalizeEmail(*update.Email)
		if email == "" {
			return models.User{}, errors.New("email cannot be empty")
		}
		for existingID, existing := range updatedData.Users {
			if existingID == user.ID {
				continue
			}
			if existing.Email == email {
				return models.User{}, fmt.Errorf("email %s: %w", email, ErrDuplicate)
			}
		}
		user.Email = email
	}

	if update.AvatarURL != nil {
		url := strings.TrimSpace(*update.AvatarURL)
		if url == "" {
			return models.User{}, errors.New("avatar URL cannot be empty")
		}
		user.AvatarURL = url
	}

	if update.CoverImageURL != nil {
		user.CoverImageURL = strings.TrimSpace(*update.CoverImageURL)
	}

	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData

	return user, nil
}

// SetUserPassword replaces the stored password hash. The current refresh
// token is left in place.
func (s *Storage) SetUserPassword(id, password string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if password == "" {
		return models.User{}, errors.New("password is required")
	}

	updatedData := cloneDataset(s.data)

	user, ok := updatedData.Users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = hashed
	user.UpdatedAt = time.Now().UTC()
	updatedData.Users[id] = user
	if err := s.persistDataset(updatedData); err != nil {
		return models.User{}, err
	}

	s.data = updatedData

	return user, nil
}
