package jsonfile

import (
	"context"
	"time"

	"microblog/internal/domain"
)

var _ domain.UserRepository = (*Store)(nil)

func userFromRecord(username string, rec userRecord) *domain.User {
	return &domain.User{
		ID:            rec.ID,
		Username:      username,
		PasswordHash:  rec.Password,
		DisplayName:   rec.Name,
		AvatarInitial: rec.Avatar,
		CreatedAt:     rec.RegisteredAt,
	}
}

// GetByUsername retrieves a user by exact username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	paths.Lock(s.path)
	defer paths.Unlock(s.path)

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Users[username]
	if !ok {
		return nil, nil
	}
	return userFromRecord(username, rec), nil
}

// GetByID retrieves a user by ID.
func (s *Store) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	paths.Lock(s.path)
	defer paths.Unlock(s.path)

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for username, rec := range doc.Users {
		if rec.ID == id {
			return userFromRecord(username, rec), nil
		}
	}
	return nil, nil
}

// Create appends a new user to the document.
func (s *Store) Create(ctx context.Context, username, passwordHash, displayName, avatarInitial string) (*domain.User, error) {
	var created *domain.User
	err := s.update(func(doc *document) (bool, error) {
		if _, ok := doc.Users[username]; ok {
			return false, domain.ErrUsernameTaken
		}
		doc.LastUserID++
		rec := userRecord{
			ID:           doc.LastUserID,
			Password:     passwordHash,
			Name:         displayName,
			Avatar:       avatarInitial,
			RegisteredAt: time.Now().UTC(),
		}
		doc.Users[username] = rec
		created = userFromRecord(username, rec)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
